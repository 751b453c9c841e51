// Package tracking issues broker tracking numbers and reconciles carrier tracking events.
package tracking

import (
	"fmt"
	"strings"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
)

// Prefix marks broker-issued tracking numbers.
const Prefix = "SB"

// Bit layout of the packed value, most significant first:
// 24 bits shipper | 4 bits carrier | 36 bits sequence.
const (
	sequenceBits = 36
	carrierBits  = 4
	shipperBits  = 24

	MaxSequence = 1<<sequenceBits - 1
	MaxShipper  = 1<<shipperBits - 1
	maxCarrier  = 1<<carrierBits - 1
)

// encodedLen is the Crockford width of a full 64 bit value.
const encodedLen = 13

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Fields are the components packed into a tracking number.
type Fields struct {
	ShipperSeq int64
	Carrier    carrier.ID
	Sequence   int64
}

// Compose packs f into a tracking number such as "SB00G4Y8M0001".
func Compose(f Fields) (string, error) {
	if f.ShipperSeq < 0 || f.ShipperSeq > MaxShipper {
		return "", fmt.Errorf("shipper %d out of range", f.ShipperSeq)
	}
	if !f.Carrier.Valid() || int(f.Carrier) > maxCarrier {
		return "", fmt.Errorf("carrier %d out of range", uint8(f.Carrier))
	}
	if f.Sequence < 0 || f.Sequence > MaxSequence {
		return "", fmt.Errorf("sequence %d out of range", f.Sequence)
	}
	v := uint64(f.ShipperSeq)<<(carrierBits+sequenceBits) |
		uint64(f.Carrier)<<sequenceBits |
		uint64(f.Sequence)
	return Prefix + EncodeBase32(v), nil
}

// Decompose is the inverse of Compose.
func Decompose(trackingNumber string) (Fields, error) {
	s := strings.ToUpper(strings.TrimSpace(trackingNumber))
	if !strings.HasPrefix(s, Prefix) {
		return Fields{}, fmt.Errorf("tracking number %q: missing %s prefix", trackingNumber, Prefix)
	}
	v, err := DecodeBase32(s[len(Prefix):])
	if err != nil {
		return Fields{}, fmt.Errorf("tracking number %q: %w", trackingNumber, err)
	}
	f := Fields{
		ShipperSeq: int64(v >> (carrierBits + sequenceBits)),
		Carrier:    carrier.ID(v >> sequenceBits & maxCarrier),
		Sequence:   int64(v & MaxSequence),
	}
	if !f.Carrier.Valid() {
		return Fields{}, fmt.Errorf("tracking number %q: unknown carrier %d", trackingNumber, uint8(f.Carrier))
	}
	return f, nil
}

// EncodeBase32 renders v in Crockford base32, zero padded to 13 symbols.
func EncodeBase32(v uint64) string {
	var buf [encodedLen]byte
	for i := encodedLen - 1; i >= 0; i-- {
		buf[i] = crockford[v&31]
		v >>= 5
	}
	return string(buf[:])
}

// DecodeBase32 parses Crockford base32. It is case-insensitive and maps
// the ambiguous letters I, L to 1 and O to 0.
func DecodeBase32(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty base32 value")
	}
	var v uint64
	for _, c := range strings.ToUpper(s) {
		var d int
		switch c {
		case 'I', 'L':
			d = 1
		case 'O':
			d = 0
		default:
			d = strings.IndexRune(crockford, c)
			if d < 0 {
				return 0, fmt.Errorf("invalid base32 symbol %q", c)
			}
		}
		if v > (^uint64(0))>>5 {
			return 0, fmt.Errorf("base32 value %q overflows 64 bits", s)
		}
		v = v<<5 | uint64(d)
	}
	return v, nil
}
