// Package carrier holds the closed set of delivery carriers the broker can route to.
package carrier

import (
	"fmt"
	"strings"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
)

// ID identifies a carrier. The zero value is not a carrier.
// Values are packed into tracking numbers, so new carriers are only appended.
type ID uint8

const (
	Unknown ID = iota
	USPS
	UPS
	FedEx
	DHLeCommerce
	OnTrac
	LaserShip
	Veho

	sentinel
)

// NumIDs sizes arrays indexed by ID.
const NumIDs = int(sentinel)

var names = [NumIDs]string{
	Unknown:      "unknown",
	USPS:         "usps",
	UPS:          "ups",
	FedEx:        "fedex",
	DHLeCommerce: "dhl_ecommerce",
	OnTrac:       "ontrac",
	LaserShip:    "lasership",
	Veho:         "veho",
}

// disabled carriers are known identifiers that never take part in selection.
var disabled = [NumIDs]bool{
	Veho: true,
}

// Parse maps a wire name ("ups", "dhl_ecommerce", ...) to its ID.
func Parse(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id := USPS; id < sentinel; id++ {
		if names[id] == s {
			return id, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", domainErr.ErrUnknownCarrier, s)
}

func (id ID) String() string {
	if int(id) >= NumIDs {
		return fmt.Sprintf("carrier(%d)", uint8(id))
	}
	return names[id]
}

// Valid reports whether id is a known carrier, enabled or not.
func (id ID) Valid() bool {
	return id > Unknown && id < sentinel
}

// Enabled reports whether id takes part in selection.
func (id ID) Enabled() bool {
	return id.Valid() && !disabled[id]
}

// All returns every known carrier in enum order.
func All() []ID {
	ids := make([]ID, 0, NumIDs-1)
	for id := USPS; id < sentinel; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Enabled returns the carriers that take part in selection, in enum order.
func Enabled() []ID {
	var ids []ID
	for _, id := range All() {
		if id.Enabled() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", domainErr.ErrUnknownCarrier, uint8(id))
	}
	return []byte(names[id]), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
