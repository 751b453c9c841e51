package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
)

// ZipZone is one eligibility rule: carrier X serves zipcode Y up to MaxWeight,
// optionally only for one shipper and optionally tobacco-flagged.
type ZipZone struct {
	ID        int64          `json:"id"`
	Carrier   carrier.ID     `json:"carrier"`
	Zipcode   string         `json:"zipcode"`
	MaxWeight float64        `json:"max_weight"`
	Tobacco   TobaccoFlag    `json:"tobacco"`
	ShipperID *int64         `json:"shipper_id"` // nil is the default rule for every shipper
	Options   map[string]any `json:"options,omitempty"`
}

// TobaccoFlag is the nullable tobacco column of a ZipZone record.
type TobaccoFlag int8

const (
	TobaccoUnrecorded TobaccoFlag = iota // NULL
	TobaccoAllowed                       // true
	TobaccoDisallowed                    // false
)

// TobaccoFlagFromPtr converts a nullable boolean column.
func TobaccoFlagFromPtr(b *bool) TobaccoFlag {
	switch {
	case b == nil:
		return TobaccoUnrecorded
	case *b:
		return TobaccoAllowed
	default:
		return TobaccoDisallowed
	}
}

// Ptr is the inverse of TobaccoFlagFromPtr.
func (f TobaccoFlag) Ptr() *bool {
	var b bool
	switch f {
	case TobaccoAllowed:
		b = true
	case TobaccoDisallowed:
		b = false
	default:
		return nil
	}
	return &b
}

func (f TobaccoFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Ptr())
}

func (f *TobaccoFlag) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = TobaccoUnrecorded
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("tobacco flag: %w", err)
	}
	*f = TobaccoFlagFromPtr(&v)
	return nil
}

// TobaccoPolicy is the tobacco requirement of a shipment, resolved once per selection.
type TobaccoPolicy int8

const (
	TobaccoNotApplicable TobaccoPolicy = iota // no tobacco information
	TobaccoRequired                           // tobacco product, needs a tobacco-enabled rule
	TobaccoForbidden                          // explicitly not tobacco
)

// RecordFlag is the ZipZone tobacco value a target with this policy must match.
// Only tobacco shipments match tobacco=true rules; everything else matches
// rules with no tobacco flag recorded, so rules stored with tobacco=false are
// never eligible.
func (p TobaccoPolicy) RecordFlag() TobaccoFlag {
	if p == TobaccoRequired {
		return TobaccoAllowed
	}
	return TobaccoUnrecorded
}

func (p TobaccoPolicy) String() string {
	switch p {
	case TobaccoRequired:
		return "required"
	case TobaccoForbidden:
		return "forbidden"
	default:
		return "not_applicable"
	}
}
