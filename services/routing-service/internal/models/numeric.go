package models

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Numeric is a float that accepts both JSON numbers and numeric strings,
// since client payloads send weights and dimensions either way.
type Numeric float64

func (n Numeric) Float64() float64 { return float64(n) }

func (n *Numeric) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case nil:
		*n = 0
		return nil
	case bool:
		return fmt.Errorf("not a number: %s", b)
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a finite number: %s", b)
	}
	*n = Numeric(f)
	return nil
}
