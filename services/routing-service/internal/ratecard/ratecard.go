// services/routing-service/internal/ratecard/ratecard.go
package ratecard

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/shopspring/decimal"
)

// Lookup prices a (shipper, weight, zone) triple from the shipper's rate card.
type Lookup struct {
	store store.RateCardStore
}

func NewLookup(s store.RateCardStore) *Lookup {
	return &Lookup{store: s}
}

// BillableWeight rounds a weight up to the whole pound the rate card is keyed by.
func BillableWeight(weight float64) int {
	return int(math.Ceil(weight))
}

// Cost returns the price for the triple. found is false when the rate card has
// no row, which means "cost unknown" and must never be read as zero.
func (l *Lookup) Cost(ctx context.Context, shipperID int64, weight float64, zone int) (decimal.Decimal, bool, error) {
	cost, err := l.store.GetRate(ctx, shipperID, zone, BillableWeight(weight))
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("rate card shipper %d zone %d: %w", shipperID, zone, err)
	}
	return cost, true, nil
}
