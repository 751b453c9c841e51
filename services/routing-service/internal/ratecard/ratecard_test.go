package ratecard

import (
	"context"
	"errors"
	"testing"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/shopspring/decimal"
)

type mockRateStore struct {
	rows     map[[3]int64]decimal.Decimal
	lastCall [3]int64
	err      error
}

func (m *mockRateStore) GetRate(ctx context.Context, shipperID int64, zone int, weight int) (decimal.Decimal, error) {
	m.lastCall = [3]int64{shipperID, int64(zone), int64(weight)}
	if m.err != nil {
		return decimal.Zero, m.err
	}
	c, ok := m.rows[m.lastCall]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	return c, nil
}

func TestCost(t *testing.T) {
	ms := &mockRateStore{rows: map[[3]int64]decimal.Decimal{
		{1, 5, 2}: decimal.RequireFromString("8.15"),
	}}
	l := NewLookup(ms)

	tests := []struct {
		name      string
		weight    float64
		zone      int
		wantCost  string
		wantFound bool
		wantKey   [3]int64
	}{
		{"fractional weight is ceiled", 1.2, 5, "8.15", true, [3]int64{1, 5, 2}},
		{"whole weight", 2, 5, "8.15", true, [3]int64{1, 5, 2}},
		{"missing row", 3, 5, "0", false, [3]int64{1, 5, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cost, found, err := l.Cost(context.Background(), 1, tc.weight, tc.zone)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found != tc.wantFound || !cost.Equal(decimal.RequireFromString(tc.wantCost)) {
				t.Errorf("got (%s, %v), want (%s, %v)", cost, found, tc.wantCost, tc.wantFound)
			}
			if ms.lastCall != tc.wantKey {
				t.Errorf("looked up %v, want %v", ms.lastCall, tc.wantKey)
			}
		})
	}
}

func TestCostPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	l := NewLookup(&mockRateStore{err: boom})
	if _, _, err := l.Cost(context.Background(), 1, 1, 1); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
