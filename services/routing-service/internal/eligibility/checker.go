// Package eligibility decides whether a single carrier can take a shipment.
package eligibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
)

// Target is the shipment attributes eligibility is decided on.
type Target struct {
	Zipcode   string
	Weight    float64
	Tobacco   models.TobaccoPolicy
	ShipperID int64
}

type Checker struct {
	store store.ZipZoneStore
}

func NewChecker(s store.ZipZoneStore) *Checker {
	return &Checker{store: s}
}

// Check returns the ZipZone rule that makes the carrier eligible, or nil.
// A shipper-specific rule shadows the default rules; among rules of the same
// scope the one with the tightest weight ceiling wins. A nil target means
// there is nothing to route yet and yields nil.
func (c *Checker) Check(ctx context.Context, id carrier.ID, target *Target) (*models.ZipZone, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", domainErr.ErrUnknownCarrier, uint8(id))
	}
	if target == nil {
		return nil, nil
	}

	shipperID := target.ShipperID
	q := store.ZipZoneQuery{
		Carrier:   id,
		Zipcode:   target.Zipcode,
		MinWeight: target.Weight,
		Tobacco:   target.Tobacco.RecordFlag(),
		ShipperID: &shipperID,
	}

	// Step 1: shipper override
	zz, err := c.store.FindZipZone(ctx, q)
	if err == nil {
		return zz, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("eligibility %s shipper rule: %w", id, err)
	}

	// Step 2: default rule
	q.ShipperID = nil
	zz, err = c.store.FindZipZone(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eligibility %s default rule: %w", id, err)
	}
	return zz, nil
}
