// Package integration holds the per-carrier label purchasing capability.
package integration

import (
	"context"
	"fmt"
	"sort"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/google/uuid"
)

// OrderParams is what a carrier needs to produce a label.
type OrderParams struct {
	OrderID        uuid.UUID      `json:"order_id"`
	TrackingNumber string         `json:"tracking_number"` // broker tracking number
	Reference      string         `json:"reference,omitempty"`
	ToAddress      models.Address `json:"to_address"`
	FromAddress    models.Address `json:"from_address"`
	Parcel         models.Parcel  `json:"parcel"`
	Tobacco        bool           `json:"tobacco"`
}

// LabelResult is the carrier's answer to a label purchase.
type LabelResult struct {
	CarrierTrackingNumber string `json:"carrier_tracking_number"`
	LabelURL              string `json:"label_url"`
}

// Integration creates an order with one carrier. zipZone is the eligibility
// rule that routed the order there; its Options carry account settings.
type Integration interface {
	CreateOrder(ctx context.Context, zipZone *models.ZipZone, params OrderParams, org *models.Organization) (LabelResult, error)
}

// Registry maps carriers to their integration. Built once at startup.
type Registry struct {
	integrations map[carrier.ID]Integration
}

// NewRegistry rejects unknown and disabled carriers so that the registry
// is also the set of carriers selection fans out over.
func NewRegistry(integrations map[carrier.ID]Integration) (*Registry, error) {
	r := &Registry{integrations: make(map[carrier.ID]Integration, len(integrations))}
	for id, in := range integrations {
		if !id.Enabled() {
			return nil, fmt.Errorf("cannot register integration for %s: carrier disabled or unknown", id)
		}
		if in == nil {
			return nil, fmt.Errorf("nil integration for %s", id)
		}
		r.integrations[id] = in
	}
	return r, nil
}

// Lookup returns the integration for id or an error wrapping ErrNoIntegration.
func (r *Registry) Lookup(id carrier.ID) (Integration, error) {
	in, ok := r.integrations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErr.ErrNoIntegration, id)
	}
	return in, nil
}

// Carriers returns the registered carriers in enum order.
func (r *Registry) Carriers() []carrier.ID {
	ids := make([]carrier.ID, 0, len(r.integrations))
	for id := range r.integrations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
