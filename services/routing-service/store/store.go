// store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by every lookup that matched no row.
var ErrNotFound = errors.New("store: record not found")

// ZipZoneQuery is an exact-match eligibility lookup.
// Every field must match, including Tobacco and ShipperID (nil matches only default rules).
// Among the matches the rule with the smallest MaxWeight >= MinWeight wins.
type ZipZoneQuery struct {
	Carrier   carrier.ID
	Zipcode   string
	MinWeight float64
	Tobacco   models.TobaccoFlag
	ShipperID *int64
}

// ZipZoneStore answers carrier eligibility questions.
type ZipZoneStore interface {
	FindZipZone(ctx context.Context, q ZipZoneQuery) (*models.ZipZone, error)
}

// RateCardStore holds per-shipper prices keyed by (zone, whole pound weight).
type RateCardStore interface {
	GetRate(ctx context.Context, shipperID int64, zone int, weight int) (decimal.Decimal, error)
}

// ZoneMatrixStore holds one row of destination zones per origin zip prefix.
type ZoneMatrixStore interface {
	GetZoneMatrix(ctx context.Context, originPrefix string) (*models.ZoneMatrix, error)
}

// OrganizationStore resolves shipper tenants.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error)
}

// OrderStore persists routed orders.
type OrderStore interface {
	// NextOrderSequence hands out a monotonically increasing number used in broker tracking numbers.
	NextOrderSequence(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	// UpdateOrderStatus moves the order from one status to another. It reports
	// false without writing when the stored status is no longer from.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error)
}

// ReferenceWriter loads reference data (seed import).
type ReferenceWriter interface {
	PutOrganization(ctx context.Context, org models.Organization) error
	PutZipZone(ctx context.Context, zz models.ZipZone) error
	PutRateCard(ctx context.Context, shipperID int64, zone int, weight int, cost decimal.Decimal) error
	PutZoneMatrix(ctx context.Context, zm models.ZoneMatrix) error
}

// UsageKey identifies one shipper's label count for a carrier in a calendar month.
type UsageKey struct {
	ShipperSeqNum int64
	Carrier       carrier.ID
	Year          int
	Month         int
}

// UsageRecord is a label count delta (on flush) or running total (on read).
type UsageRecord struct {
	UsageKey
	Labels int64
}

// UsageBatch is one aggregator flush. BatchID is the idempotency key.
type UsageBatch struct {
	BatchID uuid.UUID
	Records []UsageRecord
}

// UsageStore keeps monthly label totals per shipper and carrier.
type UsageStore interface {
	// FlushUsage adds every record of the batch to the running totals atomically.
	// A batch whose ID was already applied is a no-op.
	FlushUsage(ctx context.Context, batch UsageBatch) error
	GetUsage(ctx context.Context, shipperSeqNum int64, year, month int) ([]UsageRecord, error)
}
