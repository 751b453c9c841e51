package activities

import (
	"context"
	"errors"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/service"
	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Application error types carried across the workflow boundary.
const (
	ErrTypeUnroutable     = "Unroutable"
	ErrTypeInvalidInput   = "InvalidInput"
	ErrTypeOrgNotFound    = "OrganizationNotFound"
	ErrTypeNoIntegration  = "NoIntegration"
	ErrTypeOrderNotFound  = "OrderNotFound"
	ErrTypeUnknownCarrier = "UnknownCarrier"
	ErrTypeMalformedZone  = "MalformedZoneEntry"
	ErrTypeZoneOutOfRange = "ZoneIndexOutOfRange"
	ErrTypeInvalidZip     = "InvalidZip"
	ErrTypeInvalidState   = "InvalidState"
)

// nonRetryable lists the domain errors a retry can never fix.
var nonRetryable = []struct {
	err     error
	errType string
}{
	{domainErr.ErrUnroutable, ErrTypeUnroutable},
	{domainErr.ErrInvalidInput, ErrTypeInvalidInput},
	{domainErr.ErrOrganizationNotFound, ErrTypeOrgNotFound},
	{domainErr.ErrNoIntegration, ErrTypeNoIntegration},
	{domainErr.ErrOrderNotFound, ErrTypeOrderNotFound},
	{domainErr.ErrUnknownCarrier, ErrTypeUnknownCarrier},
	{domainErr.ErrMalformedZoneEntry, ErrTypeMalformedZone},
	{domainErr.ErrZoneIndexOutOfRange, ErrTypeZoneOutOfRange},
	{domainErr.ErrInvalidZip, ErrTypeInvalidZip},
	{domainErr.ErrInvalidState, ErrTypeInvalidState},
}

// ToApplicationError marks domain failures as non-retryable. Anything else
// (network, database) is returned as is and retried by the workflow policy.
func ToApplicationError(err error) error {
	if err == nil {
		return nil
	}
	for _, nr := range nonRetryable {
		if errors.Is(err, nr.err) {
			return temporal.NewNonRetryableApplicationError(err.Error(), nr.errType, err)
		}
	}
	return err
}

// FromApplicationError restores the domain sentinel of a failed workflow so
// callers can keep using errors.Is.
func FromApplicationError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	for _, nr := range nonRetryable {
		if appErr.Type() == nr.errType {
			return &restoredError{sentinel: nr.err, msg: appErr.Error()}
		}
	}
	return err
}

type restoredError struct {
	sentinel error
	msg      string
}

func (e *restoredError) Error() string { return e.msg }
func (e *restoredError) Unwrap() error { return e.sentinel }

// Booker is satisfied by *service.OrderService.
type Booker interface {
	Organization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error)
	Route(ctx context.Context, org *models.Organization, req models.OrderRequest) (service.RouteResult, error)
	CreateLabel(ctx context.Context, org *models.Organization, req models.OrderRequest, route service.RouteResult, orderID uuid.UUID) (models.Order, error)
	SaveOrder(ctx context.Context, order models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	PublishOrderCreated(ctx context.Context, order models.Order) error
}

// OrderInput starts a CreateOrderWorkflow. OrderID is chosen by the starter
// so that activity retries and the carrier idempotency key agree on it.
type OrderInput struct {
	ShipperSeqNum int64               `json:"shipper_seq_num"`
	OrderID       uuid.UUID           `json:"order_id"`
	Request       models.OrderRequest `json:"request"`
}

// LabelInput is the routed order handed to CreateLabel.
type LabelInput struct {
	OrderInput
	Route service.RouteResult `json:"route"`
}

// OrderActivities are the steps of CreateOrderWorkflow.
type OrderActivities struct {
	Booker Booker
}

// RouteOrder picks the carrier.
func (a *OrderActivities) RouteOrder(ctx context.Context, in OrderInput) (service.RouteResult, error) {
	org, err := a.Booker.Organization(ctx, in.ShipperSeqNum)
	if err != nil {
		return service.RouteResult{}, ToApplicationError(err)
	}
	route, err := a.Booker.Route(ctx, org, in.Request)
	if err != nil {
		return service.RouteResult{}, ToApplicationError(err)
	}
	activity.GetLogger(ctx).Info("order routed", "shipper", in.ShipperSeqNum, "carrier", route.Carrier.String())
	return route, nil
}

// CreateLabel buys the label from the routed carrier.
func (a *OrderActivities) CreateLabel(ctx context.Context, in LabelInput) (models.Order, error) {
	org, err := a.Booker.Organization(ctx, in.ShipperSeqNum)
	if err != nil {
		return models.Order{}, ToApplicationError(err)
	}
	order, err := a.Booker.CreateLabel(ctx, org, in.Request, in.Route, in.OrderID)
	return order, ToApplicationError(err)
}

// SaveOrder stores the order. A retry after a lost acknowledgement finds the
// row already present and succeeds.
func (a *OrderActivities) SaveOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if existing, err := a.Booker.GetOrder(ctx, order.ID); err == nil {
		return *existing, nil
	}
	if err := a.Booker.SaveOrder(ctx, order); err != nil {
		return models.Order{}, ToApplicationError(err)
	}
	return order, nil
}

// PublishOrderEvent emits order.created.
func (a *OrderActivities) PublishOrderEvent(ctx context.Context, order models.Order) error {
	return a.Booker.PublishOrderCreated(ctx, order)
}
