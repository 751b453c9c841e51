// service/order.service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/integration"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/selection"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/tracking"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
	"github.com/Tanmoy095/ShipBroker/shared/kafka"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RateEngine is satisfied by *rating.Engine.
type RateEngine interface {
	ComputeRate(ctx context.Context, org *models.Organization, order models.OrderRequest) (models.Rate, error)
	ComputeRates(ctx context.Context, org *models.Organization, orders []models.OrderRequest) ([]models.Rate, error)
}

// Selector is satisfied by *selection.Engine.
type Selector interface {
	Select(ctx context.Context, org *models.Organization, order models.OrderRequest) (selection.Decision, bool, error)
}

// IntegrationLookup is satisfied by *integration.Registry.
type IntegrationLookup interface {
	Lookup(id carrier.ID) (integration.Integration, error)
}

// UsageRecorder is satisfied by *usage.Aggregator.
type UsageRecorder interface {
	Record(shipperSeqNum int64, c carrier.ID, at time.Time) bool
}

// RouteResult is the serializable outcome of carrier selection.
type RouteResult struct {
	Carrier  carrier.ID     `json:"carrier"`
	ZipZone  models.ZipZone `json:"zip_zone"`
	Tobacco  bool           `json:"tobacco"`
	Eligible []carrier.ID   `json:"eligible"`
}

// OrderService quotes, routes and books orders.
type OrderService struct {
	orgs         store.OrganizationStore
	orders       store.OrderStore
	rates        RateEngine
	selector     Selector
	integrations IntegrationLookup
	producer     kafka.Publisher // optional
	usage        UsageRecorder   // optional
	validate     *validator.Validate
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewOrderService(
	orgs store.OrganizationStore,
	orders store.OrderStore,
	rates RateEngine,
	selector Selector,
	integrations IntegrationLookup,
	producer kafka.Publisher,
	log logrus.FieldLogger,
) *OrderService {
	return &OrderService{
		orgs:         orgs,
		orders:       orders,
		rates:        rates,
		selector:     selector,
		integrations: integrations,
		producer:     producer,
		validate:     validator.New(),
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithUsage meters every stored order through r.
func (s *OrderService) WithUsage(r UsageRecorder) *OrderService {
	s.usage = r
	return s
}

// Organization resolves a shipper tenant.
func (s *OrderService) Organization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, shipperSeqNum)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", domainErr.ErrOrganizationNotFound, shipperSeqNum)
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// Validate checks the request shape and wraps failures in ErrInvalidInput.
func (s *OrderService) Validate(req models.OrderRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domainErr.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domainErr.ErrInvalidInput, strings.Join(msgs, "; "))
}

// Quote prices one order.
func (s *OrderService) Quote(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Rate, error) {
	if err := s.Validate(req); err != nil {
		return models.Rate{}, err
	}
	return s.rates.ComputeRate(ctx, org, req)
}

// QuoteBatch prices several orders of one shipper.
func (s *OrderService) QuoteBatch(ctx context.Context, org *models.Organization, reqs []models.OrderRequest) ([]models.Rate, error) {
	for i, req := range reqs {
		if err := s.Validate(req); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
	}
	return s.rates.ComputeRates(ctx, org, reqs)
}

// Route selects the carrier. Nothing routable is ErrUnroutable.
func (s *OrderService) Route(ctx context.Context, org *models.Organization, req models.OrderRequest) (RouteResult, error) {
	if err := s.Validate(req); err != nil {
		return RouteResult{}, err
	}
	d, found, err := s.selector.Select(ctx, org, req)
	if err != nil {
		return RouteResult{}, err
	}
	if !found {
		return RouteResult{}, fmt.Errorf("%w: shipper %d to %s", domainErr.ErrUnroutable, org.ShipperSeqNum, req.ToAddress.Zip)
	}
	return RouteResult{
		Carrier:  d.Carrier,
		ZipZone:  *d.ZipZone,
		Tobacco:  d.Tobacco == models.TobaccoRequired,
		Eligible: d.Facts.Eligible(),
	}, nil
}

// CreateLabel books the order with the routed carrier and returns the
// unsaved order carrying a fresh broker tracking number.
func (s *OrderService) CreateLabel(ctx context.Context, org *models.Organization, req models.OrderRequest, route RouteResult, orderID uuid.UUID) (models.Order, error) {
	in, err := s.integrations.Lookup(route.Carrier)
	if err != nil {
		return models.Order{}, err
	}
	seq, err := s.orders.NextOrderSequence(ctx)
	if err != nil {
		return models.Order{}, err
	}
	tn, err := tracking.Compose(tracking.Fields{ShipperSeq: org.ShipperSeqNum, Carrier: route.Carrier, Sequence: seq})
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to compose tracking number: %w", err)
	}

	zz := route.ZipZone
	label, err := in.CreateOrder(ctx, &zz, integration.OrderParams{
		OrderID:        orderID,
		TrackingNumber: tn,
		Reference:      req.Reference,
		ToAddress:      req.ToAddress,
		FromAddress:    req.FromAddress,
		Parcel:         req.Parcel,
		Tobacco:        route.Tobacco,
	}, org)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	return models.Order{
		ID:                    orderID,
		ShipperSeqNum:         org.ShipperSeqNum,
		Carrier:               route.Carrier,
		TrackingNumber:        tn,
		CarrierTrackingNumber: label.CarrierTrackingNumber,
		LabelURL:              label.LabelURL,
		Status:                models.OrderLabelCreated,
		Reference:             req.Reference,
		ToZip:                 req.ToAddress.Zip,
		FromZip:               req.FromAddress.Zip,
		Weight:                req.Parcel.Weight.Float64(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// SaveOrder persists a booked order.
func (s *OrderService) SaveOrder(ctx context.Context, order models.Order) error {
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return err
	}
	if s.usage != nil {
		s.usage.Record(order.ShipperSeqNum, order.Carrier, order.CreatedAt)
	}
	return nil
}

// PublishOrderCreated emits order.created keyed by order id.
func (s *OrderService) PublishOrderCreated(ctx context.Context, order models.Order) error {
	if s.producer == nil {
		return nil
	}
	event := contracts.Event{
		Event:      contracts.EventOrderCreated,
		OccurredAt: s.now(),
		Payload: contracts.OrderCreated{
			OrderID:               order.ID.String(),
			ShipperSeqNum:         order.ShipperSeqNum,
			Carrier:               order.Carrier.String(),
			TrackingNumber:        order.TrackingNumber,
			CarrierTrackingNumber: order.CarrierTrackingNumber,
			LabelURL:              order.LabelURL,
			ToZip:                 order.ToZip,
			Weight:                order.Weight,
		},
	}
	return s.producer.Publish(ctx, order.ID.String(), event)
}

// CreateOrder runs route, label, save and publish inline.
func (s *OrderService) CreateOrder(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Order, error) {
	route, err := s.Route(ctx, org, req)
	if err != nil {
		return models.Order{}, err
	}
	order, err := s.CreateLabel(ctx, org, req, route, uuid.New())
	if err != nil {
		return models.Order{}, err
	}
	if err := s.SaveOrder(ctx, order); err != nil {
		return models.Order{}, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"shipper":         org.ShipperSeqNum,
		"carrier":         order.Carrier.String(),
		"order_id":        order.ID,
		"tracking_number": order.TrackingNumber,
	})
	logger.Info("order created")
	if err := s.PublishOrderCreated(ctx, order); err != nil {
		// the order is booked and stored; downstream consumers can backfill
		logger.WithError(err).Error("failed to publish order.created")
	}
	return order, nil
}

// GetOrder loads an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domainErr.ErrOrderNotFound, id)
	}
	return o, err
}
