package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/integration"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/selection"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/tracking"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- MOCKS ---

type MockSelector struct {
	mock.Mock
}

func (m *MockSelector) Select(ctx context.Context, org *models.Organization, order models.OrderRequest) (selection.Decision, bool, error) {
	args := m.Called(ctx, org, order)
	return args.Get(0).(selection.Decision), args.Bool(1), args.Error(2)
}

type MockIntegration struct {
	mock.Mock
}

func (m *MockIntegration) CreateOrder(ctx context.Context, zipZone *models.ZipZone, params integration.OrderParams, org *models.Organization) (integration.LabelResult, error) {
	args := m.Called(ctx, zipZone, params, org)
	return args.Get(0).(integration.LabelResult), args.Error(1)
}

type MockRateEngine struct {
	rate  models.Rate
	calls int
}

func (m *MockRateEngine) ComputeRate(ctx context.Context, org *models.Organization, order models.OrderRequest) (models.Rate, error) {
	m.calls++
	return m.rate, nil
}

func (m *MockRateEngine) ComputeRates(ctx context.Context, org *models.Organization, orders []models.OrderRequest) ([]models.Rate, error) {
	out := make([]models.Rate, len(orders))
	for i := range orders {
		m.calls++
		out[i] = m.rate
	}
	return out, nil
}

type MockPublisher struct {
	Keys   []string
	Events []contracts.Event
	Err    error
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	m.Keys = append(m.Keys, key)
	m.Events = append(m.Events, value.(contracts.Event))
	return m.Err
}

func (m *MockPublisher) Close() error { return nil }

type MockUsage struct {
	Shippers []int64
	Carriers []carrier.ID
}

func (m *MockUsage) Record(shipperSeqNum int64, c carrier.ID, at time.Time) bool {
	m.Shippers = append(m.Shippers, shipperSeqNum)
	m.Carriers = append(m.Carriers, c)
	return true
}

// --- HELPERS ---

type fixture struct {
	svc      *OrderService
	store    *store.MemoryStore
	selector *MockSelector
	ups      *MockIntegration
	rates    *MockRateEngine
	pub      *MockPublisher
	usage    *MockUsage
	org      *models.Organization
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	cost := "7.25"
	org := models.Organization{ShipperSeqNum: 42, Name: "Acme", TerminalProviderOrder: []carrier.ID{carrier.UPS}}
	require.NoError(t, s.PutOrganization(context.Background(), org))

	ups := &MockIntegration{}
	reg, err := integration.NewRegistry(map[carrier.ID]integration.Integration{carrier.UPS: ups})
	require.NoError(t, err)

	f := &fixture{
		store:    s,
		selector: &MockSelector{},
		ups:      ups,
		rates:    &MockRateEngine{rate: models.Rate{Cost: &cost}},
		pub:      &MockPublisher{},
		usage:    &MockUsage{},
		org:      &org,
	}
	log, _ := logtest.NewNullLogger()
	f.svc = NewOrderService(s, s, f.rates, f.selector, reg, f.pub, log).WithUsage(f.usage)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func validRequest() models.OrderRequest {
	return models.OrderRequest{
		Reference:   "PO-1",
		ToAddress:   models.Address{Zip: "10001"},
		FromAddress: models.Address{Zip: "90210"},
		Parcel:      models.Parcel{Length: 10, Width: 8, Height: 4, Weight: 2},
	}
}

func upsDecision() selection.Decision {
	var facts selection.FactSet
	zz := &models.ZipZone{ID: 9, Carrier: carrier.UPS, Zipcode: "10001", MaxWeight: 70, Options: map[string]any{"carrier_account": "acct"}}
	facts[carrier.UPS] = zz
	return selection.Decision{Carrier: carrier.UPS, ZipZone: zz, Facts: facts}
}

// --- TESTS ---

func TestOrganizationNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Organization(context.Background(), 7)
	assert.ErrorIs(t, err, domainErr.ErrOrganizationNotFound)

	org, err := f.svc.Organization(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*models.OrderRequest)
		ok     bool
	}{
		{"valid", func(*models.OrderRequest) {}, true},
		{"tobacco", func(r *models.OrderRequest) { r.ControlledSubstance = "tobacco" }, true},
		{"missing destination zip", func(r *models.OrderRequest) { r.ToAddress.Zip = "" }, false},
		{"short origin zip", func(r *models.OrderRequest) { r.FromAddress.Zip = "90" }, false},
		{"zero weight", func(r *models.OrderRequest) { r.Parcel.Weight = 0 }, false},
		{"negative dimension", func(r *models.OrderRequest) { r.Parcel.Height = -1 }, false},
		{"weight at limit", func(r *models.OrderRequest) { r.Parcel.Weight = models.MaxParcelWeight }, true},
		{"huge weight", func(r *models.OrderRequest) { r.Parcel.Weight = 1e30 }, false},
		{"infinite weight", func(r *models.OrderRequest) { r.Parcel.Weight = models.Numeric(math.Inf(1)) }, false},
		{"oversized length", func(r *models.OrderRequest) { r.Parcel.Length = models.MaxParcelDimension + 1 }, false},
		{"unknown controlled substance", func(r *models.OrderRequest) { r.ControlledSubstance = "alcohol" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := f.svc.Validate(req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainErr.ErrInvalidInput)
			}
		})
	}
}

func TestQuoteValidatesBeforeRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rate, err := f.svc.Quote(ctx, f.org, validRequest())
	require.NoError(t, err)
	require.NotNil(t, rate.Cost)
	assert.Equal(t, "7.25", *rate.Cost)

	bad := validRequest()
	bad.Parcel.Weight = 0
	_, err = f.svc.QuoteBatch(ctx, f.org, []models.OrderRequest{validRequest(), bad})
	assert.ErrorIs(t, err, domainErr.ErrInvalidInput)
	assert.Equal(t, 1, f.rates.calls, "batch must not be rated when any order is invalid")
}

func TestRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()

	f.selector.On("Select", ctx, f.org, req).Return(upsDecision(), true, nil).Once()
	route, err := f.svc.Route(ctx, f.org, req)
	require.NoError(t, err)
	assert.Equal(t, carrier.UPS, route.Carrier)
	assert.Equal(t, int64(9), route.ZipZone.ID)
	assert.Equal(t, []carrier.ID{carrier.UPS}, route.Eligible)
	assert.False(t, route.Tobacco)

	f.selector.On("Select", ctx, f.org, req).Return(selection.Decision{}, false, nil).Once()
	_, err = f.svc.Route(ctx, f.org, req)
	assert.ErrorIs(t, err, domainErr.ErrUnroutable)
	f.selector.AssertExpectations(t)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()

	f.selector.On("Select", ctx, f.org, req).Return(upsDecision(), true, nil)
	f.ups.On("CreateOrder", ctx, mock.AnythingOfType("*models.ZipZone"), mock.MatchedBy(func(p integration.OrderParams) bool {
		return p.Reference == "PO-1" && p.TrackingNumber != ""
	}), f.org).Return(integration.LabelResult{CarrierTrackingNumber: "1Z999", LabelURL: "https://labels/1Z999.pdf"}, nil)

	order, err := f.svc.CreateOrder(ctx, f.org, req)
	require.NoError(t, err)
	f.ups.AssertExpectations(t)

	assert.Equal(t, models.OrderLabelCreated, order.Status)
	assert.Equal(t, "1Z999", order.CarrierTrackingNumber)
	fields, err := tracking.Decompose(order.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(42), fields.ShipperSeq)
	assert.Equal(t, carrier.UPS, fields.Carrier)

	stored, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TrackingNumber, stored.TrackingNumber)

	require.Len(t, f.pub.Events, 1)
	assert.Equal(t, contracts.EventOrderCreated, f.pub.Events[0].Event)
	assert.Equal(t, order.ID.String(), f.pub.Keys[0])

	assert.Equal(t, []int64{42}, f.usage.Shippers)
	assert.Equal(t, []carrier.ID{carrier.UPS}, f.usage.Carriers)
}

func TestCreateOrderSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.pub.Err = errors.New("broker down")
	ctx := context.Background()
	req := validRequest()

	f.selector.On("Select", ctx, f.org, req).Return(upsDecision(), true, nil)
	f.ups.On("CreateOrder", ctx, mock.Anything, mock.Anything, f.org).Return(integration.LabelResult{CarrierTrackingNumber: "1Z1"}, nil)

	order, err := f.svc.CreateOrder(ctx, f.org, req)
	require.NoError(t, err)
	_, err = f.svc.GetOrder(ctx, order.ID)
	assert.NoError(t, err)
}

func TestCreateOrderCarrierFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := validRequest()

	f.selector.On("Select", ctx, f.org, req).Return(upsDecision(), true, nil)
	f.ups.On("CreateOrder", ctx, mock.Anything, mock.Anything, f.org).Return(integration.LabelResult{}, errors.New("carrier rejected"))

	_, err := f.svc.CreateOrder(ctx, f.org, req)
	assert.Error(t, err)
	assert.Empty(t, f.pub.Events)
	assert.Empty(t, f.usage.Shippers)
}

func TestCreateLabelWithoutIntegration(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateLabel(context.Background(), f.org, validRequest(), RouteResult{Carrier: carrier.FedEx}, uuid.New())
	assert.ErrorIs(t, err, domainErr.ErrNoIntegration)
}

func TestGetOrderNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainErr.ErrOrderNotFound)
}
