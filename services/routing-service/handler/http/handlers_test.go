package httphandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/service"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// MockBackend implements every handler dependency through function fields.
type MockBackend struct {
	QuoteFunc  func(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Rate, error)
	RouteFunc  func(ctx context.Context, org *models.Organization, req models.OrderRequest) (service.RouteResult, error)
	CreateFunc func(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Order, error)
	GetFunc    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Submitted  []contracts.TrackingEvent
	Usage      []store.UsageRecord
	UsageAsked [2]int
	Resolved   []int64
}

func (m *MockBackend) Organization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error) {
	m.Resolved = append(m.Resolved, shipperSeqNum)
	if shipperSeqNum != 42 {
		return nil, fmt.Errorf("%w: %d", domainErr.ErrOrganizationNotFound, shipperSeqNum)
	}
	return &models.Organization{ShipperSeqNum: 42}, nil
}

func (m *MockBackend) Quote(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Rate, error) {
	return m.QuoteFunc(ctx, org, req)
}

func (m *MockBackend) QuoteBatch(ctx context.Context, org *models.Organization, reqs []models.OrderRequest) ([]models.Rate, error) {
	out := make([]models.Rate, 0, len(reqs))
	for _, r := range reqs {
		rate, err := m.QuoteFunc(ctx, org, r)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, nil
}

func (m *MockBackend) Route(ctx context.Context, org *models.Organization, req models.OrderRequest) (service.RouteResult, error) {
	return m.RouteFunc(ctx, org, req)
}

func (m *MockBackend) CreateOrder(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Order, error) {
	return m.CreateFunc(ctx, org, req)
}

func (m *MockBackend) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockBackend) Submit(ctx context.Context, ev contracts.TrackingEvent) error {
	if ev.TrackingNumber == "" {
		return domainErr.ErrInvalidInput
	}
	m.Submitted = append(m.Submitted, ev)
	return nil
}

func (m *MockBackend) GetUsage(ctx context.Context, shipperSeqNum int64, year, month int) ([]store.UsageRecord, error) {
	m.UsageAsked = [2]int{year, month}
	return m.Usage, nil
}

func setupRouter(m *MockBackend) http.Handler {
	log, _ := logtest.NewNullLogger()
	h := NewHandler(Deps{Orgs: m, Quotes: m, Router: m, Creator: m, Reader: m, Tracking: m, Usage: m, Log: log})
	return NewRouter(h, nil)
}

func do(t *testing.T, r http.Handler, method, path, shipper string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if shipper != "" {
		req.Header.Set(ShipperHeader, shipper)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const orderJSON = `{"to_address":{"zip":"10001"},"from_address":{"zip":"90210"},"parcel":{"weight":"2.5","length":10,"width":10,"height":10}}`

func TestOrganizationHeader(t *testing.T) {
	r := setupRouter(&MockBackend{QuoteFunc: func(context.Context, *models.Organization, models.OrderRequest) (models.Rate, error) {
		return models.Rate{}, nil
	}})

	tests := []struct {
		name    string
		shipper string
		want    int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not a number", "abc", http.StatusBadRequest},
		{"unknown shipper", "7", http.StatusNotFound},
		{"known shipper", "42", http.StatusOK},
		{"zero padded", "0042", http.StatusOK},
		{"octal looking", "052", http.StatusNotFound},
		{"hex", "0x2A", http.StatusBadRequest},
		{"binary", "0b101010", http.StatusBadRequest},
		{"underscores", "4_2", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/rates", tc.shipper, orderJSON)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestOrganizationHeaderIsDecimal(t *testing.T) {
	m := &MockBackend{QuoteFunc: func(context.Context, *models.Organization, models.OrderRequest) (models.Rate, error) {
		return models.Rate{}, nil
	}}
	r := setupRouter(m)

	do(t, r, http.MethodPost, "/api/v1/rates", "010", orderJSON)
	do(t, r, http.MethodPost, "/api/v1/rates", "052", orderJSON)
	if len(m.Resolved) != 2 || m.Resolved[0] != 10 || m.Resolved[1] != 52 {
		t.Fatalf("resolved shippers %v, want [10 52]", m.Resolved)
	}
}

func TestQuoteRate(t *testing.T) {
	var got models.OrderRequest
	cost, dollar, zone := "12.40", "$12.40", 5
	r := setupRouter(&MockBackend{QuoteFunc: func(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Rate, error) {
		got = req
		return models.Rate{Cost: &cost, DollarCost: &dollar, BillableWeight: 7, Zone: &zone, UseDimWeight: true}, nil
	}})

	w := do(t, r, http.MethodPost, "/api/v1/rates", "42", orderJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got.Parcel.Weight != 2.5 {
		t.Fatalf("string weight not coerced, got %v", got.Parcel.Weight)
	}
	var rate map[string]any
	json.Unmarshal(w.Body.Bytes(), &rate)
	if rate["dollar_cost"] != "$12.40" || rate["billable_weight"] != float64(7) || rate["use_dim_weight"] != true {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestQuoteRatesBatch(t *testing.T) {
	r := setupRouter(&MockBackend{QuoteFunc: func(context.Context, *models.Organization, models.OrderRequest) (models.Rate, error) {
		return models.Rate{BillableWeight: 3}, nil
	}})
	w := do(t, r, http.MethodPost, "/api/v1/rates/batch", "42", `{"orders":[`+orderJSON+`,`+orderJSON+`]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Rates []models.Rate `json:"rates"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Rates) != 2 {
		t.Fatalf("got %d rates", len(body.Rates))
	}
}

func TestSelectCarrier(t *testing.T) {
	routable := true
	r := setupRouter(&MockBackend{RouteFunc: func(context.Context, *models.Organization, models.OrderRequest) (service.RouteResult, error) {
		if !routable {
			return service.RouteResult{}, domainErr.ErrUnroutable
		}
		return service.RouteResult{Carrier: carrier.OnTrac, ZipZone: models.ZipZone{Carrier: carrier.OnTrac, Zipcode: "10001"}, Eligible: []carrier.ID{carrier.UPS, carrier.OnTrac}}, nil
	}})

	w := do(t, r, http.MethodPost, "/api/v1/carrier-selection", "42", orderJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["carrier"] != "ontrac" {
		t.Fatalf("carrier = %v", body["carrier"])
	}

	routable = false
	w = do(t, r, http.MethodPost, "/api/v1/carrier-selection", "42", orderJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("unroutable should still be 200, got %d", w.Code)
	}
	body = nil
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["carrier"] != nil {
		t.Fatalf("carrier should be null, got %v", body["carrier"])
	}
}

func TestCreateOrderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("%w: weight", domainErr.ErrInvalidInput), http.StatusBadRequest},
		{"unroutable", domainErr.ErrUnroutable, http.StatusUnprocessableEntity},
		{"no integration", domainErr.ErrNoIntegration, http.StatusNotImplemented},
		{"malformed reference data", fmt.Errorf("%w: row 902 entry 17 %q", domainErr.ErrMalformedZoneEntry, "x"), http.StatusInternalServerError},
		{"database", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(&MockBackend{CreateFunc: func(context.Context, *models.Organization, models.OrderRequest) (models.Order, error) {
				return models.Order{}, tc.err
			}})
			w := do(t, r, http.MethodPost, "/api/v1/orders", "42", orderJSON)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusInternalServerError && !bytes.Contains(w.Body.Bytes(), []byte(`"internal error"`)) {
				t.Fatalf("internal error text leaked: %s", w.Body.String())
			}
		})
	}
}

func TestCreateOrderMalformedBody(t *testing.T) {
	r := setupRouter(&MockBackend{})
	w := do(t, r, http.MethodPost, "/api/v1/orders", "42", `{"parcel":{"weight":true}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetOrderIsTenantScoped(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()
	r := setupRouter(&MockBackend{GetFunc: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
		switch id {
		case mine:
			return &models.Order{ID: id, ShipperSeqNum: 42}, nil
		case theirs:
			return &models.Order{ID: id, ShipperSeqNum: 43}, nil
		}
		return nil, domainErr.ErrOrderNotFound
	}})

	if w := do(t, r, http.MethodGet, "/api/v1/orders/"+mine.String(), "42", nil); w.Code != http.StatusOK {
		t.Fatalf("own order: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/orders/"+theirs.String(), "42", nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign order: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/orders/not-a-uuid", "42", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
}

func TestTrackingWebhook(t *testing.T) {
	m := &MockBackend{}
	r := setupRouter(m)

	w := do(t, r, http.MethodPost, "/api/v1/webhooks/tracking", "", contracts.TrackingEvent{TrackingNumber: "SB0000000000001", Status: "IN_TRANSIT"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(m.Submitted) != 1 {
		t.Fatalf("submitted %d events", len(m.Submitted))
	}
	if w := do(t, r, http.MethodPost, "/api/v1/webhooks/tracking", "", contracts.TrackingEvent{Status: "IN_TRANSIT"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing tracking number: %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	if w := do(t, setupRouter(&MockBackend{}), http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetUsage(t *testing.T) {
	m := &MockBackend{Usage: []store.UsageRecord{
		{UsageKey: store.UsageKey{ShipperSeqNum: 42, Carrier: carrier.FedEx, Year: 2026, Month: 9}, Labels: 2},
		{UsageKey: store.UsageKey{ShipperSeqNum: 42, Carrier: carrier.UPS, Year: 2026, Month: 9}, Labels: 5},
	}}
	r := setupRouter(m)

	w := do(t, r, http.MethodGet, "/api/v1/usage?year=2026&month=9", "42", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Year   int              `json:"year"`
		Month  int              `json:"month"`
		Labels map[string]int64 `json:"labels"`
		Total  int64            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if m.UsageAsked != [2]int{2026, 9} {
		t.Errorf("asked for %v", m.UsageAsked)
	}
	if body.Total != 7 || body.Labels["ups"] != 5 || body.Labels["fedex"] != 2 {
		t.Errorf("unexpected body %+v", body)
	}

	if w := do(t, r, http.MethodGet, "/api/v1/usage?year=2026&month=011", "42", nil); w.Code != http.StatusOK || m.UsageAsked != [2]int{2026, 11} {
		t.Errorf("month 011: status %d, read as %v", w.Code, m.UsageAsked)
	}

	for _, q := range []string{"?month=13", "?month=0", "?year=abc", "?month=0x9", "?month=0b1", "?year=2_026"} {
		if w := do(t, r, http.MethodGet, "/api/v1/usage"+q, "42", nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, w.Code)
		}
	}
	if w := do(t, r, http.MethodGet, "/api/v1/usage", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("without shipper: status = %d", w.Code)
	}
}
