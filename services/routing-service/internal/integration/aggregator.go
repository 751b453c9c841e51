package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/spf13/cast"
)

// AggregatorIntegration buys labels for one carrier through a carrier-aggregator API.
type AggregatorIntegration struct {
	carrier    carrier.ID
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAggregatorIntegration creates a client for one carrier.
func NewAggregatorIntegration(id carrier.ID, baseURL, token string) *AggregatorIntegration {
	return &AggregatorIntegration{
		carrier: id,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Timeout prevents hanging label calls
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewAggregatorRegistry registers an aggregator client for every enabled carrier.
func NewAggregatorRegistry(baseURL, token string) (*Registry, error) {
	m := make(map[carrier.ID]Integration)
	for _, id := range carrier.Enabled() {
		m[id] = NewAggregatorIntegration(id, baseURL, token)
	}
	return NewRegistry(m)
}

type shipmentRequest struct {
	Carrier        string           `json:"carrier"`
	CarrierAccount string           `json:"carrier_account,omitempty"`
	ServiceLevel   string           `json:"servicelevel_token,omitempty"`
	Metadata       string           `json:"metadata"`
	AddressFrom    models.Address   `json:"address_from"`
	AddressTo      models.Address   `json:"address_to"`
	Parcels        []map[string]any `json:"parcels"`
	Extra          map[string]any   `json:"extra,omitempty"`
}

type shipmentResponse struct {
	ObjectID       string `json:"object_id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
	Status         string `json:"status"`
	Messages       []struct {
		Text string `json:"text"`
	} `json:"messages"`
}

func (a *AggregatorIntegration) CreateOrder(ctx context.Context, zipZone *models.ZipZone, params OrderParams, org *models.Organization) (LabelResult, error) {
	// per-carrier account and service level live on the routing rule
	opts := map[string]any{}
	if zipZone != nil && zipZone.Options != nil {
		opts = zipZone.Options
	}

	reqBody := shipmentRequest{
		Carrier:        a.carrier.String(),
		CarrierAccount: cast.ToString(opts["carrier_account"]),
		ServiceLevel:   cast.ToString(opts["service_level"]),
		Metadata:       params.TrackingNumber,
		AddressFrom:    params.FromAddress,
		AddressTo:      params.ToAddress,
		Parcels: []map[string]any{
			{
				"length":        formatDim(params.Parcel.Length),
				"width":         formatDim(params.Parcel.Width),
				"height":        formatDim(params.Parcel.Height),
				"distance_unit": "in",
				"weight":        formatDim(params.Parcel.Weight),
				"mass_unit":     "lb",
			},
		},
	}
	if params.Tobacco {
		reqBody.Extra = map[string]any{
			"contains_tobacco":      true,
			"ship_to_business_only": org != nil && org.Settings.TobaccoShipToBusiness,
		}
	}
	if ip := cast.ToString(opts["injection_point"]); ip != "" {
		if reqBody.Extra == nil {
			reqBody.Extra = map[string]any{}
		}
		reqBody.Extra["injection_point"] = ip
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return LabelResult{}, fmt.Errorf("failed to marshal %s shipment request: %w", a.carrier, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/shipments", bytes.NewReader(payload))
	if err != nil {
		return LabelResult{}, fmt.Errorf("failed to create %s shipment request: %w", a.carrier, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", params.OrderID.String())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return LabelResult{}, fmt.Errorf("failed to call aggregator for %s: %w", a.carrier, err)
	}
	defer resp.Body.Close()

	var out shipmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LabelResult{}, fmt.Errorf("failed to parse aggregator response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(out.Messages) > 0 {
			msg = out.Messages[0].Text
		}
		return LabelResult{}, fmt.Errorf("aggregator rejected %s shipment: %s", a.carrier, msg)
	}
	if out.TrackingNumber == "" {
		return LabelResult{}, fmt.Errorf("aggregator returned no tracking number for %s (status %q)", a.carrier, out.Status)
	}
	return LabelResult{CarrierTrackingNumber: out.TrackingNumber, LabelURL: out.LabelURL}, nil
}

func formatDim(n models.Numeric) string {
	return strconv.FormatFloat(n.Float64(), 'f', 2, 64)
}
