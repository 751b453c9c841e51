package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/google/uuid"
)

// ControlledSubstanceTobacco is the only controlled substance the broker routes.
const ControlledSubstanceTobacco = "tobacco"

// Address is a postal address; only Zip takes part in routing and rating.
type Address struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip" validate:"required,min=3"`
	Phone   string `json:"phone,omitempty"`
}

// Parcel limits. The validate tags below repeat them.
const (
	MaxParcelWeight    = 1000 // pounds
	MaxParcelDimension = 500  // inches
)

// Parcel dimensions are inches, weight is pounds.
type Parcel struct {
	Length Numeric `json:"length" validate:"gte=0,lte=500"`
	Width  Numeric `json:"width" validate:"gte=0,lte=500"`
	Height Numeric `json:"height" validate:"gte=0,lte=500"`
	Weight Numeric `json:"weight" validate:"gt=0,lte=1000"`
}

// CheckBounds rejects any field that is not finite or lies outside [0, max].
func (p Parcel) CheckBounds() error {
	for _, f := range []struct {
		name  string
		value Numeric
		max   float64
	}{
		{"length", p.Length, MaxParcelDimension},
		{"width", p.Width, MaxParcelDimension},
		{"height", p.Height, MaxParcelDimension},
		{"weight", p.Weight, MaxParcelWeight},
	} {
		v := f.value.Float64()
		if math.IsNaN(v) || v < 0 || v > f.max {
			return fmt.Errorf("%w: parcel %s %v outside [0, %v]", domainErr.ErrInvalidInput, f.name, v, f.max)
		}
	}
	return nil
}

// OrderRequest is what a shipper submits for quoting, routing and label purchase.
type OrderRequest struct {
	Reference           string  `json:"reference,omitempty"`
	ToAddress           Address `json:"to_address"`
	FromAddress         Address `json:"from_address"`
	Parcel              Parcel  `json:"parcel"`
	ControlledSubstance string  `json:"controlled_substance,omitempty" validate:"omitempty,oneof=tobacco"`
}

// IsTobacco reports whether the order declares tobacco contents.
func (r OrderRequest) IsTobacco() bool {
	return r.ControlledSubstance == ControlledSubstanceTobacco
}

// OrderStatus follows the broker's tracking lifecycle.
type OrderStatus string

const (
	OrderLabelCreated   OrderStatus = "LABEL_CREATED"
	OrderInTransit      OrderStatus = "IN_TRANSIT"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderException      OrderStatus = "EXCEPTION"
	OrderReturned       OrderStatus = "RETURNED"
)

var statusRank = map[OrderStatus]int{
	OrderLabelCreated:   1,
	OrderInTransit:      2,
	OrderOutForDelivery: 3,
	OrderDelivered:      4,
}

// ParseOrderStatus accepts the status names case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case OrderLabelCreated, OrderInTransit, OrderOutForDelivery, OrderDelivered, OrderException, OrderReturned:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Terminal statuses accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderException || s == OrderReturned
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Repeats and regressions are not.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	if next == OrderException || next == OrderReturned {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Order is a routed shipment with a purchased label.
type Order struct {
	ID                    uuid.UUID   `json:"id"`
	ShipperSeqNum         int64       `json:"shipper_seq_num"`
	Carrier               carrier.ID  `json:"carrier"`
	TrackingNumber        string      `json:"tracking_number"`         // broker tracking number
	CarrierTrackingNumber string      `json:"carrier_tracking_number"` // issued by the carrier
	LabelURL              string      `json:"label_url"`
	Status                OrderStatus `json:"status"`
	Reference             string      `json:"reference,omitempty"`
	ToZip                 string      `json:"to_zip"`
	FromZip               string      `json:"from_zip"`
	Weight                float64     `json:"weight"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}
