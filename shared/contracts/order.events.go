package contracts

import "time"

// Event names published on the order events topic.
const (
	EventOrderCreated         = "order.created"
	EventOrderTrackingUpdated = "order.tracking_updated"
)

// Event is the envelope every producer writes. Consumers switch on Event
// and decode Payload accordingly.
type Event struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// OrderCreated is the payload of order.created.
type OrderCreated struct {
	OrderID               string  `json:"order_id"`
	ShipperSeqNum         int64   `json:"shipper_seq_num"`
	Carrier               string  `json:"carrier"`
	TrackingNumber        string  `json:"tracking_number"`
	CarrierTrackingNumber string  `json:"carrier_tracking_number"`
	LabelURL              string  `json:"label_url"`
	ToZip                 string  `json:"to_zip"`
	Weight                float64 `json:"weight"`
}

// TrackingUpdated is the payload of order.tracking_updated.
type TrackingUpdated struct {
	OrderID        string `json:"order_id"`
	ShipperSeqNum  int64  `json:"shipper_seq_num"`
	TrackingNumber string `json:"tracking_number"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// TrackingEvent is an inbound carrier-aggregator tracking webhook payload.
type TrackingEvent struct {
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}
