package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
	"github.com/Tanmoy095/ShipBroker/shared/kafka"
	"github.com/Tanmoy095/ShipBroker/shared/rabbitmq"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderStatusStore is the part of store.OrderStore the reconciler needs.
type OrderStatusStore interface {
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error)
}

// maxCASAttempts bounds retries when a concurrent event moved the order first.
const maxCASAttempts = 3

// Reconciler applies carrier tracking events to orders.
type Reconciler struct {
	orders   OrderStatusStore
	producer kafka.Publisher // optional
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewReconciler(orders OrderStatusStore, producer kafka.Publisher, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{orders: orders, producer: producer, log: log, now: time.Now}
}

// Apply moves the order forward to the event's status. It reports false for
// stale or duplicate events, which are not errors.
func (r *Reconciler) Apply(ctx context.Context, ev contracts.TrackingEvent) (bool, error) {
	fields, err := Decompose(ev.TrackingNumber)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domainErr.ErrInvalidInput, err)
	}
	next, err := models.ParseOrderStatus(ev.Status)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domainErr.ErrInvalidInput, err)
	}
	if ev.Carrier != "" {
		evCarrier, err := carrier.Parse(ev.Carrier)
		if err != nil || evCarrier != fields.Carrier {
			return false, fmt.Errorf("%w: event carrier %q does not match tracking number carrier %s",
				domainErr.ErrInvalidInput, ev.Carrier, fields.Carrier)
		}
	}

	logger := r.log.WithFields(logrus.Fields{
		"tracking_number": ev.TrackingNumber,
		"shipper":         fields.ShipperSeq,
		"carrier":         fields.Carrier.String(),
	})

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		order, err := r.orders.GetOrderByTrackingNumber(ctx, ev.TrackingNumber)
		if errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", domainErr.ErrOrderNotFound, ev.TrackingNumber)
		}
		if err != nil {
			return false, err
		}
		if order.ShipperSeqNum != fields.ShipperSeq || order.Carrier != fields.Carrier {
			return false, fmt.Errorf("%w: order %s does not match tracking number fields", domainErr.ErrInvalidState, order.ID)
		}
		if !order.Status.CanAdvanceTo(next) {
			logger.WithFields(logrus.Fields{"current": order.Status, "event": next}).Debug("ignoring stale tracking event")
			return false, nil
		}

		ok, err := r.orders.UpdateOrderStatus(ctx, order.ID, order.Status, next, r.now())
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}

		logger.WithFields(logrus.Fields{"order_id": order.ID, "from": order.Status, "to": next}).Info("order status advanced")
		if r.producer != nil {
			event := contracts.Event{
				Event:      contracts.EventOrderTrackingUpdated,
				OccurredAt: r.now(),
				Payload: contracts.TrackingUpdated{
					OrderID:        order.ID.String(),
					ShipperSeqNum:  order.ShipperSeqNum,
					TrackingNumber: order.TrackingNumber,
					PreviousStatus: string(order.Status),
					Status:         string(next),
				},
			}
			if err := r.producer.Publish(ctx, order.ID.String(), event); err != nil {
				// the status is already stored, a redelivery would be ignored as stale
				logger.WithError(err).Error("failed to publish tracking update")
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: order %s kept changing", domainErr.ErrInvalidState, ev.TrackingNumber)
}

func (r *Reconciler) handle(ctx context.Context, body []byte) error {
	var ev contracts.TrackingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("%w: malformed tracking event: %v", domainErr.ErrInvalidInput, err))
	}
	_, err := r.Apply(ctx, ev)
	if errors.Is(err, domainErr.ErrInvalidInput) || errors.Is(err, domainErr.ErrOrderNotFound) || errors.Is(err, domainErr.ErrInvalidState) {
		return rabbitmq.Permanent(err)
	}
	return err
}

// HandleDelivery is the RabbitMQ handler for the tracking queue.
func (r *Reconciler) HandleDelivery(ctx context.Context, body []byte) error {
	return r.handle(ctx, body)
}

// HandleMessage is the Kafka handler for a tracking topic. Events that can
// never succeed are logged and committed so they do not block the partition.
func (r *Reconciler) HandleMessage(ctx context.Context, key, value []byte) error {
	err := r.handle(ctx, value)
	if rabbitmq.IsPermanent(err) {
		r.log.WithError(err).WithField("key", string(key)).Warn("dropping tracking event")
		return nil
	}
	return err
}
