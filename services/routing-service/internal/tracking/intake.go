package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
)

// QueuePublisher is satisfied by *rabbitmq.RabbitmqClient.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// QueueIntake accepts webhook tracking events and enqueues them for the
// reconciler. Only the shape is checked here.
type QueueIntake struct {
	publisher QueuePublisher
	queue     string
}

func NewQueueIntake(publisher QueuePublisher, queue string) *QueueIntake {
	return &QueueIntake{publisher: publisher, queue: queue}
}

func (q *QueueIntake) Submit(ctx context.Context, ev contracts.TrackingEvent) error {
	if strings.TrimSpace(ev.TrackingNumber) == "" || strings.TrimSpace(ev.Status) == "" {
		return fmt.Errorf("%w: tracking_number and status are required", domainErr.ErrInvalidInput)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode tracking event: %w", err)
	}
	if err := q.publisher.Publish(ctx, q.queue, body); err != nil {
		return fmt.Errorf("failed to enqueue tracking event: %w", err)
	}
	return nil
}
