package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/shared/contracts"
)

type queueRecorder struct {
	queues []string
	bodies [][]byte
	err    error
}

func (q *queueRecorder) Publish(ctx context.Context, queueName string, body []byte) error {
	if q.err != nil {
		return q.err
	}
	q.queues = append(q.queues, queueName)
	q.bodies = append(q.bodies, body)
	return nil
}

func TestQueueIntakeSubmit(t *testing.T) {
	rec := &queueRecorder{}
	intake := NewQueueIntake(rec, "tracking-events")

	ev := contracts.TrackingEvent{TrackingNumber: "SB0000000000001", Status: "IN_TRANSIT"}
	if err := intake.Submit(context.Background(), ev); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(rec.bodies) != 1 || rec.queues[0] != "tracking-events" {
		t.Fatalf("published %d messages to %v", len(rec.bodies), rec.queues)
	}
	var got contracts.TrackingEvent
	if err := json.Unmarshal(rec.bodies[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.TrackingNumber != ev.TrackingNumber || got.Status != ev.Status {
		t.Fatalf("got %+v", got)
	}
}

func TestQueueIntakeRejectsIncompleteEvents(t *testing.T) {
	rec := &queueRecorder{}
	intake := NewQueueIntake(rec, "tracking-events")

	for _, ev := range []contracts.TrackingEvent{
		{Status: "DELIVERED"},
		{TrackingNumber: "SB0000000000001", Status: "  "},
	} {
		if err := intake.Submit(context.Background(), ev); !errors.Is(err, domainErr.ErrInvalidInput) {
			t.Errorf("%+v: expected invalid input, got %v", ev, err)
		}
	}
	if len(rec.bodies) != 0 {
		t.Fatalf("nothing should be published, got %d", len(rec.bodies))
	}
}

func TestQueueIntakeBrokerFailure(t *testing.T) {
	broker := errors.New("channel closed")
	intake := NewQueueIntake(&queueRecorder{err: broker}, "tracking-events")
	err := intake.Submit(context.Background(), contracts.TrackingEvent{TrackingNumber: "SB0000000000001", Status: "DELIVERED"})
	if !errors.Is(err, broker) {
		t.Fatalf("expected broker error, got %v", err)
	}
}
