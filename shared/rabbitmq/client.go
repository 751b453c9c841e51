package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitmqClient struct {
	//conn is a tcp connection to rabbitmq server
	conn *amqp.Connection
	chn  *amqp.Channel
}

func NewClient(url string) (*RabbitmqClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	//Open a channel. This open a logical session inside the connection.
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &RabbitmqClient{
		conn: conn,
		chn:  chn,
	}, nil
}

// Close cleans up
func (r *RabbitmqClient) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// CreateQueue declares a durable queue
func (r *RabbitmqClient) CreateQueue(queueName string) error {
	_, err := r.chn.QueueDeclare(
		queueName, //name of queue
		true,      //durable
		false,     //delete when unused
		false,     //exclusive
		false,     //no-wait
		nil,       //arguments
	)
	return err
}

// Publish sends a persistent JSON message to a specific queue
func (r *RabbitmqClient) Publish(ctx context.Context, queueName string, body []byte) error {
	return r.chn.PublishWithContext(
		ctx,
		"",        //exchange
		queueName, //routing key (queue name)
		false,     //mandatory
		false,     //immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume starts listening on a queue with manual acks.
// prefetch bounds the number of unacked deliveries in flight.
func (r *RabbitmqClient) Consume(queueName string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := r.chn.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := r.chn.Consume(
		queueName, //queue
		"",        //consumer
		false,     //auto-ack
		false,     //exclusive
		false,     //no-local
		false,     //no-wait
		nil,       //args
	)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// Handler processes one delivery body.
type Handler func(ctx context.Context, body []byte) error

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks an error that redelivery cannot fix. Such deliveries are
// rejected without requeue instead of being retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// RunConsumer feeds deliveries to handler until ctx is cancelled or the
// channel closes. Success acks, permanent errors reject, anything else requeues.
func RunConsumer(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler, timeout time.Duration, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}
			hctx, cancel := context.WithTimeout(ctx, timeout)
			err := handler(hctx, d.Body)
			cancel()

			entry := log.WithField("delivery_tag", d.DeliveryTag)
			switch {
			case err == nil:
				if ackErr := d.Ack(false); ackErr != nil {
					entry.WithError(ackErr).Error("ack failed")
				}
			case IsPermanent(err):
				entry.WithError(err).Warn("dropping message")
				if nackErr := d.Reject(false); nackErr != nil {
					entry.WithError(nackErr).Error("reject failed")
				}
			default:
				entry.WithError(err).Error("processing failed, requeueing")
				if nackErr := d.Nack(false, true); nackErr != nil {
					entry.WithError(nackErr).Error("nack failed")
				}
			}
		}
	}
}
