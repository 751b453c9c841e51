package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Reader is the subset of kafka.Reader the consumer loop uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a Handler over every message of a topic.
type Consumer struct {
	reader  Reader
	log     logrus.FieldLogger
	timeout time.Duration
	backoff time.Duration
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted so the message is delivered again.
type Handler func(ctx context.Context, key []byte, value []byte) error

// NewConsumer creates a group consumer. groupID lets several replicas split the partitions.
func NewConsumer(brokers []string, topic string, groupID string, log logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(r, log.WithFields(logrus.Fields{"topic": topic, "group": groupID}))
}

// NewConsumerWithReader allows injecting a test reader.
func NewConsumerWithReader(r Reader, log logrus.FieldLogger) *Consumer {
	return &Consumer{reader: r, log: log, timeout: 10 * time.Second, backoff: time.Second}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.log.Info("kafka consumer started")

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithError(err).Warn("error fetching message")
			sleep(ctx, c.backoff)
			continue
		}

		// each message gets a bounded time budget
		processCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = handler(processCtx, m.Key, m.Value)
		cancel()

		if err != nil {
			// not committed: Kafka redelivers after a rebalance or restart
			c.log.WithError(err).WithField("offset", m.Offset).Error("processing failed")
			sleep(ctx, c.backoff)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.WithError(err).WithField("offset", m.Offset).Error("failed to commit offset")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Close disconnects from the server.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
