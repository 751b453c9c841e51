package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/tracking"
	"github.com/Tanmoy095/ShipBroker/shared/kafka"
	"github.com/Tanmoy095/ShipBroker/shared/rabbitmq"
	"github.com/spf13/cobra"
)

func trackingConsumerCmd(configFile *string) *cobra.Command {
	var (
		source   string
		topic    string
		group    string
		prefetch int
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tracking-consumer",
		Short: "Apply carrier tracking events to orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			reconciler := tracking.NewReconciler(a.store, a.producer, a.log)

			switch source {
			case "rabbitmq":
				rmq, err := rabbitmq.NewClient(a.cfg.GetRabbitMQURL())
				if err != nil {
					return err
				}
				a.closers = append(a.closers, rmq.Close)
				if err := rmq.CreateQueue(a.cfg.TRACKING_QUEUE); err != nil {
					return err
				}
				deliveries, err := rmq.Consume(a.cfg.TRACKING_QUEUE, prefetch)
				if err != nil {
					return err
				}
				a.log.WithField("queue", a.cfg.TRACKING_QUEUE).Info("tracking consumer started")
				rabbitmq.RunConsumer(ctx, deliveries, reconciler.HandleDelivery, timeout, a.log)
				return nil

			case "kafka":
				brokers := a.cfg.KafkaBrokers()
				if len(brokers) == 0 {
					return fmt.Errorf("KAFKA_BROKER is required for --source kafka")
				}
				consumer := kafka.NewConsumer(brokers, topic, group, a.log)
				a.closers = append(a.closers, consumer.Close)
				consumer.Start(ctx, reconciler.HandleMessage)
				return nil
			}
			return fmt.Errorf("unknown --source %q (rabbitmq or kafka)", source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "rabbitmq", "event source: rabbitmq or kafka")
	cmd.Flags().StringVar(&topic, "topic", "tracking-events", "kafka topic (--source kafka)")
	cmd.Flags().StringVar(&group, "group", "shipbroker-tracking", "kafka consumer group (--source kafka)")
	cmd.Flags().IntVar(&prefetch, "prefetch", 20, "rabbitmq prefetch count")
	cmd.Flags().DurationVar(&timeout, "handler-timeout", 10*time.Second, "per-event processing timeout")
	return cmd
}
