package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/config"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/eligibility"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/integration"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/ratecard"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/rating"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/selection"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/usage"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/zonematrix"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/service"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store/seed"
	"github.com/Tanmoy095/ShipBroker/shared/kafka"
	"github.com/Tanmoy095/ShipBroker/shared/logging"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
)

// backend is everything the service reads and writes.
type backend interface {
	store.ZipZoneStore
	store.RateCardStore
	store.ZoneMatrixStore
	store.OrganizationStore
	store.OrderStore
	store.ReferenceWriter
	store.UsageStore
}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg      *config.RoutingConfig
	log      *logrus.Logger
	store    backend
	producer kafka.Publisher // nil when Kafka is not configured
	orders   *service.OrderService
	closers  []func() error
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logging.New(cfg.LOG_LEVEL, cfg.LOG_FORMAT)}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		p := kafka.NewKafkaProducer(brokers, cfg.KAFKA_TOPIC, a.log)
		a.producer = p
		a.closers = append(a.closers, p.Close)
		a.log.WithField("topic", cfg.KAFKA_TOPIC).Info("connected to kafka")
	} else {
		a.log.Warn("KAFKA_BROKER not set, order events will not be published")
	}

	if cfg.AGGREGATOR_API_URL == "" {
		a.log.Warn("AGGREGATOR_API_URL not set, label purchases will fail")
	}
	registry, err := integration.NewAggregatorRegistry(cfg.AGGREGATOR_API_URL, cfg.AGGREGATOR_API_TOKEN)
	if err != nil {
		a.Close()
		return nil, err
	}

	rates := rating.NewEngine(zonematrix.NewResolver(a.store), ratecard.NewLookup(a.store), a.log)
	selector := selection.NewEngine(
		eligibility.NewChecker(a.store),
		registry,
		selection.Policy{ForceTobaccoViaSettings: cfg.FORCE_TOBACCO_VIA_SETTINGS},
		a.log,
	)
	a.orders = service.NewOrderService(a.store, a.store, rates, selector, registry, a.producer, a.log)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.STORE_BACKEND {
	case config.StoreMemory:
		mem := store.NewMemoryStore()
		a.store = mem
		if a.cfg.SEED_FILE != "" {
			sum, err := seed.LoadFile(ctx, a.cfg.SEED_FILE, mem)
			if err != nil {
				return fmt.Errorf("failed to seed memory store: %w", err)
			}
			a.log.WithFields(logrus.Fields{
				"organizations": sum.Organizations,
				"zip_zones":     sum.ZipZones,
				"rate_cards":    sum.RateCards,
				"zone_matrices": sum.ZoneMatrices,
			}).Info("memory store seeded")
		}
		return nil
	default:
		pg, err := store.NewPostgresStore(a.cfg.GetDBURL())
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		a.store = pg
		return nil
	}
}

// startMetering meters stored orders until the app is closed.
func (a *app) startMetering(ctx context.Context) {
	if a.cfg.USAGE_FLUSH_INTERVAL == 0 {
		a.log.Warn("USAGE_FLUSH_INTERVAL is 0, label metering disabled")
		return
	}
	agg := usage.NewAggregator(a.store, a.cfg.USAGE_FLUSH_INTERVAL, a.log)
	agg.Start(ctx, a.cfg.USAGE_WORKERS)
	a.orders.WithUsage(agg)
	a.closers = append(a.closers, func() error {
		// ctx is usually cancelled by now
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return agg.Stop(stopCtx)
	})
}

func (a *app) dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: a.cfg.TEMPORAL_HOST_PORT,
		Logger:   logging.NewTemporalLogger(a.log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}
	a.closers = append(a.closers, func() error { c.Close(); return nil })
	a.log.WithField("host", a.cfg.TEMPORAL_HOST_PORT).Info("connected to temporal")
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
