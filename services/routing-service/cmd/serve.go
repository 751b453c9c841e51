package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httphandler "github.com/Tanmoy095/ShipBroker/services/routing-service/handler/http"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/tracking"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/workflow"
	"github.com/Tanmoy095/ShipBroker/shared/rabbitmq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API and the gRPC health endpoint",
		Long: `Start the routing service.

Orders are booked inline unless ORDER_WORKFLOW_ENABLED is set, in which case
they run as Temporal workflows on TASK_QUEUE (start "shipbroker worker" too).
The tracking webhook is enabled when RABBITMQ_USER is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	var creator httphandler.OrderCreator = a.orders
	if a.cfg.ORDER_WORKFLOW_ENABLED {
		c, err := a.dialTemporal()
		if err != nil {
			return err
		}
		creator = workflow.NewStarter(c, a.cfg.TASK_QUEUE)
	} else {
		// inline bookings are stored, and so metered, by this process
		a.startMetering(ctx)
	}

	var intake httphandler.TrackingIntake
	if a.cfg.RABBITMQ_USER != "" {
		rmq, err := rabbitmq.NewClient(a.cfg.GetRabbitMQURL())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rmq.Close)
		if err := rmq.CreateQueue(a.cfg.TRACKING_QUEUE); err != nil {
			return err
		}
		intake = tracking.NewQueueIntake(rmq, a.cfg.TRACKING_QUEUE)
	} else {
		a.log.Warn("RABBITMQ_USER not set, tracking webhook disabled")
	}

	h := httphandler.NewHandler(httphandler.Deps{
		Orgs:     a.orders,
		Quotes:   a.orders,
		Router:   a.orders,
		Creator:  creator,
		Reader:   a.orders,
		Tracking: intake,
		Usage:    a.store,
		Log:      a.log,
	})
	httpSrv := &http.Server{
		Addr:              a.cfg.HTTP_ADDR,
		Handler:           httphandler.NewRouter(h, a.cfg.CORS_ORIGINS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", a.cfg.GRPC_ADDR)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithField("addr", a.cfg.HTTP_ADDR).Info("HTTP server running")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.log.WithField("addr", a.cfg.GRPC_ADDR).Info("gRPC health server running")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return err
	})
	return g.Wait()
}
