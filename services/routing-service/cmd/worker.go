package main

import (
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/activities"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/workflow"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
)

func workerCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for order workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.dialTemporal()
			if err != nil {
				return err
			}
			a.startMetering(cmd.Context())

			w := worker.New(c, a.cfg.TASK_QUEUE, worker.Options{})
			// register by function value, never by calling it
			w.RegisterWorkflow(workflow.CreateOrderWorkflow)
			w.RegisterActivity(&activities.OrderActivities{Booker: a.orders})

			a.log.WithField("task_queue", a.cfg.TASK_QUEUE).Info("worker started")
			return w.Run(worker.InterruptCh())
		},
	}
}
