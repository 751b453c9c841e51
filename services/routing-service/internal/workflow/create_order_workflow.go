package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/activities"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/service"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultTaskQueue is used when the configuration names none.
const DefaultTaskQueue = "ORDER_TASK_QUEUE"

// CreateOrderWorkflow routes an order, buys its label, stores it and
// announces it. Carrier and database outages are retried with backoff.
func CreateOrderWorkflow(ctx workflow.Context, in activities.OrderInput) (models.Order, error) {
	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    20,
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy:         retryPolicy,
	})

	var a *activities.OrderActivities

	var route service.RouteResult
	if err := workflow.ExecuteActivity(ctx, a.RouteOrder, in).Get(ctx, &route); err != nil {
		return models.Order{}, err
	}

	var labelled models.Order
	if err := workflow.ExecuteActivity(ctx, a.CreateLabel, activities.LabelInput{OrderInput: in, Route: route}).Get(ctx, &labelled); err != nil {
		return models.Order{}, err
	}

	var stored models.Order
	if err := workflow.ExecuteActivity(ctx, a.SaveOrder, labelled).Get(ctx, &stored); err != nil {
		return models.Order{}, err
	}

	if err := workflow.ExecuteActivity(ctx, a.PublishOrderEvent, stored).Get(ctx, nil); err != nil {
		return models.Order{}, err
	}
	return stored, nil
}

// Starter runs CreateOrderWorkflow and waits for the booked order.
type Starter struct {
	client    client.Client
	taskQueue string
}

func NewStarter(c client.Client, taskQueue string) *Starter {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Starter{client: c, taskQueue: taskQueue}
}

// CreateOrder has the same contract as service.OrderService.CreateOrder.
func (s *Starter) CreateOrder(ctx context.Context, org *models.Organization, req models.OrderRequest) (models.Order, error) {
	in := activities.OrderInput{ShipperSeqNum: org.ShipperSeqNum, OrderID: uuid.New(), Request: req}
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "order-" + in.OrderID.String(),
		TaskQueue: s.taskQueue,
	}, CreateOrderWorkflow, in)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to start order workflow: %w", err)
	}

	var order models.Order
	if err := run.Get(ctx, &order); err != nil {
		return models.Order{}, activities.FromApplicationError(err)
	}
	return order, nil
}
