package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"action-lifecycle-service/internal/modal"
)

type signalStarter interface {
	SignalWithStartWorkflow(ctx context.Context, workflowID string, signalName string, signalArg interface{},
		options client.StartWorkflowOptions, workflow interface{}, workflowArgs ...interface{}) (client.WorkflowRun, error)
}

// EventSignaler forwards lifecycle events to the action's supervisor,
// starting it on the first event.
type EventSignaler struct {
	client    signalStarter
	taskQueue string
}

func NewEventSignaler(c client.Client, taskQueue string) *EventSignaler {
	return newEventSignaler(c, taskQueue)
}

func newEventSignaler(c signalStarter, taskQueue string) *EventSignaler {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	return &EventSignaler{client: c, taskQueue: taskQueue}
}

func (s *EventSignaler) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(evt.ActionID),
		TaskQueue: s.taskQueue,
	}
	if _, err := s.client.SignalWithStartWorkflow(ctx, opts.ID, ActionEventSignal, evt, opts, SuperviseAction, evt.ActionID); err != nil {
		return fmt.Errorf("signal %s: %w", opts.ID, err)
	}
	return nil
}
