package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

// Lifecycle is the part of the engine the supervisor workflow drives.
type Lifecycle interface {
	Execute(ctx context.Context, cmd lifecycle.Command) (modal.Action, error)
	GetAction(ctx context.Context, actionID string) (modal.Action, error)
	GetTask(ctx context.Context, taskID string) (modal.Task, error)
}

type Activities struct {
	Engine Lifecycle
}

func (a *Activities) LoadAction(ctx context.Context, actionID string) (lifecycle.Snapshot, error) {
	act, err := a.Engine.GetAction(ctx, actionID)
	if err != nil {
		return lifecycle.Snapshot{}, applicationError(err)
	}
	task, err := a.Engine.GetTask(ctx, act.TaskID)
	if err != nil {
		return lifecycle.Snapshot{}, applicationError(err)
	}
	return lifecycle.Snapshot{Action: act, Task: task}, nil
}

// RestoreAction applies a human restore decision on behalf of its decider.
func (a *Activities) RestoreAction(ctx context.Context, req modal.RestoreRequest) (modal.Action, error) {
	activity.GetLogger(ctx).Info("restoring action",
		"actionID", req.ActionID, "choice", req.Choice, "caller", req.Caller)

	act, err := a.Engine.Execute(ctx, lifecycle.Restore{
		Ref:    lifecycle.Ref{ActionID: req.ActionID, Caller: req.Caller},
		Choice: req.Choice,
	})
	if err != nil {
		return modal.Action{}, applicationError(err)
	}
	return act, nil
}

// applicationError types err by its lifecycle kind. Only store conflicts are
// worth another attempt.
func applicationError(err error) error {
	kind := string(lifecycle.KindOf(err))
	if lifecycle.Retryable(err) || errors.Is(err, context.DeadlineExceeded) {
		return temporal.NewApplicationError(err.Error(), kind, err)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, err)
}
