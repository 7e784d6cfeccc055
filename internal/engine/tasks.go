package engine

import (
	"context"
	"fmt"
	"log/slog"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

type NewTask struct {
	ID                string `json:"id,omitempty"`
	Title             string `json:"title,omitempty"`
	InspectorRequired bool   `json:"inspectorRequired"`
}

// NewAction carries the reward values fixed when the action is created.
// Recipients are filled in later by the assignment commands.
type NewAction struct {
	ID                   string `json:"id,omitempty"`
	TaskID               string `json:"taskId"`
	Description          string `json:"description,omitempty"`
	ExecutorReward       int64  `json:"executorReward"`
	VerifierReward       int64  `json:"verifierReward"`
	ExCoordinatorReward  int64  `json:"exCoordinatorReward"`
	VerCoordinatorReward int64  `json:"verCoordinatorReward"`
	InspectorReward      int64  `json:"inspectorReward"`
}

// CreateTask opens a task owned by caller.
func (e *Engine) CreateTask(ctx context.Context, caller modal.Identity, req NewTask) (modal.Task, error) {
	if caller == "" {
		return modal.Task{}, fmt.Errorf("create task: %w: caller identity is required", lifecycle.ErrAuthorizationDenied)
	}
	id := req.ID
	if id == "" {
		id = e.newID()
	}
	now := e.now()
	t := modal.Task{
		ID:                id,
		Title:             req.Title,
		Producer:          caller,
		InspectorRequired: req.InspectorRequired,
		State:             modal.TaskActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.store.CreateTask(ctx, t); err != nil {
		return modal.Task{}, fmt.Errorf("create task: %w", err)
	}
	t.Version = 1

	e.logger.Info("task created", slog.String("task_id", t.ID), slog.String("producer", caller),
		slog.Bool("inspector_required", t.InspectorRequired))
	return t, nil
}

// CreateAction adds an INITIALIZED action to one of caller's tasks.
func (e *Engine) CreateAction(ctx context.Context, caller modal.Identity, req NewAction) (modal.Action, error) {
	t, err := e.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return modal.Action{}, fmt.Errorf("create action: load task: %w", err)
	}
	if caller == "" || caller != t.Producer {
		return modal.Action{}, fmt.Errorf("create action: %w: caller %q is not the producer", lifecycle.ErrAuthorizationDenied, caller)
	}
	if t.State == modal.TaskCanceled {
		return modal.Action{}, fmt.Errorf("create action: %w: task %s is canceled", lifecycle.ErrInvalidState, t.ID)
	}

	id := req.ID
	if id == "" {
		id = e.newID()
	}
	now := e.now()
	a := modal.Action{
		ID:                   id,
		TaskID:               t.ID,
		Description:          req.Description,
		State:                modal.ActionInitialized,
		ExecutorReward:       modal.Reward{Value: req.ExecutorReward},
		VerifierReward:       modal.Reward{Value: req.VerifierReward},
		ExCoordinatorReward:  modal.Reward{Value: req.ExCoordinatorReward},
		VerCoordinatorReward: modal.Reward{Value: req.VerCoordinatorReward},
		InspectorReward:      modal.Reward{Value: req.InspectorReward},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.store.CreateAction(ctx, a); err != nil {
		return modal.Action{}, fmt.Errorf("create action: %w", err)
	}
	a.Version = 1

	e.logger.Info("action created", slog.String("action_id", a.ID), slog.String("task_id", t.ID))
	return a, nil
}

// SubmitTask records that the customer-side review of the task has started.
func (e *Engine) SubmitTask(ctx context.Context, caller modal.Identity, taskID string) (modal.Task, error) {
	unlock := e.locks.Lock("task/" + taskID)
	defer unlock()

	t, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return modal.Task{}, fmt.Errorf("submit task: %w", err)
	}
	next, err := lifecycle.SubmitTask(t, caller, e.now())
	if err != nil {
		return modal.Task{}, err
	}
	saved, err := e.store.PutTask(ctx, next)
	if err != nil {
		return modal.Task{}, fmt.Errorf("submit task: persist: %w", err)
	}

	e.logger.Info("task submitted", slog.String("task_id", taskID), slog.String("caller", caller))
	return saved, nil
}
