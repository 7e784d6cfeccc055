// Package store persists tasks and actions with optimistic versioning.
//
// Every Put compares the Version on the supplied entity with the stored one
// and writes Version+1. A mismatch is reported as lifecycle.ErrStoreConflict
// and nothing is written.
package store

import (
	"context"

	"action-lifecycle-service/internal/modal"
)

type Store interface {
	GetAction(ctx context.Context, actionID string) (modal.Action, error)
	GetTask(ctx context.Context, taskID string) (modal.Task, error)
	ListActions(ctx context.Context, filter ActionFilter) ([]modal.Action, error)

	CreateTask(ctx context.Context, t modal.Task) error
	CreateAction(ctx context.Context, a modal.Action) error

	PutTask(ctx context.Context, t modal.Task) (modal.Task, error)
	PutAction(ctx context.Context, a modal.Action) (modal.Action, error)
	// PutActionAndTask commits both entities or neither.
	PutActionAndTask(ctx context.Context, a modal.Action, t modal.Task) (modal.Action, modal.Task, error)
}

type ActionFilter struct {
	TaskID string
	State  modal.ActionState
	Limit  int
}

func (f ActionFilter) match(a modal.Action) bool {
	if f.TaskID != "" && a.TaskID != f.TaskID {
		return false
	}
	if f.State != "" && a.State != f.State {
		return false
	}
	return true
}
