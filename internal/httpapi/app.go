// Package httpapi exposes the lifecycle engine over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"action-lifecycle-service/internal/engine"
	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/store"
)

// CallerHeader carries the authenticated caller identity, set by the
// gateway in front of the service.
const CallerHeader = "X-Caller-Identity"

type Engine interface {
	Execute(ctx context.Context, cmd lifecycle.Command) (modal.Action, error)
	CreateTask(ctx context.Context, caller modal.Identity, req engine.NewTask) (modal.Task, error)
	CreateAction(ctx context.Context, caller modal.Identity, req engine.NewAction) (modal.Action, error)
	SubmitTask(ctx context.Context, caller modal.Identity, taskID string) (modal.Task, error)
	GetAction(ctx context.Context, actionID string) (modal.Action, error)
	GetTask(ctx context.Context, taskID string) (modal.Task, error)
	ListActions(ctx context.Context, filter store.ActionFilter) ([]modal.Action, error)
}

type App struct {
	Engine Engine
	Logger *slog.Logger
	// Identity resolves the caller; HeaderIdentity when nil.
	Identity func(r *http.Request) modal.Identity
	// Workflows backs the /workflows routes; they are not mounted when nil.
	Workflows WorkflowClient
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

func HeaderIdentity(r *http.Request) modal.Identity {
	return r.Header.Get(CallerHeader)
}

func (a *App) caller(r *http.Request) modal.Identity {
	if a.Identity != nil {
		return a.Identity(r)
	}
	return HeaderIdentity(r)
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
