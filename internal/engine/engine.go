// Package engine runs lifecycle commands against the store: it loads the
// action and its task, applies one transition, persists the result and
// publishes the committed event.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/metrics"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/store"
)

type Engine struct {
	store     store.Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	locks     *keyedMutex
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		locks:  newKeyedMutex(),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	return e
}

// Execute applies cmd to its action. Commands on the same action run one
// at a time and publish their event before the next one starts, so sinks
// see an action's events in version order. A lost optimistic write is
// returned as ErrStoreConflict.
func (e *Engine) Execute(ctx context.Context, cmd lifecycle.Command) (modal.Action, error) {
	ref := lifecycle.RefOf(cmd)
	start := e.now()

	unlock := e.locks.Lock(ref.ActionID)
	defer unlock()
	evt, action, err := e.execute(ctx, cmd)

	outcome := "ok"
	if err != nil {
		outcome = string(lifecycle.KindOf(err))
	}
	e.metrics.ObserveCommand(cmd.Name(), outcome, e.now().Sub(start))

	if err != nil {
		e.logger.Warn("command rejected",
			slog.String("command", cmd.Name()),
			slog.String("action_id", ref.ActionID),
			slog.String("caller", ref.Caller),
			slog.String("kind", outcome),
			slog.String("error", err.Error()))
		return modal.Action{}, err
	}

	e.metrics.ObserveTransition(string(evt.From), string(evt.To))
	e.logger.Info("command applied",
		slog.String("command", cmd.Name()),
		slog.String("action_id", ref.ActionID),
		slog.String("caller", ref.Caller),
		slog.String("from", string(evt.From)),
		slog.String("to", string(evt.To)),
		slog.Int64("version", evt.Version))

	e.publish(ctx, evt)
	return action, nil
}

func (e *Engine) execute(ctx context.Context, cmd lifecycle.Command) (modal.LifecycleEvent, modal.Action, error) {
	ref := lifecycle.RefOf(cmd)

	a, err := e.store.GetAction(ctx, ref.ActionID)
	if err != nil {
		return modal.LifecycleEvent{}, modal.Action{}, fmt.Errorf("%s: load action: %w", cmd.Name(), err)
	}
	t, err := e.store.GetTask(ctx, a.TaskID)
	if err != nil {
		return modal.LifecycleEvent{}, modal.Action{}, fmt.Errorf("%s: load task: %w", cmd.Name(), err)
	}

	out, err := lifecycle.Apply(cmd, lifecycle.Snapshot{Action: a, Task: t}, e.now())
	if err != nil {
		return modal.LifecycleEvent{}, modal.Action{}, err
	}

	saved := out.Action
	savedTask := t
	if out.TaskChanged {
		saved, savedTask, err = e.store.PutActionAndTask(ctx, out.Action, out.Task)
	} else {
		saved, err = e.store.PutAction(ctx, out.Action)
	}
	if err != nil {
		return modal.LifecycleEvent{}, modal.Action{}, fmt.Errorf("%s: persist: %w", cmd.Name(), err)
	}

	evt := modal.LifecycleEvent{
		ID:        e.newID(),
		ActionID:  saved.ID,
		TaskID:    saved.TaskID,
		Command:   cmd.Name(),
		Caller:    ref.Caller,
		From:      a.State,
		To:        saved.State,
		TaskState: savedTask.State,
		Version:   saved.Version,
		At:        saved.UpdatedAt,
	}
	return evt, saved, nil
}

// publish runs after commit, so a sink failure is recorded and logged but
// never reported to the caller.
func (e *Engine) publish(ctx context.Context, evt modal.LifecycleEvent) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, evt)
	if err == nil {
		return
	}

	for _, sink := range failedSinks(err) {
		e.metrics.PublishFailed(sink)
	}
	e.logger.Error("publish lifecycle event",
		slog.String("event_id", evt.ID),
		slog.String("action_id", evt.ActionID),
		slog.String("error", err.Error()))
}

func failedSinks(err error) []string {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	sinks := make([]string, 0, len(errs))
	for _, err := range errs {
		var se *SinkError
		if errors.As(err, &se) {
			sinks = append(sinks, se.Sink)
		} else {
			sinks = append(sinks, "publisher")
		}
	}
	return sinks
}

func (e *Engine) GetAction(ctx context.Context, actionID string) (modal.Action, error) {
	return e.store.GetAction(ctx, actionID)
}

func (e *Engine) GetTask(ctx context.Context, taskID string) (modal.Task, error) {
	return e.store.GetTask(ctx, taskID)
}

func (e *Engine) ListActions(ctx context.Context, filter store.ActionFilter) ([]modal.Action, error) {
	return e.store.ListActions(ctx, filter)
}
