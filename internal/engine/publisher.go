package engine

import (
	"context"
	"errors"
	"fmt"

	"action-lifecycle-service/internal/modal"
)

// Publisher receives every committed lifecycle event.
type Publisher interface {
	Publish(ctx context.Context, evt modal.LifecycleEvent) error
}

type PublisherFunc func(ctx context.Context, evt modal.LifecycleEvent) error

func (f PublisherFunc) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	return f(ctx, evt)
}

// Sinks fans an event out to named publishers. Every sink is tried; the
// failures are joined.
type Sinks map[string]Publisher

func (s Sinks) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	var errs []error
	for name, p := range s {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, &SinkError{Sink: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("sink %s: %v", e.Sink, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }
