package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kgo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	r := kgo.NewReader(kgo.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
	})
	return &Consumer{reader: r}
}

func (c *Consumer) Close() error { return c.reader.Close() }

// ReadCommand blocks for the next command. The returned commit must be
// called once the command has been handled. Undecodable messages are
// committed immediately so the partition does not stall.
func (c *Consumer) ReadCommand(ctx context.Context) (lifecycle.Command, func(context.Context) error, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, err
	}

	var env CommandMessage
	if err := json.Unmarshal(m.Value, &env); err != nil {
		_ = c.reader.CommitMessages(ctx, m)
		return nil, nil, fmt.Errorf("%w: decode envelope at offset %d: %v", lifecycle.ErrInvalidSelector, m.Offset, err)
	}
	cmd, err := lifecycle.Decode(env)
	if err != nil {
		_ = c.reader.CommitMessages(ctx, m)
		return nil, nil, err
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return c.reader.CommitMessages(cctx, m)
	}
	return cmd, commit, nil
}

type Executor interface {
	Execute(ctx context.Context, cmd lifecycle.Command) (modal.Action, error)
}

// Dispatcher feeds consumed commands to the engine.
type Dispatcher struct {
	Consumer *Consumer
	Engine   Executor
	Logger   *slog.Logger
	// ConflictRetries bounds re-application after a lost optimistic write.
	ConflictRetries int
	Backoff         time.Duration
}

// Run handles commands until ctx is canceled. Rejected commands are logged
// and committed; only the context ending stops the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		cmd, commit, err := d.Consumer.ReadCommand(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, lifecycle.ErrInvalidSelector) || errors.Is(err, lifecycle.ErrMissingEvidence) {
				d.Logger.Warn("dropping undecodable command", slog.String("error", err.Error()))
				continue
			}
			d.Logger.Error("read command", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		d.handle(ctx, cmd)
		if err := commit(ctx); err != nil {
			d.Logger.Error("commit offset", slog.String("command", cmd.Name()), slog.String("error", err.Error()))
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd lifecycle.Command) {
	ref := lifecycle.RefOf(cmd)
	for attempt := 0; ; attempt++ {
		a, err := d.Engine.Execute(ctx, cmd)
		if err == nil {
			d.Logger.Debug("command consumed",
				slog.String("command", cmd.Name()),
				slog.String("action_id", ref.ActionID),
				slog.String("state", string(a.State)))
			return
		}
		if lifecycle.Retryable(err) && attempt < d.ConflictRetries {
			time.Sleep(d.Backoff)
			continue
		}
		d.Logger.Warn("command failed",
			slog.String("command", cmd.Name()),
			slog.String("action_id", ref.ActionID),
			slog.String("kind", string(lifecycle.KindOf(err))),
			slog.Int("attempts", attempt+1),
			slog.String("error", err.Error()))
		return
	}
}
