// Package bootstrap wires configuration into the concrete store, Temporal
// client and event sinks shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/engine"
	"action-lifecycle-service/internal/metrics"
	"action-lifecycle-service/internal/queue"
	"action-lifecycle-service/internal/store"
	"action-lifecycle-service/internal/workflows"
)

func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverDynamo:
		return store.NewDynamoStore(ctx, store.DynamoOptions{
			Region:       cfg.Dynamo.Region,
			Endpoint:     cfg.Dynamo.Endpoint,
			ActionsTable: cfg.Dynamo.ActionsTable,
			TasksTable:   cfg.Dynamo.TasksTable,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func DialTemporal(cfg config.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    sdklog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, nil
}

// Runtime is everything a binary needs to run commands.
type Runtime struct {
	Engine   *engine.Engine
	Temporal client.Client
	closers  []func() error
}

func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// NewRuntime opens the store and the configured event sinks and builds the
// engine. reg may be nil.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Runtime, error) {
	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{}
	sinks := engine.Sinks{}

	if cfg.Kafka.Enabled {
		prod, err := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, prod.Close)
		sinks["kafka"] = prod
	}

	if cfg.Temporal.Enabled {
		tc, err := DialTemporal(cfg.Temporal, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Temporal = tc
		rt.closers = append(rt.closers, func() error { tc.Close(); return nil })
		sinks["temporal"] = workflows.NewEventSignaler(tc, cfg.Temporal.TaskQueue)
	}

	rt.Engine = engine.New(st,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithPublisher(sinks),
	)
	logger.Info("runtime ready",
		slog.String("store", cfg.Store.Driver),
		slog.Bool("kafka", cfg.Kafka.Enabled),
		slog.Bool("temporal", cfg.Temporal.Enabled))
	return rt, nil
}
