package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/engine"
	"action-lifecycle-service/internal/store"
)

func TestOpenStore(t *testing.T) {
	st, err := OpenStore(context.Background(), config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)

	_, err = OpenStore(context.Background(), config.StoreConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestNewRuntimeWithoutSinks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Temporal.Enabled = false

	reg := prometheus.NewRegistry()
	rt, err := NewRuntime(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), reg)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Temporal)
	_, err = rt.Engine.CreateTask(context.Background(), "producer#alice", engine.NewTask{ID: "T1"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotNil(t, families)
}
