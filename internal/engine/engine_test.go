package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/metrics"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/store"
)

const (
	producer = "producer#alice"
	executor = "executor#bob"
	verifier = "verifier#carol"
	exCoord  = "coordinator#dave"
	verCoord = "coordinator#erin"
)

var fixed = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []modal.LifecycleEvent
}

func (r *recorder) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) all() []modal.LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]modal.LifecycleEvent(nil), r.events...)
}

func newEngine(t *testing.T, st store.Store, opts ...Option) *Engine {
	t.Helper()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	}
	return New(st, append(base, opts...)...)
}

func ref(caller modal.Identity) lifecycle.Ref {
	return lifecycle.Ref{ActionID: "A1", Caller: caller}
}

// seed creates task T1 and action A1 with every role assigned and accepted.
func seed(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()

	_, err := e.CreateTask(ctx, producer, NewTask{ID: "T1", Title: "audit"})
	require.NoError(t, err)
	_, err = e.CreateAction(ctx, producer, NewAction{ID: "A1", TaskID: "T1", ExecutorReward: 100, VerifierReward: 40})
	require.NoError(t, err)

	for _, cmd := range []lifecycle.Command{
		lifecycle.Assign{Ref: ref(producer), Executor: executor},
		lifecycle.Assign{Ref: ref(producer), Verifier: verifier},
		lifecycle.AssignCoordinator{Ref: ref(producer), Role: modal.RoleExCoordinator, Identity: exCoord},
		lifecycle.AssignCoordinator{Ref: ref(producer), Role: modal.RoleVerCoordinator, Identity: verCoord},
		lifecycle.Accept{Ref: ref(executor), AsExecutor: true},
		lifecycle.Accept{Ref: ref(verifier), AsVerifier: true},
	} {
		_, err := e.Execute(ctx, cmd)
		require.NoError(t, err, cmd.Name())
	}
}

func suspend(t *testing.T, e *Engine) {
	t.Helper()
	for _, cmd := range []lifecycle.Command{
		lifecycle.Execute{Ref: ref(executor), DocumentsHash: "h-exec"},
		lifecycle.ExApprove{Ref: ref(exCoord), Result: true, DocumentsHash: "h-exa"},
		lifecycle.Verify{Ref: ref(verifier), Result: true, DocumentsHash: "h-ver"},
		lifecycle.MarkCriticalError{Ref: ref(producer), Critical: true},
		lifecycle.VerApprove{Ref: ref(verCoord), Result: false, DocumentsHash: "h-vera"},
	} {
		_, err := e.Execute(context.Background(), cmd)
		require.NoError(t, err, cmd.Name())
	}
}

func TestCreateActionRequiresProducer(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := e.CreateTask(ctx, "", NewTask{ID: "T1"})
	assert.ErrorIs(t, err, lifecycle.ErrAuthorizationDenied)

	task, err := e.CreateTask(ctx, producer, NewTask{ID: "T1", InspectorRequired: true})
	require.NoError(t, err)
	assert.Equal(t, producer, task.Producer)
	assert.Equal(t, modal.TaskActive, task.State)
	assert.EqualValues(t, 1, task.Version)

	_, err = e.CreateAction(ctx, executor, NewAction{ID: "A1", TaskID: "T1"})
	assert.ErrorIs(t, err, lifecycle.ErrAuthorizationDenied)

	_, err = e.CreateAction(ctx, producer, NewAction{ID: "A1", TaskID: "missing"})
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	a, err := e.CreateAction(ctx, producer, NewAction{TaskID: "T1", InspectorReward: 7})
	require.NoError(t, err)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, modal.ActionInitialized, a.State)
	assert.EqualValues(t, 7, a.InspectorReward.Value)
	assert.False(t, a.InspectorReward.Defined())
}

func TestExecutePersistsAndPublishes(t *testing.T) {
	rec := &recorder{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := store.NewMemoryStore()
	e := newEngine(t, st, WithPublisher(rec), WithMetrics(m))
	seed(t, e)

	a, err := e.Execute(context.Background(), lifecycle.Execute{Ref: ref(executor), DocumentsHash: "h-exec"})
	require.NoError(t, err)
	assert.Equal(t, modal.ActionExecuted, a.State)
	assert.Equal(t, "h-exec", a.ExecutionDocuments.Hash)
	assert.Equal(t, fixed, a.ExecutionDocuments.At)

	stored, err := st.GetAction(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, a, stored)

	events := rec.all()
	require.Len(t, events, 7)
	last := events[6]
	assert.Equal(t, lifecycle.CmdExecute, last.Command)
	assert.Equal(t, modal.ActionInitialized, last.From)
	assert.Equal(t, modal.ActionExecuted, last.To)
	assert.Equal(t, executor, last.Caller)
	assert.Equal(t, stored.Version, last.Version)
	assert.Equal(t, modal.TaskActive, last.TaskState)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal().WithLabelValues(lifecycle.CmdExecute, "ok")))
}

func TestRejectedCommandLeavesStoreUntouched(t *testing.T) {
	rec := &recorder{}
	st := store.NewMemoryStore()
	e := newEngine(t, st, WithPublisher(rec))
	seed(t, e)
	ctx := context.Background()

	before, err := st.GetAction(ctx, "A1")
	require.NoError(t, err)
	beforeJSON, err := json.Marshal(before)
	require.NoError(t, err)
	published := len(rec.all())

	_, err = e.Execute(ctx, lifecycle.Execute{Ref: ref("mallory"), DocumentsHash: "h"})
	assert.ErrorIs(t, err, lifecycle.ErrAuthorizationDenied)
	_, err = e.Execute(ctx, lifecycle.Inspect{Ref: ref(producer), Result: true, DocumentsHash: "h"})
	assert.Error(t, err)

	after, err := st.GetAction(ctx, "A1")
	require.NoError(t, err)
	afterJSON, err := json.Marshal(after)
	require.NoError(t, err)
	assert.JSONEq(t, string(beforeJSON), string(afterJSON))
	assert.Len(t, rec.all(), published)
}

func TestExecuteUnknownAction(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore())
	_, err := e.Execute(context.Background(), lifecycle.Submit{Ref: lifecycle.Ref{ActionID: "nope", Caller: producer}})
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))
}

func TestRestoreCancelWritesTask(t *testing.T) {
	st := store.NewMemoryStore()
	e := newEngine(t, st)
	seed(t, e)
	suspend(t, e)
	ctx := context.Background()

	a, err := st.GetAction(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, modal.ActionSuspendedVerCoordinator, a.State)

	a, err = e.Execute(ctx, lifecycle.Restore{Ref: ref(producer), Choice: modal.RestoreCancel})
	require.NoError(t, err)
	assert.Equal(t, modal.ActionCanceled, a.State)

	task, err := st.GetTask(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, modal.TaskCanceled, task.State)
	assert.EqualValues(t, 2, task.Version)

	_, err = e.Execute(ctx, lifecycle.Submit{Ref: ref(producer)})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	_, err = e.CreateAction(ctx, producer, NewAction{ID: "A2", TaskID: "T1"})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestRestoreContinueResumesPipeline(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore())
	seed(t, e)
	suspend(t, e)

	a, err := e.Execute(context.Background(), lifecycle.Restore{Ref: ref(producer), Choice: modal.RestoreContinue})
	require.NoError(t, err)
	assert.Equal(t, modal.ActionVerified, a.State)
	assert.True(t, a.DeleteAction)
}

// conflictStore loses every optimistic action write.
type conflictStore struct {
	store.Store
}

func (c conflictStore) PutAction(ctx context.Context, a modal.Action) (modal.Action, error) {
	return modal.Action{}, fmt.Errorf("%w: action %q", lifecycle.ErrStoreConflict, a.ID)
}

func TestExecuteSurfacesConflict(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(t, newEngine(t, mem))

	rec := &recorder{}
	m := metrics.New(nil)
	e := newEngine(t, conflictStore{mem}, WithPublisher(rec), WithMetrics(m))

	_, err := e.Execute(context.Background(), lifecycle.Execute{Ref: ref(executor), DocumentsHash: "h"})
	require.ErrorIs(t, err, lifecycle.ErrStoreConflict)
	assert.True(t, lifecycle.Retryable(err))
	assert.Empty(t, rec.all())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal().WithLabelValues(lifecycle.CmdExecute, string(lifecycle.KindStoreConflict))))
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	m := metrics.New(nil)
	failing := PublisherFunc(func(ctx context.Context, evt modal.LifecycleEvent) error {
		return errors.New("broker down")
	})
	rec := &recorder{}
	e := newEngine(t, store.NewMemoryStore(),
		WithPublisher(Sinks{"kafka": failing, "memory": rec}),
		WithMetrics(m))

	seed(t, e)
	assert.Len(t, rec.all(), 6)
	assert.Equal(t, 6.0, testutil.ToFloat64(m.PublishFailures().WithLabelValues("kafka")))
}

func TestConcurrentCommandsAreSerialised(t *testing.T) {
	st := store.NewMemoryStore()
	e := newEngine(t, st)
	seed(t, e)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Execute(ctx, lifecycle.MarkCriticalError{Ref: ref(producer), Critical: i%2 == 0})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	a, err := st.GetAction(ctx, "A1")
	require.NoError(t, err)
	// six seed commands plus creation plus one write per worker
	assert.EqualValues(t, 7+workers, a.Version)
	assert.Zero(t, e.locks.size())
}

// stallingRecorder holds every other event back so a publisher racing the
// next command would record versions out of order.
type stallingRecorder struct {
	recorder
}

func (r *stallingRecorder) Publish(ctx context.Context, evt modal.LifecycleEvent) error {
	if evt.Version%2 == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	return r.recorder.Publish(ctx, evt)
}

func TestEventsPublishedInVersionOrder(t *testing.T) {
	rec := &stallingRecorder{}
	e := newEngine(t, store.NewMemoryStore(), WithPublisher(rec))
	seed(t, e)
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Execute(ctx, lifecycle.MarkCriticalError{Ref: ref(producer), Critical: i%2 == 0})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	events := rec.all()
	// six seed commands plus one event per worker
	require.Len(t, events, 6+workers)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Version, events[i-1].Version, "event %d", i)
	}
}

func TestSubmitTask(t *testing.T) {
	e := newEngine(t, store.NewMemoryStore())
	ctx := context.Background()
	_, err := e.CreateTask(ctx, producer, NewTask{ID: "T1"})
	require.NoError(t, err)

	_, err = e.SubmitTask(ctx, executor, "T1")
	assert.ErrorIs(t, err, lifecycle.ErrAuthorizationDenied)

	task, err := e.SubmitTask(ctx, producer, "T1")
	require.NoError(t, err)
	assert.Equal(t, modal.TaskSubmitted, task.State)
	assert.EqualValues(t, 2, task.Version)

	_, err = e.SubmitTask(ctx, producer, "T1")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, k.size())
}
