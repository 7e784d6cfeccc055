package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"action-lifecycle-service/internal/engine"
	"action-lifecycle-service/internal/lifecycle"
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

// suspended builds an engine holding action A1 in SUSPENDED_VERCOORDINATOR.
func suspended(t *testing.T) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	e := engine.New(store.NewMemoryStore())

	_, err := e.CreateTask(ctx, producer, engine.NewTask{ID: "T1"})
	require.NoError(t, err)
	_, err = e.CreateAction(ctx, producer, engine.NewAction{ID: "A1", TaskID: "T1"})
	require.NoError(t, err)

	ref := func(c modal.Identity) lifecycle.Ref { return lifecycle.Ref{ActionID: "A1", Caller: c} }
	for _, cmd := range []lifecycle.Command{
		lifecycle.Assign{Ref: ref(producer), Executor: executor},
		lifecycle.Assign{Ref: ref(producer), Verifier: verifier},
		lifecycle.AssignCoordinator{Ref: ref(producer), Role: modal.RoleExCoordinator, Identity: exCoord},
		lifecycle.AssignCoordinator{Ref: ref(producer), Role: modal.RoleVerCoordinator, Identity: verCoord},
		lifecycle.Accept{Ref: ref(executor), AsExecutor: true},
		lifecycle.Accept{Ref: ref(verifier), AsVerifier: true},
		lifecycle.Execute{Ref: ref(executor), DocumentsHash: "h1"},
		lifecycle.ExApprove{Ref: ref(exCoord), Result: true, DocumentsHash: "h2"},
		lifecycle.Verify{Ref: ref(verifier), Result: true, DocumentsHash: "h3"},
		lifecycle.MarkCriticalError{Ref: ref(producer), Critical: true},
		lifecycle.VerApprove{Ref: ref(verCoord), Result: false, DocumentsHash: "h4"},
	} {
		_, err := e.Execute(ctx, cmd)
		require.NoError(t, err, cmd.Name())
	}
	return e
}

func TestLoadAction(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	env.RegisterActivity(&Activities{Engine: suspended(t)})

	val, err := env.ExecuteActivity("LoadAction", "A1")
	require.NoError(t, err)
	var snap lifecycle.Snapshot
	require.NoError(t, val.Get(&snap))
	assert.Equal(t, modal.ActionSuspendedVerCoordinator, snap.Action.State)
	assert.Equal(t, modal.TaskActive, snap.Task.State)

	_, err = env.ExecuteActivity("LoadAction", "missing")
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, string(lifecycle.KindNotFound), appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestRestoreAction(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	env.RegisterActivity(&Activities{Engine: suspended(t)})

	_, err := env.ExecuteActivity("RestoreAction", modal.RestoreRequest{ActionID: "A1", Caller: executor, Choice: modal.RestoreContinue})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, string(lifecycle.KindAuthorizationDenied), appErr.Type())

	val, err := env.ExecuteActivity("RestoreAction", modal.RestoreRequest{ActionID: "A1", Caller: producer, Choice: modal.RestoreContinue})
	require.NoError(t, err)
	var a modal.Action
	require.NoError(t, val.Get(&a))
	assert.Equal(t, modal.ActionVerified, a.State)
}

func TestApplicationErrorRetryability(t *testing.T) {
	var appErr *temporal.ApplicationError

	err := applicationError(lifecycle.ErrStoreConflict)
	require.True(t, errors.As(err, &appErr))
	assert.False(t, appErr.NonRetryable())
	assert.Equal(t, string(lifecycle.KindStoreConflict), appErr.Type())

	err = applicationError(lifecycle.ErrMissingEvidence)
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}
