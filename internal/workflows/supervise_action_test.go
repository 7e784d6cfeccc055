package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"action-lifecycle-service/internal/activities"
	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

func snapshot(s modal.ActionState, version int64) lifecycle.Snapshot {
	return lifecycle.Snapshot{
		Action: modal.Action{ID: "A1", TaskID: "T1", State: s, Version: version},
		Task:   modal.Task{ID: "T1", Producer: "producer#alice", State: modal.TaskActive},
	}
}

func event(from, to modal.ActionState, version int64) modal.LifecycleEvent {
	return modal.LifecycleEvent{
		ActionID:  "A1",
		TaskID:    "T1",
		Command:   "event",
		From:      from,
		To:        to,
		TaskState: modal.TaskActive,
		Version:   version,
	}
}

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{})
	return env
}

func queryPendingTask(t *testing.T, env *testsuite.TestWorkflowEnvironment) *modal.HumanTask {
	t.Helper()
	val, err := env.QueryWorkflow(QueryPendingTask)
	require.NoError(t, err)
	var task *modal.HumanTask
	require.NoError(t, val.Get(&task))
	return task
}

func TestSuperviseActionRestoreContinue(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("LoadAction", mock.Anything, "A1").Return(snapshot(modal.ActionVerified, 10), nil)
	env.OnActivity("RestoreAction", mock.Anything, modal.RestoreRequest{
		ActionID: "A1", Caller: "producer#alice", Choice: modal.RestoreContinue, Notes: "looks fine",
	}).Return(modal.Action{ID: "A1", TaskID: "T1", State: modal.ActionVerified, Version: 12}, nil).Once()

	var opened, afterRestore *modal.HumanTask
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionVerified, modal.ActionSuspendedVerCoordinator, 11))
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		opened = queryPendingTask(t, env)
		env.SignalWorkflow(TaskDecisionSignal, modal.TaskDecision{
			TaskID: "restore-A1-1", Approved: true, Notes: "looks fine", Decider: "producer#alice",
		})
	}, 2*time.Minute)
	env.RegisterDelayedCallback(func() {
		afterRestore = queryPendingTask(t, env)
		// echo of the restore the workflow applied itself
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionSuspendedVerCoordinator, modal.ActionVerified, 12))
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionVerified, modal.ActionCompleted, 13))
	}, 3*time.Minute)

	env.ExecuteWorkflow(SuperviseAction, "A1")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, string(modal.ActionCompleted), result)

	require.NotNil(t, opened)
	assert.Equal(t, RestoreTaskType, opened.Type)
	assert.Equal(t, modal.ActionSuspendedVerCoordinator, opened.State)
	assert.Nil(t, afterRestore)
	env.AssertExpectations(t)
}

func TestSuperviseActionRestoreCancelEnds(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("LoadAction", mock.Anything, "A1").Return(snapshot(modal.ActionSuspendedInspector, 9), nil)
	env.OnActivity("RestoreAction", mock.Anything, mock.Anything).
		Return(modal.Action{ID: "A1", TaskID: "T1", State: modal.ActionCanceled, Version: 10}, nil).Once()

	var status ActionStatus
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(TaskDecisionSignal, modal.TaskDecision{TaskID: "restore-A1-1", Approved: false, Decider: "producer#alice"})
	}, time.Minute)

	env.ExecuteWorkflow(SuperviseAction, "A1")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, string(modal.ActionCanceled), result)

	val, err := env.QueryWorkflow(QueryActionState)
	require.NoError(t, err)
	require.NoError(t, val.Get(&status))
	assert.Equal(t, modal.TaskCanceled, status.TaskState)
	assert.EqualValues(t, 10, status.Version)
}

func TestSuperviseActionKeepsTaskOpenWhenRestoreFails(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("LoadAction", mock.Anything, "A1").Return(snapshot(modal.ActionSuspendedVerCoordinator, 5), nil)
	env.OnActivity("RestoreAction", mock.Anything, mock.Anything).Return(modal.Action{},
		temporal.NewNonRetryableApplicationError("denied", string(lifecycle.KindAuthorizationDenied), nil)).Once()

	var stillOpen *modal.HumanTask
	var audit []modal.AuditEvent
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(TaskDecisionSignal, modal.TaskDecision{TaskID: "restore-A1-1", Approved: true, Decider: "mallory"})
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(TaskDecisionSignal, modal.TaskDecision{TaskID: "restore-A1-9", Approved: true, Decider: "producer#alice"})
	}, 2*time.Minute)
	env.RegisterDelayedCallback(func() {
		stillOpen = queryPendingTask(t, env)
		val, err := env.QueryWorkflow(QueryAuditLog)
		require.NoError(t, err)
		require.NoError(t, val.Get(&audit))
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionSuspendedVerCoordinator, modal.ActionCompleted, 6))
	}, 3*time.Minute)

	env.ExecuteWorkflow(SuperviseAction, "A1")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.NotNil(t, stillOpen)
	assert.Equal(t, "restore-A1-1", stillOpen.ID)

	kinds := make([]string, 0, len(audit))
	for _, e := range audit {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{"ACTION_LOADED", "HUMAN_TASK_CREATED", "ERROR", "DECISION_IGNORED"}, kinds)
}

func TestSuperviseActionOpensFreshTaskPerSuspension(t *testing.T) {
	env := newEnv(t)
	env.OnActivity("LoadAction", mock.Anything, "A1").Return(snapshot(modal.ActionVerified, 1), nil)

	var second *modal.HumanTask
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionVerified, modal.ActionSuspendedVerCoordinator, 2))
		// resumed by a direct restore command, not through the workflow
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionSuspendedVerCoordinator, modal.ActionVerified, 3))
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionVerified, modal.ActionSuspendedVerCoordinator, 4))
		// stale duplicate
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionVerified, modal.ActionSuspendedVerCoordinator, 2))
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		second = queryPendingTask(t, env)
		env.SignalWorkflow(ActionEventSignal, event(modal.ActionSuspendedVerCoordinator, modal.ActionCanceled, 5))
	}, 2*time.Minute)

	env.ExecuteWorkflow(SuperviseAction, "A1")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.NotNil(t, second)
	assert.Equal(t, "restore-A1-2", second.ID)
}

func TestEventSignalerStartsSupervisor(t *testing.T) {
	c := &mocks.Client{}
	evt := event(modal.ActionVerified, modal.ActionSuspendedVerCoordinator, 4)
	c.On("SignalWithStartWorkflow", mock.Anything, "action-A1", ActionEventSignal, evt,
		mock.Anything, mock.Anything, "A1").
		Return(&mocks.WorkflowRun{}, nil).Once()

	s := newEventSignaler(c, "")
	require.NoError(t, s.Publish(context.Background(), evt))
	assert.Equal(t, TaskQueue, s.taskQueue)
	c.AssertExpectations(t)
}

func TestEventSignalerWrapsErrors(t *testing.T) {
	c := &mocks.Client{}
	c.On("SignalWithStartWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	err := newEventSignaler(c, "q").Publish(context.Background(), event(modal.ActionVerified, modal.ActionInspected, 2))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "action-A1")
}
