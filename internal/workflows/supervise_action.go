package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

const TaskQueue = "ACTION_LIFECYCLE_TASK_QUEUE"

const (
	ActionEventSignal  = "ACTION_EVENT_SIGNAL"
	TaskDecisionSignal = "TASK_DECISION_SIGNAL"
)

const (
	QueryActionState = "action_state"
	QueryPendingTask = "pending_task"
	QueryAuditLog    = "audit_log"
)

const RestoreTaskType = "RESTORE_ACTION"

// WorkflowID is the one supervisor workflow per action.
func WorkflowID(actionID string) string { return "action-" + actionID }

// ActionStatus is the supervisor's view of its action.
type ActionStatus struct {
	ActionID  string            `json:"actionId"`
	TaskID    string            `json:"taskId"`
	State     modal.ActionState `json:"state"`
	TaskState modal.TaskState   `json:"taskState"`
	Version   int64             `json:"version"`
}

type workflowState struct {
	Status      ActionStatus       `json:"status"`
	PendingTask *modal.HumanTask   `json:"pendingTask,omitempty"`
	Audit       []modal.AuditEvent `json:"audit,omitempty"`
	opened      int
}

// SuperviseAction follows the lifecycle events of one action. A suspension
// opens a RESTORE_ACTION human task; the decision is applied through the
// RestoreAction activity. The workflow ends when the action is COMPLETED or
// CANCELED and returns that state.
func SuperviseAction(ctx workflow.Context, actionID string) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("workflow started", "actionID", actionID)

	state := &workflowState{
		Status: ActionStatus{ActionID: actionID},
		Audit:  make([]modal.AuditEvent, 0),
	}

	appendAudit := func(kind, message string, data map[string]any) {
		state.Audit = append(state.Audit, modal.AuditEvent{
			At:      workflow.Now(ctx),
			Kind:    kind,
			Message: message,
			Data:    data,
		})
	}

	_ = workflow.SetQueryHandler(ctx, QueryActionState, func() (ActionStatus, error) {
		return state.Status, nil
	})
	_ = workflow.SetQueryHandler(ctx, QueryPendingTask, func() (*modal.HumanTask, error) {
		return state.PendingTask, nil
	})
	_ = workflow.SetQueryHandler(ctx, QueryAuditLog, func() ([]modal.AuditEvent, error) {
		return state.Audit, nil
	})

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var snap lifecycle.Snapshot
	if err := workflow.ExecuteActivity(ctx, "LoadAction", actionID).Get(ctx, &snap); err != nil {
		logger.Error("failed to load action", "error", err)
		return "", err
	}
	observe(state, snap.Action.TaskID, snap.Action.State, snap.Task.State, snap.Action.Version)
	appendAudit("ACTION_LOADED", "supervising action", map[string]any{
		"state":   snap.Action.State,
		"version": snap.Action.Version,
	})

	// openOrClose keeps the pending human task in step with the action state.
	openOrClose := func() {
		s := state.Status.State
		switch {
		case s.Suspended() && state.PendingTask == nil:
			state.opened++
			state.PendingTask = &modal.HumanTask{
				ID:        fmt.Sprintf("restore-%s-%d", actionID, state.opened),
				ActionID:  actionID,
				TaskID:    state.Status.TaskID,
				Type:      RestoreTaskType,
				Title:     "Decide whether to continue or cancel the suspended action",
				Reason:    fmt.Sprintf("action entered %s after a critical error", s),
				State:     s,
				CreatedAt: workflow.Now(ctx),
			}
			appendAudit("HUMAN_TASK_CREATED", "restore decision requested", map[string]any{"taskId": state.PendingTask.ID})
			logger.Info("human task created", "actionID", actionID, "taskID", state.PendingTask.ID)
		case !s.Suspended() && state.PendingTask != nil:
			appendAudit("HUMAN_TASK_CLOSED", "action left suspension", map[string]any{
				"taskId": state.PendingTask.ID,
				"state":  s,
			})
			state.PendingTask = nil
		}
	}
	openOrClose()

	var (
		decision    modal.TaskDecision
		hasDecision bool
	)
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, ActionEventSignal), func(c workflow.ReceiveChannel, more bool) {
		var evt modal.LifecycleEvent
		c.Receive(ctx, &evt)
		if !observe(state, evt.TaskID, evt.To, evt.TaskState, evt.Version) {
			return
		}
		appendAudit("LIFECYCLE_EVENT", evt.Command, map[string]any{
			"from":    evt.From,
			"to":      evt.To,
			"caller":  evt.Caller,
			"version": evt.Version,
		})
		openOrClose()
	})
	selector.AddReceive(workflow.GetSignalChannel(ctx, TaskDecisionSignal), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &decision)
		hasDecision = true
	})

	for !state.Status.State.Terminal() {
		selector.Select(ctx)
		if !hasDecision {
			continue
		}
		hasDecision = false

		task := state.PendingTask
		if task == nil || decision.TaskID != task.ID {
			appendAudit("DECISION_IGNORED", "no pending task matches the decision", map[string]any{"taskId": decision.TaskID})
			continue
		}

		req := modal.RestoreRequest{
			ActionID: actionID,
			Caller:   decision.Decider,
			Choice:   modal.RestoreCancel,
			Notes:    decision.Notes,
		}
		if decision.Approved {
			req.Choice = modal.RestoreContinue
		}

		var restored modal.Action
		if err := workflow.ExecuteActivity(ctx, "RestoreAction", req).Get(ctx, &restored); err != nil {
			// The task stays open so a permitted decider can answer it.
			appendAudit("ERROR", "RestoreAction failed", map[string]any{
				"taskId":  task.ID,
				"decider": decision.Decider,
				"error":   err.Error(),
			})
			logger.Warn("restore failed", "actionID", actionID, "error", err)
			continue
		}

		taskState := state.Status.TaskState
		if req.Choice == modal.RestoreCancel {
			taskState = modal.TaskCanceled
		}
		observe(state, restored.TaskID, restored.State, taskState, restored.Version)
		appendAudit("RESTORED", "human decision applied", map[string]any{
			"taskId":  task.ID,
			"choice":  req.Choice,
			"decider": decision.Decider,
			"state":   restored.State,
		})
		openOrClose()
	}

	appendAudit("DONE", "action reached a terminal state", map[string]any{"result": state.Status.State})
	return string(state.Status.State), nil
}

// observe records a newer action state. Events at or below the known
// version are duplicates, or echoes of a restore the workflow already applied.
func observe(state *workflowState, taskID string, s modal.ActionState, ts modal.TaskState, version int64) bool {
	if version <= state.Status.Version {
		return false
	}
	state.Status.TaskID = taskID
	state.Status.State = s
	if ts != "" {
		state.Status.TaskState = ts
	}
	state.Status.Version = version
	return true
}
