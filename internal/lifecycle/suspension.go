package lifecycle

import "action-lifecycle-service/internal/modal"

// resumeState is where a suspended action re-enters the pipeline.
var resumeState = map[modal.ActionState]modal.ActionState{
	modal.ActionSuspendedVerCoordinator: modal.ActionVerified,
	modal.ActionSuspendedInspector:      modal.ActionVerApproved,
}

// restore resolves a suspension. Canceling writes both the action and its
// task; the store must commit them together.
func restore(c Restore, o *Outcome) error {
	if err := guard(CmdRestore, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdRestore, o.Action, modal.ActionSuspendedVerCoordinator, modal.ActionSuspendedInspector); err != nil {
		return err
	}

	switch c.Choice {
	case modal.RestoreContinue:
		o.Action.State = resumeState[o.Action.State]
	case modal.RestoreCancel:
		o.Action.State = modal.ActionCanceled
		o.Task.State = modal.TaskCanceled
		o.TaskChanged = true
	default:
		return fail(CmdRestore, ErrInvalidSelector, "choice must be %q or %q, got %q", modal.RestoreContinue, modal.RestoreCancel, c.Choice)
	}
	return nil
}
