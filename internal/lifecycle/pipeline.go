package lifecycle

import (
	"time"

	"action-lifecycle-service/internal/modal"
)

// VerApproveOutcome is the ver-coordinator branch table. With inspection
// required a positive result waits for the inspector and a critical error
// escalates to it; without inspection a critical error suspends.
func VerApproveOutcome(result, inspectorRequired, deleteAction bool) modal.ActionState {
	switch {
	case result && !inspectorRequired:
		return modal.ActionInspected
	case result:
		return modal.ActionVerApproved
	case !deleteAction:
		return modal.ActionExApproved
	case !inspectorRequired:
		return modal.ActionSuspendedVerCoordinator
	default:
		return modal.ActionInspected
	}
}

// InspectOutcome is the inspector branch table.
func InspectOutcome(result, deleteAction bool) modal.ActionState {
	switch {
	case result:
		return modal.ActionInspected
	case !deleteAction:
		return modal.ActionVerified
	default:
		return modal.ActionSuspendedInspector
	}
}

func execute(c Execute, o *Outcome, at time.Time) error {
	if err := guard(CmdExecute, modal.RoleExecutor, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdExecute, o.Action, modal.ActionInitialized); err != nil {
		return err
	}
	if !o.Action.ExecutorConfirmation {
		return fail(CmdExecute, ErrRoleNotDefined, "executor has not accepted the assignment")
	}
	if err := requireEvidence(CmdExecute, "documentsHash", c.DocumentsHash); err != nil {
		return err
	}

	o.Action.ExecutionDocuments = modal.Evidence{Hash: c.DocumentsHash, At: at}
	o.Action.State = modal.ActionExecuted
	return nil
}

func exApprove(c ExApprove, o *Outcome, at time.Time) error {
	if err := guard(CmdExApprove, modal.RoleExCoordinator, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdExApprove, o.Action, modal.ActionExecuted); err != nil {
		return err
	}
	if err := requireEvidence(CmdExApprove, "documentsHash", c.DocumentsHash); err != nil {
		return err
	}

	o.Action.ExApprovalDocuments = modal.Evidence{Hash: c.DocumentsHash, At: at}
	if c.Result {
		o.Action.State = modal.ActionExApproved
	} else {
		o.Action.State = modal.ActionInitialized
	}
	return nil
}

func verify(c Verify, o *Outcome, at time.Time) error {
	if err := guard(CmdVerify, modal.RoleVerifier, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdVerify, o.Action, modal.ActionExApproved); err != nil {
		return err
	}
	if !o.Action.VerifierConfirmation {
		return fail(CmdVerify, ErrRoleNotDefined, "verifier has not accepted the assignment")
	}
	if err := requireEvidence(CmdVerify, "documentsHash", c.DocumentsHash); err != nil {
		return err
	}

	o.Action.VerificationDocuments = modal.Evidence{Hash: c.DocumentsHash, At: at}
	if c.Result {
		o.Action.State = modal.ActionVerified
	} else {
		o.Action.State = modal.ActionExecuted
	}
	return nil
}

func verApprove(c VerApprove, o *Outcome, at time.Time) error {
	if err := guard(CmdVerApprove, modal.RoleVerCoordinator, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdVerApprove, o.Action, modal.ActionVerified); err != nil {
		return err
	}
	if err := requireEvidence(CmdVerApprove, "documentsHash", c.DocumentsHash); err != nil {
		return err
	}

	o.Action.VerApprovalDocuments = modal.Evidence{Hash: c.DocumentsHash, At: at}
	o.Action.State = VerApproveOutcome(c.Result, o.Task.InspectorRequired, o.Action.DeleteAction)
	return nil
}

func inspect(c Inspect, o *Outcome, at time.Time) error {
	if err := guard(CmdInspect, modal.RoleInspector, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdInspect, o.Action, modal.ActionVerApproved); err != nil {
		return err
	}
	if !o.Task.InspectorRequired {
		return fail(CmdInspect, ErrInvalidState, "task %s does not require inspection", o.Task.ID)
	}
	if err := requireEvidence(CmdInspect, "documentsHash", c.DocumentsHash); err != nil {
		return err
	}

	o.Action.InspectionDocuments = modal.Evidence{Hash: c.DocumentsHash, At: at}
	o.Action.State = InspectOutcome(c.Result, o.Action.DeleteAction)
	return nil
}
