package lifecycle

import "action-lifecycle-service/internal/modal"

func assign(c Assign, o *Outcome) error {
	if err := guard(CmdAssign, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	which, err := ExactlyOneOf(c.Executor, c.Verifier)
	if err != nil {
		return fail(CmdAssign, err, "exactly one of executor, verifier")
	}

	a := &o.Action
	switch which {
	case 0:
		if a.ExecutorConfirmation {
			return fail(CmdAssign, ErrInvalidState, "executor %q already accepted", a.Executor)
		}
		a.Executor = c.Executor
	case 1:
		if a.VerifierConfirmation {
			return fail(CmdAssign, ErrInvalidState, "verifier %q already accepted", a.Verifier)
		}
		a.Verifier = c.Verifier
	}
	return nil
}

func selectedSlot(name string, asExecutor, asVerifier bool) (modal.RoleSlot, error) {
	which, err := ExactlyOneOf(asExecutor, asVerifier)
	if err != nil {
		return "", fail(name, err, "exactly one of asExecutor, asVerifier")
	}
	if which == 0 {
		return modal.RoleExecutor, nil
	}
	return modal.RoleVerifier, nil
}

func accept(c Accept, o *Outcome) error {
	slot, err := selectedSlot(CmdAccept, c.AsExecutor, c.AsVerifier)
	if err != nil {
		return err
	}
	if err := guard(CmdAccept, slot, o, c.Caller); err != nil {
		return err
	}

	a := &o.Action
	if slot == modal.RoleExecutor {
		a.ExecutorConfirmation = true
		a.ExecutorReward.Recipient = c.Caller
	} else {
		a.VerifierConfirmation = true
		a.VerifierReward.Recipient = c.Caller
	}
	return nil
}

func reject(c Reject, o *Outcome) error {
	slot, err := selectedSlot(CmdReject, c.AsExecutor, c.AsVerifier)
	if err != nil {
		return err
	}
	if err := guard(CmdReject, slot, o, c.Caller); err != nil {
		return err
	}

	a := &o.Action
	if slot == modal.RoleExecutor {
		if a.ExecutorConfirmation {
			return fail(CmdReject, ErrInvalidState, "cannot reject an accepted assignment")
		}
		a.Executor = ""
	} else {
		if a.VerifierConfirmation {
			return fail(CmdReject, ErrInvalidState, "cannot reject an accepted assignment")
		}
		a.Verifier = ""
	}
	return nil
}

func assignCoordinator(c AssignCoordinator, o *Outcome) error {
	if err := guard(CmdAssignCoordinator, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}

	a := &o.Action
	var reward *modal.Reward
	switch c.Role {
	case modal.RoleExCoordinator:
		reward = &a.ExCoordinatorReward
	case modal.RoleVerCoordinator:
		reward = &a.VerCoordinatorReward
	case modal.RoleInspector:
		if !o.Task.InspectorRequired {
			return fail(CmdAssignCoordinator, ErrInvalidState, "task %s does not require inspection", o.Task.ID)
		}
		reward = &a.InspectorReward
	default:
		return fail(CmdAssignCoordinator, ErrInvalidSelector, "role %q cannot be assigned through a reward", c.Role)
	}
	if err := requireEvidence(CmdAssignCoordinator, "identity", c.Identity); err != nil {
		return err
	}
	if reward.Defined() {
		return fail(CmdAssignCoordinator, ErrInvalidState, "%s is already held by %q", c.Role, reward.Recipient)
	}
	reward.Recipient = c.Identity
	return nil
}

func markCriticalError(c MarkCriticalError, o *Outcome) error {
	if err := guard(CmdMarkCriticalError, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	o.Action.DeleteAction = c.Critical
	return nil
}
