package lifecycle

import (
	"fmt"
	"time"

	"action-lifecycle-service/internal/modal"
)

// Snapshot is the persisted state a command is evaluated against.
type Snapshot struct {
	Action modal.Action
	Task   modal.Task
}

// Outcome is what a successful command asks the store to write.
// TaskChanged is set only by Restore's cancel branch.
type Outcome struct {
	Action      modal.Action
	Task        modal.Task
	TaskChanged bool
}

// Apply evaluates cmd against snap. It never mutates snap; on error the
// returned Outcome is zero.
func Apply(cmd Command, snap Snapshot, now time.Time) (Outcome, error) {
	at := cmd.ref().At
	if at.IsZero() {
		at = now
	}

	o := &Outcome{Action: snap.Action.Clone(), Task: snap.Task}
	from := snap.Action.State

	var err error
	switch c := cmd.(type) {
	case Assign:
		err = assign(c, o)
	case Accept:
		err = accept(c, o)
	case Reject:
		err = reject(c, o)
	case AssignCoordinator:
		err = assignCoordinator(c, o)
	case MarkCriticalError:
		err = markCriticalError(c, o)
	case Execute:
		err = execute(c, o, at)
	case ExApprove:
		err = exApprove(c, o, at)
	case Verify:
		err = verify(c, o, at)
	case VerApprove:
		err = verApprove(c, o, at)
	case Inspect:
		err = inspect(c, o, at)
	case Restore:
		err = restore(c, o)
	case Submit:
		err = submit(c, o)
	case Review:
		err = review(c, o)
	case Pay:
		err = pay(c, o, at)
	case Complete:
		err = complete(c, o)
	case SubstituteExecutor:
		err = substituteExecutor(c, o)
	default:
		return Outcome{}, fail(fmt.Sprintf("%T", cmd), ErrInvalidSelector, "unknown command")
	}
	if err != nil {
		return Outcome{}, err
	}

	if err := ValidateTransition(from, o.Action.State); err != nil {
		return Outcome{}, fail(cmd.Name(), err, "transition")
	}
	o.Action.UpdatedAt = at
	if o.TaskChanged {
		o.Task.UpdatedAt = at
	}
	return *o, nil
}

// SubmitTask moves a task into customer review.
func SubmitTask(t modal.Task, caller modal.Identity, at time.Time) (modal.Task, error) {
	const name = "submit-task"
	if caller == "" || caller != t.Producer {
		return modal.Task{}, fail(name, ErrAuthorizationDenied, "caller %q is not the producer", caller)
	}
	if t.State != modal.TaskActive {
		return modal.Task{}, fail(name, ErrInvalidState, "task state is %s, want %s", t.State, modal.TaskActive)
	}
	t.State = modal.TaskSubmitted
	t.UpdatedAt = at
	return t, nil
}

func authorize(name string, slot modal.RoleSlot, o *Outcome, caller modal.Identity) error {
	if err := Authorize(slot, o.Action, o.Task, caller); err != nil {
		return &CommandError{Command: name, Precondition: "caller must be the " + string(slot), Err: err}
	}
	return nil
}

func requireOpenTask(name string, t modal.Task) error {
	if t.State == modal.TaskCanceled {
		return fail(name, ErrInvalidState, "task %s is canceled", t.ID)
	}
	return nil
}

func requireLive(name string, a modal.Action) error {
	if a.State.Terminal() {
		return fail(name, ErrInvalidState, "action is %s", a.State)
	}
	return nil
}

func requireState(name string, a modal.Action, want ...modal.ActionState) error {
	for _, s := range want {
		if a.State == s {
			return nil
		}
	}
	return fail(name, ErrInvalidState, "action state is %s, want %v", a.State, want)
}

func requireEvidence(name, field, value string) error {
	if value == "" {
		return fail(name, ErrMissingEvidence, "%s is required", field)
	}
	return nil
}

// guard runs the preconditions shared by every action command, in order.
func guard(name string, slot modal.RoleSlot, o *Outcome, caller modal.Identity) error {
	if err := authorize(name, slot, o, caller); err != nil {
		return err
	}
	if err := requireOpenTask(name, o.Task); err != nil {
		return err
	}
	return requireLive(name, o.Action)
}
