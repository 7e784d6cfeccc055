package lifecycle

import (
	"fmt"

	"action-lifecycle-service/internal/modal"
)

// validActionTransitions lists the edges commands may take. Self loops are
// always allowed (assignment and payment commands do not move the state),
// and every non-terminal state may be forced to COMPLETED by the producer.
var validActionTransitions = map[modal.ActionState]map[modal.ActionState]bool{
	modal.ActionInitialized: {
		modal.ActionExecuted: true,
	},
	modal.ActionExecuted: {
		modal.ActionExApproved:  true,
		modal.ActionInitialized: true,
	},
	modal.ActionExApproved: {
		modal.ActionVerified: true,
		modal.ActionExecuted: true,
	},
	modal.ActionVerified: {
		modal.ActionInspected:               true,
		modal.ActionVerApproved:             true,
		modal.ActionExApproved:              true,
		modal.ActionSuspendedVerCoordinator: true,
	},
	modal.ActionVerApproved: {
		modal.ActionInspected:          true,
		modal.ActionVerified:           true,
		modal.ActionSuspendedInspector: true,
	},
	modal.ActionInspected: {
		modal.ActionSubmitted: true,
	},
	modal.ActionSuspendedVerCoordinator: {
		modal.ActionVerified: true,
		modal.ActionCanceled: true,
	},
	modal.ActionSuspendedInspector: {
		modal.ActionVerApproved: true,
		modal.ActionCanceled:    true,
	},
	modal.ActionSubmitted: {
		modal.ActionComplete: true,
		modal.ActionExecuted: true,
	},
	modal.ActionComplete: {
		modal.ActionPaid: true,
	},
	modal.ActionPaid: {},
}

// CanTransition reports whether from → to is an edge of the lifecycle.
func CanTransition(from, to modal.ActionState) bool {
	if from.Terminal() || !from.Valid() || !to.Valid() {
		return false
	}
	if from == to || to == modal.ActionCompleted {
		return true
	}
	return validActionTransitions[from][to]
}

func ValidateTransition(from, to modal.ActionState) error {
	if from.Terminal() {
		return fmt.Errorf("%w: cannot transition from terminal state %q", ErrInvalidState, from)
	}
	if !from.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidState, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: invalid action transition: %q → %q", ErrInvalidState, from, to)
	}
	return nil
}
