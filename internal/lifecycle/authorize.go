package lifecycle

import (
	"fmt"

	"action-lifecycle-service/internal/modal"
)

// Holder returns the identity occupying slot, or "" when nobody does.
// Coordinator and inspector slots are read from their reward recipient.
func Holder(slot modal.RoleSlot, a modal.Action, t modal.Task) modal.Identity {
	switch slot {
	case modal.RoleProducer:
		return t.Producer
	case modal.RoleExecutor:
		return a.Executor
	case modal.RoleVerifier:
		return a.Verifier
	case modal.RoleExCoordinator:
		return a.ExCoordinatorReward.Recipient
	case modal.RoleVerCoordinator:
		return a.VerCoordinatorReward.Recipient
	case modal.RoleInspector:
		return a.InspectorReward.Recipient
	}
	return ""
}

// Authorize checks that caller holds slot on the action or its task.
func Authorize(slot modal.RoleSlot, a modal.Action, t modal.Task, caller modal.Identity) error {
	holder := Holder(slot, a, t)
	if holder == "" {
		return fmt.Errorf("%w: %s", ErrRoleNotDefined, slot)
	}
	if caller == "" || caller != holder {
		return fmt.Errorf("%w: caller %q is not the %s", ErrAuthorizationDenied, caller, slot)
	}
	return nil
}

// ExactlyOneOf returns the index of the single non-zero candidate.
func ExactlyOneOf[T comparable](candidates ...T) (int, error) {
	var zero T
	selected := -1
	for i, c := range candidates {
		if c == zero {
			continue
		}
		if selected >= 0 {
			return -1, fmt.Errorf("%w: more than one of %d candidates supplied", ErrInvalidSelector, len(candidates))
		}
		selected = i
	}
	if selected < 0 {
		return -1, fmt.Errorf("%w: none of %d candidates supplied", ErrInvalidSelector, len(candidates))
	}
	return selected, nil
}
