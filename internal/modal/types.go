package modal

type ActionState string

const (
	ActionInitialized             ActionState = "INITIALIZED"
	ActionExecuted                ActionState = "EXECUTED"
	ActionExApproved              ActionState = "EXAPPROVED"
	ActionVerified                ActionState = "VERIFIED"
	ActionVerApproved             ActionState = "VERAPPROVED"
	ActionInspected               ActionState = "INSPECTED"
	ActionSuspendedVerCoordinator ActionState = "SUSPENDED_VERCOORDINATOR"
	ActionSuspendedInspector      ActionState = "SUSPENDED_INSPECTOR"
	ActionSubmitted               ActionState = "SUBMITTED"
	ActionComplete                ActionState = "COMPLETE"
	ActionPaid                    ActionState = "PAID"
	ActionCompleted               ActionState = "COMPLETED"
	ActionCanceled                ActionState = "CANCELED"
)

// ActionStates lists every action state in pipeline order.
var ActionStates = []ActionState{
	ActionInitialized,
	ActionExecuted,
	ActionExApproved,
	ActionVerified,
	ActionVerApproved,
	ActionInspected,
	ActionSuspendedVerCoordinator,
	ActionSuspendedInspector,
	ActionSubmitted,
	ActionComplete,
	ActionPaid,
	ActionCompleted,
	ActionCanceled,
}

func (s ActionState) Valid() bool {
	for _, known := range ActionStates {
		if s == known {
			return true
		}
	}
	return false
}

func (s ActionState) Terminal() bool {
	return s == ActionCompleted || s == ActionCanceled
}

func (s ActionState) Suspended() bool {
	return s == ActionSuspendedVerCoordinator || s == ActionSuspendedInspector
}

type TaskState string

const (
	TaskActive    TaskState = "ACTIVE"
	TaskSubmitted TaskState = "SUBMITTED"
	TaskCanceled  TaskState = "CANCELED"
)

// RoleSlot names a party an action command can require.
type RoleSlot string

const (
	RoleProducer       RoleSlot = "producer"
	RoleExecutor       RoleSlot = "executor"
	RoleVerifier       RoleSlot = "verifier"
	RoleExCoordinator  RoleSlot = "exCoordinator"
	RoleVerCoordinator RoleSlot = "verCoordinator"
	RoleInspector      RoleSlot = "inspector"
)

type RestoreChoice string

const (
	RestoreContinue RestoreChoice = "continue"
	RestoreCancel   RestoreChoice = "cancel"
)
