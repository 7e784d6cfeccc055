package modal

import "time"

// HumanTask is a decision the producer owes a suspended action.
type HumanTask struct {
	ID        string      `json:"id"`
	ActionID  string      `json:"actionId"`
	TaskID    string      `json:"taskId"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Reason    string      `json:"reason"`
	State     ActionState `json:"state"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TaskDecision answers a HumanTask. Approved resumes the pipeline, a
// rejection cancels the parent task.
type TaskDecision struct {
	TaskID    string    `json:"taskId"`
	Approved  bool      `json:"approved"`
	Notes     string    `json:"notes"`
	DecidedAt time.Time `json:"decidedAt"`
	Decider   Identity  `json:"decider"`
}

type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// LifecycleEvent is emitted once per committed command.
type LifecycleEvent struct {
	ID        string      `json:"id"`
	ActionID  string      `json:"actionId"`
	TaskID    string      `json:"taskId"`
	Command   string      `json:"command"`
	Caller    Identity    `json:"caller"`
	From      ActionState `json:"from"`
	To        ActionState `json:"to"`
	TaskState TaskState   `json:"taskState"`
	Version   int64       `json:"version"`
	At        time.Time   `json:"at"`
}

// RestoreRequest is the activity input used to resolve a suspension.
type RestoreRequest struct {
	ActionID string        `json:"actionId"`
	Caller   Identity      `json:"caller"`
	Choice   RestoreChoice `json:"choice"`
	Notes    string        `json:"notes,omitempty"`
}
