package modal

import "time"

// Identity is the canonical identifier of a participant.
type Identity = string

type Reward struct {
	Recipient Identity `json:"recipient,omitempty" dynamodbav:"recipient,omitempty"`
	Value     int64    `json:"value" dynamodbav:"value"`
}

// Defined reports whether someone holds the role the reward pays for.
func (r Reward) Defined() bool {
	return r.Recipient != ""
}

type Evidence struct {
	Hash string    `json:"hash,omitempty" dynamodbav:"hash,omitempty"`
	At   time.Time `json:"at,omitempty" dynamodbav:"at,omitempty"`
}

type PaymentRecord struct {
	Hash   string    `json:"hash" dynamodbav:"hash"`
	PaidBy Identity  `json:"paidBy" dynamodbav:"paid_by"`
	At     time.Time `json:"at" dynamodbav:"at"`
}

type Action struct {
	ID          string      `json:"id" dynamodbav:"action_id"`
	TaskID      string      `json:"taskId" dynamodbav:"task_id"`
	Description string      `json:"description,omitempty" dynamodbav:"description,omitempty"`
	State       ActionState `json:"state" dynamodbav:"state"`

	Executor             Identity `json:"executor,omitempty" dynamodbav:"executor,omitempty"`
	Verifier             Identity `json:"verifier,omitempty" dynamodbav:"verifier,omitempty"`
	ExecutorConfirmation bool     `json:"executorConfirmation" dynamodbav:"executor_confirmation"`
	VerifierConfirmation bool     `json:"verifierConfirmation" dynamodbav:"verifier_confirmation"`
	DeleteAction         bool     `json:"deleteAction" dynamodbav:"delete_action"`

	ExCoordinatorReward  Reward `json:"exCoordinatorReward" dynamodbav:"ex_coordinator_reward"`
	VerCoordinatorReward Reward `json:"verCoordinatorReward" dynamodbav:"ver_coordinator_reward"`
	InspectorReward      Reward `json:"inspectorReward" dynamodbav:"inspector_reward"`
	ExecutorReward       Reward `json:"executorReward" dynamodbav:"executor_reward"`
	VerifierReward       Reward `json:"verifierReward" dynamodbav:"verifier_reward"`

	ExecutionDocuments    Evidence `json:"executionDocuments" dynamodbav:"execution_documents"`
	ExApprovalDocuments   Evidence `json:"exApprovalDocuments" dynamodbav:"ex_approval_documents"`
	VerificationDocuments Evidence `json:"verificationDocuments" dynamodbav:"verification_documents"`
	VerApprovalDocuments  Evidence `json:"verApprovalDocuments" dynamodbav:"ver_approval_documents"`
	InspectionDocuments   Evidence `json:"inspectionDocuments" dynamodbav:"inspection_documents"`

	HashPaymentExecutor []PaymentRecord `json:"hashPaymentExecutor,omitempty" dynamodbav:"hash_payment_executor,omitempty"`
	HashPaymentVerifier []PaymentRecord `json:"hashPaymentVerifier,omitempty" dynamodbav:"hash_payment_verifier,omitempty"`

	Version   int64     `json:"version" dynamodbav:"version"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Clone returns a copy that shares no slices with a.
func (a Action) Clone() Action {
	c := a
	c.HashPaymentExecutor = append([]PaymentRecord(nil), a.HashPaymentExecutor...)
	c.HashPaymentVerifier = append([]PaymentRecord(nil), a.HashPaymentVerifier...)
	return c
}

type Task struct {
	ID                string    `json:"id" dynamodbav:"task_id"`
	Title             string    `json:"title,omitempty" dynamodbav:"title,omitempty"`
	Producer          Identity  `json:"producer" dynamodbav:"producer"`
	InspectorRequired bool      `json:"inspectorRequired" dynamodbav:"inspector_required"`
	State             TaskState `json:"state" dynamodbav:"state"`
	Version           int64     `json:"version" dynamodbav:"version"`
	CreatedAt         time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}
