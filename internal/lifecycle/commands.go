package lifecycle

import (
	"time"

	"action-lifecycle-service/internal/modal"
)

const (
	CmdAssign             = "assign"
	CmdAccept             = "accept"
	CmdReject             = "reject"
	CmdAssignCoordinator  = "assign-coordinator"
	CmdMarkCriticalError  = "mark-critical-error"
	CmdExecute            = "execute"
	CmdExApprove          = "ex-approve"
	CmdVerify             = "verify"
	CmdVerApprove         = "ver-approve"
	CmdInspect            = "inspect"
	CmdRestore            = "restore"
	CmdSubmit             = "submit"
	CmdReview             = "review"
	CmdPay                = "pay"
	CmdComplete           = "complete"
	CmdSubstituteExecutor = "substitute-executor"
)

// Ref identifies the action a command targets and who issued it.
// A zero At is replaced by the engine clock.
type Ref struct {
	ActionID string         `json:"actionId"`
	Caller   modal.Identity `json:"caller"`
	At       time.Time      `json:"at,omitempty"`
}

func (r Ref) ref() Ref { return r }

// Command is one request against a single action. The set is closed;
// Apply rejects anything it does not recognise.
type Command interface {
	Name() string
	ref() Ref
}

// RefOf returns the target and caller of cmd.
func RefOf(cmd Command) Ref { return cmd.ref() }

type Assign struct {
	Ref
	Executor modal.Identity `json:"executor,omitempty"`
	Verifier modal.Identity `json:"verifier,omitempty"`
}

type Accept struct {
	Ref
	AsExecutor bool `json:"asExecutor,omitempty"`
	AsVerifier bool `json:"asVerifier,omitempty"`
}

type Reject struct {
	Ref
	AsExecutor bool `json:"asExecutor,omitempty"`
	AsVerifier bool `json:"asVerifier,omitempty"`
}

type AssignCoordinator struct {
	Ref
	Role     modal.RoleSlot `json:"role"`
	Identity modal.Identity `json:"identity"`
}

type MarkCriticalError struct {
	Ref
	Critical bool `json:"critical"`
}

type Execute struct {
	Ref
	DocumentsHash string `json:"documentsHash"`
}

type ExApprove struct {
	Ref
	Result        bool   `json:"result"`
	DocumentsHash string `json:"documentsHash"`
}

type Verify struct {
	Ref
	Result        bool   `json:"result"`
	DocumentsHash string `json:"documentsHash"`
}

type VerApprove struct {
	Ref
	Result        bool   `json:"result"`
	DocumentsHash string `json:"documentsHash"`
}

type Inspect struct {
	Ref
	Result        bool   `json:"result"`
	DocumentsHash string `json:"documentsHash"`
}

type Restore struct {
	Ref
	Choice modal.RestoreChoice `json:"choice"`
}

type Submit struct {
	Ref
}

type Review struct {
	Ref
	Approved bool `json:"approved"`
	Complete bool `json:"complete"`
}

type Pay struct {
	Ref
	PaymentHash string `json:"paymentHash"`
	ToExecutor  bool   `json:"toExecutor,omitempty"`
	ToVerifier  bool   `json:"toVerifier,omitempty"`
}

type Complete struct {
	Ref
}

type SubstituteExecutor struct {
	Ref
	NewExecutor modal.Identity `json:"newExecutor"`
}

func (Assign) Name() string             { return CmdAssign }
func (Accept) Name() string             { return CmdAccept }
func (Reject) Name() string             { return CmdReject }
func (AssignCoordinator) Name() string  { return CmdAssignCoordinator }
func (MarkCriticalError) Name() string  { return CmdMarkCriticalError }
func (Execute) Name() string            { return CmdExecute }
func (ExApprove) Name() string          { return CmdExApprove }
func (Verify) Name() string             { return CmdVerify }
func (VerApprove) Name() string         { return CmdVerApprove }
func (Inspect) Name() string            { return CmdInspect }
func (Restore) Name() string            { return CmdRestore }
func (Submit) Name() string             { return CmdSubmit }
func (Review) Name() string             { return CmdReview }
func (Pay) Name() string                { return CmdPay }
func (Complete) Name() string           { return CmdComplete }
func (SubstituteExecutor) Name() string { return CmdSubstituteExecutor }
