package lifecycle

import (
	"time"

	"action-lifecycle-service/internal/modal"
)

func submit(c Submit, o *Outcome) error {
	if err := guard(CmdSubmit, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdSubmit, o.Action, modal.ActionInspected); err != nil {
		return err
	}
	o.Action.State = modal.ActionSubmitted
	return nil
}

func review(c Review, o *Outcome) error {
	if err := guard(CmdReview, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	if err := requireState(CmdReview, o.Action, modal.ActionSubmitted); err != nil {
		return err
	}
	if o.Task.State != modal.TaskSubmitted {
		return fail(CmdReview, ErrInvalidState, "task %s has not been submitted for review", o.Task.ID)
	}

	switch {
	case c.Approved && c.Complete:
		o.Action.State = modal.ActionComplete
	case c.Approved:
		// further review rounds
	default:
		o.Action.State = modal.ActionExecuted
	}
	return nil
}

// Settled reports whether every executor/verifier holding a reward has
// received at least one payment.
func Settled(a modal.Action) bool {
	if a.ExecutorReward.Defined() && len(a.HashPaymentExecutor) == 0 {
		return false
	}
	if a.VerifierReward.Defined() && len(a.HashPaymentVerifier) == 0 {
		return false
	}
	return a.ExecutorReward.Defined() || a.VerifierReward.Defined()
}

func pay(c Pay, o *Outcome, at time.Time) error {
	if err := guard(CmdPay, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	which, err := ExactlyOneOf(c.ToExecutor, c.ToVerifier)
	if err != nil {
		return fail(CmdPay, err, "exactly one of toExecutor, toVerifier")
	}
	if err := requireEvidence(CmdPay, "paymentHash", c.PaymentHash); err != nil {
		return err
	}

	// Payment evidence is accepted in any live state; only a completed and
	// fully settled action moves to PAID.
	a := &o.Action
	rec := modal.PaymentRecord{Hash: c.PaymentHash, PaidBy: c.Caller, At: at}
	if which == 0 {
		if !a.ExecutorReward.Defined() {
			return fail(CmdPay, ErrRoleNotDefined, "executor reward has no recipient")
		}
		a.HashPaymentExecutor = append(a.HashPaymentExecutor, rec)
	} else {
		if !a.VerifierReward.Defined() {
			return fail(CmdPay, ErrRoleNotDefined, "verifier reward has no recipient")
		}
		a.HashPaymentVerifier = append(a.HashPaymentVerifier, rec)
	}
	if a.State == modal.ActionComplete && Settled(*a) {
		a.State = modal.ActionPaid
	}
	return nil
}

// complete is the producer override: it closes the action from any live state.
func complete(c Complete, o *Outcome) error {
	if err := guard(CmdComplete, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	o.Action.State = modal.ActionCompleted
	return nil
}

// substituteExecutor replaces the executor without the accept handshake.
func substituteExecutor(c SubstituteExecutor, o *Outcome) error {
	if err := guard(CmdSubstituteExecutor, modal.RoleProducer, o, c.Caller); err != nil {
		return err
	}
	if err := requireEvidence(CmdSubstituteExecutor, "newExecutor", c.NewExecutor); err != nil {
		return err
	}

	a := &o.Action
	a.Executor = c.NewExecutor
	a.ExecutorConfirmation = true
	a.ExecutorReward.Recipient = c.NewExecutor
	return nil
}
