package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"action-lifecycle-service/internal/modal"
)

// Envelope is the wire form of a command, shared by the HTTP API and the
// Kafka command topic.
type Envelope struct {
	Command  string          `json:"command"`
	ActionID string          `json:"actionId"`
	Caller   modal.Identity  `json:"caller"`
	At       time.Time       `json:"at,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

func (r *Ref) setRef(v Ref) { *r = v }

type refSetter[T any] interface {
	*T
	setRef(Ref)
}

func decode[T Command, PT refSetter[T]](ref Ref, raw json.RawMessage) (Command, error) {
	var c T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: decode %s params: %v", ErrInvalidSelector, c.Name(), err)
		}
	}
	PT(&c).setRef(ref)
	return c, nil
}

var decoders = map[string]func(Ref, json.RawMessage) (Command, error){
	CmdAssign:             decode[Assign],
	CmdAccept:             decode[Accept],
	CmdReject:             decode[Reject],
	CmdAssignCoordinator:  decode[AssignCoordinator],
	CmdMarkCriticalError:  decode[MarkCriticalError],
	CmdExecute:            decode[Execute],
	CmdExApprove:          decode[ExApprove],
	CmdVerify:             decode[Verify],
	CmdVerApprove:         decode[VerApprove],
	CmdInspect:            decode[Inspect],
	CmdRestore:            decode[Restore],
	CmdSubmit:             decode[Submit],
	CmdReview:             decode[Review],
	CmdPay:                decode[Pay],
	CmdComplete:           decode[Complete],
	CmdSubstituteExecutor: decode[SubstituteExecutor],
}

// CommandNames lists every command the engine accepts.
func CommandNames() []string {
	names := make([]string, 0, len(decoders))
	for name := range decoders {
		names = append(names, name)
	}
	return names
}

// Decode turns an envelope into a typed command. The envelope's target and
// caller always win over anything repeated inside Params.
func Decode(env Envelope) (Command, error) {
	dec, ok := decoders[env.Command]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidSelector, env.Command)
	}
	if env.ActionID == "" {
		return nil, fmt.Errorf("%w: actionId is required", ErrMissingEvidence)
	}
	return dec(Ref{ActionID: env.ActionID, Caller: env.Caller, At: env.At}, env.Params)
}

// Encode is the inverse of Decode.
func Encode(cmd Command) (Envelope, error) {
	params, err := json.Marshal(cmd)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s params: %w", cmd.Name(), err)
	}
	ref := cmd.ref()
	return Envelope{
		Command:  cmd.Name(),
		ActionID: ref.ActionID,
		Caller:   ref.Caller,
		At:       ref.At,
		Params:   params,
	}, nil
}
