package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-lifecycle-service/internal/modal"
)

func TestDecodeEnvelope(t *testing.T) {
	env := Envelope{
		Command:  CmdVerApprove,
		ActionID: "A9",
		Caller:   verCoord,
		Params:   json.RawMessage(`{"result":true,"documentsHash":"abc","caller":"spoofed"}`),
	}

	cmd, err := Decode(env)
	require.NoError(t, err)

	va, ok := cmd.(VerApprove)
	require.True(t, ok, "got %T", cmd)
	assert.True(t, va.Result)
	assert.Equal(t, "abc", va.DocumentsHash)
	assert.Equal(t, Ref{ActionID: "A9", Caller: verCoord}, RefOf(cmd))
}

func TestDecodeWithoutParams(t *testing.T) {
	cmd, err := Decode(Envelope{Command: CmdSubmit, ActionID: "A1", Caller: producer})
	require.NoError(t, err)
	assert.IsType(t, Submit{}, cmd)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(Envelope{Command: "launch", ActionID: "A1"})
	assert.ErrorIs(t, err, ErrInvalidSelector)

	_, err = Decode(Envelope{Command: CmdSubmit})
	assert.ErrorIs(t, err, ErrMissingEvidence)

	_, err = Decode(Envelope{Command: CmdPay, ActionID: "A1", Params: json.RawMessage(`{"toExecutor":"yes"}`)})
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestEncodeDecodeRestore(t *testing.T) {
	in := Restore{Ref: Ref{ActionID: "A2", Caller: producer}, Choice: modal.RestoreCancel}

	env, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, CmdRestore, env.Command)
	assert.Equal(t, "A2", env.ActionID)

	out, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEveryCommandNameDecodes(t *testing.T) {
	for _, name := range CommandNames() {
		cmd, err := Decode(Envelope{Command: name, ActionID: "A1"})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestKindOf(t *testing.T) {
	err := fail(CmdExecute, ErrRoleNotDefined, "executor")
	assert.Equal(t, KindRoleNotDefined, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.True(t, Retryable(fail("put", ErrStoreConflict, "version 3")))
	assert.EqualError(t, err, "execute: executor: role not defined")
}
