package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrInvalidState        = errors.New("invalid state")
	ErrRoleNotDefined      = errors.New("role not defined")
	ErrInvalidSelector     = errors.New("invalid selector")
	ErrMissingEvidence     = errors.New("missing evidence")
	ErrNotFound            = errors.New("not found")
	ErrStoreConflict       = errors.New("store conflict")
)

// Kind is the stable, transport-facing name of an error class.
type Kind string

const (
	KindAuthorizationDenied Kind = "AuthorizationDenied"
	KindInvalidState        Kind = "InvalidState"
	KindRoleNotDefined      Kind = "RoleNotDefined"
	KindInvalidSelector     Kind = "InvalidSelector"
	KindMissingEvidence     Kind = "MissingEvidence"
	KindNotFound            Kind = "NotFound"
	KindStoreConflict       Kind = "StoreConflict"
	KindInternal            Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAuthorizationDenied, KindAuthorizationDenied},
	{ErrInvalidState, KindInvalidState},
	{ErrRoleNotDefined, KindRoleNotDefined},
	{ErrInvalidSelector, KindInvalidSelector},
	{ErrMissingEvidence, KindMissingEvidence},
	{ErrNotFound, KindNotFound},
	{ErrStoreConflict, KindStoreConflict},
}

// KindOf classifies err. Errors outside the catalogue are Internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether re-reading and reapplying the command may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreConflict)
}

// CommandError names the command and the precondition that failed.
type CommandError struct {
	Command      string
	Precondition string
	Err          error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Precondition, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func fail(command string, err error, format string, args ...any) error {
	return &CommandError{Command: command, Precondition: fmt.Sprintf(format, args...), Err: err}
}
