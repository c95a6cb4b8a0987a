package access

import (
	"errors"
	"fmt"
)

// ErrTeamNotFound indicates the referenced team does not exist. For module
// access the engine fails closed and turns this into a deny Decision; the
// error itself is returned by TeamRegistry implementations.
var ErrTeamNotFound = errors.New("team not found")

// ErrUnknownRecordKind indicates ResolveFieldMask was called for a record
// kind that carries no submodule-scoped fields.
var ErrUnknownRecordKind = errors.New("unknown record kind")

// DeniedError is returned by AssertModuleAccess when the computed Decision is
// a deny. It is a correctly computed policy outcome, never a program fault;
// callers translate it into a redirect or a 403.
type DeniedError struct {
	UserID int64
	TeamID int64
	Module Module
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: user %d, team %d, module %s", e.UserID, e.TeamID, e.Module)
}

// StoreError wraps a failed read against the team registry or the group
// membership store. It is an infrastructure fault and must never be treated
// as a deny: conflating "permission absent" with "couldn't check permission"
// is a security and observability bug.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("access store read failed: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsDenied reports whether err represents an access denial rather than an
// infrastructure fault
func IsDenied(err error) bool {
	var de *DeniedError
	return errors.As(err, &de)
}

// IsStoreUnavailable reports whether err represents a failed store read
func IsStoreUnavailable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
