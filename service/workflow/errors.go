package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the request lifecycle. Detail-carrying failures wrap
// their sentinel so callers match with errors.Is and extract specifics with
// errors.As.
var (
	// ErrNotAuthorized means the hierarchy gate failed; terminal for the
	// attempt and never retried.
	ErrNotAuthorized = errors.New("workflow: not authorized")

	// ErrCooldownActive means the target's promotion cooldown has not
	// elapsed yet.
	ErrCooldownActive = errors.New("workflow: cooldown active")

	// ErrAlreadyPending means the target already has an outstanding request.
	ErrAlreadyPending = errors.New("workflow: request already pending")

	// ErrRequestNotFound means no request with the given id exists.
	ErrRequestNotFound = errors.New("workflow: request not found")

	// ErrUnknownKind means the submitted kind has no registered hook set.
	ErrUnknownKind = errors.New("workflow: unknown request kind")

	// ErrExternalMutation means the directory or surface call failed mid
	// commit; the request stays Pending and the approval must be retried by
	// an operator.
	ErrExternalMutation = errors.New("workflow: external mutation failed")
)

// CooldownError carries the outstanding cooldown duration.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("workflow: cooldown active, %s remaining", e.Remaining)
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }

// AlreadyPendingError carries the id of the outstanding request.
type AlreadyPendingError struct {
	RequestID string
}

func (e *AlreadyPendingError) Error() string {
	return fmt.Sprintf("workflow: request %s already pending for target", e.RequestID)
}

func (e *AlreadyPendingError) Is(target error) bool { return target == ErrAlreadyPending }

// ExternalMutationError wraps the underlying directory/surface failure.
type ExternalMutationError struct {
	Err error
}

func (e *ExternalMutationError) Error() string {
	return fmt.Sprintf("workflow: external mutation failed: %v", e.Err)
}

func (e *ExternalMutationError) Is(target error) bool { return target == ErrExternalMutation }

func (e *ExternalMutationError) Unwrap() error { return e.Err }
