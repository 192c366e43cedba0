// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// ErrInvalidArgument indicates a malformed or missing caller input.
	// Not retriable; the caller must correct the request.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates a referenced entity does not exist.
	// Not retriable; the caller must correct the request.
	ErrNotFound = errors.New("entity not found")

	// ErrGatewayFailure indicates the push delivery gateway call itself
	// failed (as opposed to per-token delivery failures, which are folded
	// into failure counts). Safe to retry the whole invocation: no
	// reconciliation write happens after a gateway failure.
	ErrGatewayFailure = errors.New("push gateway failure")

	// ErrStorageWrite indicates the atomic batch write failed. The store
	// guarantees all-or-nothing, so persisted state is unchanged and the
	// whole invocation is safe to retry.
	ErrStorageWrite = errors.New("storage write failure")

	// ErrStorageRead indicates a document-store read failed. Reads happen
	// before anything is sent or written, so the invocation is safe to
	// retry.
	ErrStorageRead = errors.New("storage read failure")

	// ErrStateTransition indicates an invalid recipient status transition.
	ErrStateTransition = errors.New("invalid state transition")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "event", "entrant", "fanout"
	Op      string // Operation that failed, e.g., "Dispatch", "Reconcile"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Fan-out domain errors.
var (
	ErrEventIDRequired = NewDomainError("fanout", "Dispatch", ErrInvalidArgument, "eventId is required")
	ErrEventNotFound   = NewDomainError("event", "Find", ErrNotFound, "event does not exist")
	ErrEntrantNotFound = NewDomainError("entrant", "Find", ErrNotFound, "entrant record not found")
)

// IsInvalidArgument checks if the error is a caller-input error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsGatewayFailure checks if the error came from the push gateway call.
func IsGatewayFailure(err error) bool {
	return errors.Is(err, ErrGatewayFailure)
}

// IsStorageWrite checks if the error came from the atomic batch write.
func IsStorageWrite(err error) bool {
	return errors.Is(err, ErrStorageWrite)
}

// IsRetryable reports whether the whole invocation may be safely retried.
// Every failure before the reconciliation write leaves persisted state
// untouched, so everything except caller-input errors qualifies.
func IsRetryable(err error) bool {
	return !IsInvalidArgument(err) && !IsNotFound(err)
}
