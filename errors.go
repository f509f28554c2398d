package mssqlx

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrTimeout indicates an execution exceeded its configured timeout.
	ErrTimeout = errors.New("mssqlx: request timeout")

	// ErrConnection indicates a connection-level failure.
	ErrConnection = errors.New("mssqlx: connection error")

	// ErrClosed indicates an operation on a closed pool or connection.
	ErrClosed = errors.New("mssqlx: closed")
)

// ValidationError reports a bad call-site argument: a missing or duplicate
// parameter name, a missing output type, malformed savepoint sequencing.
// It is raised synchronously and never reaches the transport.
type ValidationError struct {
	// Op is the operation that rejected its input.
	Op string

	// Reason is the human-readable rejection reason.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("mssqlx: %s: %s", e.Op, e.Reason)
}

// Validationf creates a ValidationError with a formatted reason.
func Validationf(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// StateError reports an illegal connection state-machine transition attempt.
// It names the offending state and is raised synchronously: the contract
// requires callers to serialize operations on a single connection.
type StateError struct {
	// Op is the attempted operation.
	Op string

	// State is the state that made the operation illegal.
	State string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("mssqlx: cannot %s while connection is in state %s", e.Op, e.State)
}

// ProtocolError is surfaced by the transport during execution: a syntax
// error, constraint violation, or connection reset. It rejects the pending
// execution outcome.
type ProtocolError struct {
	// Message is the server or transport message.
	Message string

	// Number is the server error number, if known.
	Number int

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Number != 0 {
		return fmt.Sprintf("mssqlx: protocol error %d: %s", e.Number, e.Message)
	}
	return fmt.Sprintf("mssqlx: protocol error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// TimeoutError rejects a pending execution that exceeded its configured
// timeout. It travels the same failure path as ProtocolError.
type TimeoutError struct {
	// Timeout is the configured request timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mssqlx: request timed out after %s", e.Timeout)
}

// Is reports whether the target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsState checks if an error is a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsProtocol checks if an error is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
