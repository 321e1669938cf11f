// Package errors provides the error taxonomy for the client SDK.
// Every failure carries an operation, the resource it touched and either an
// HTTP status or the underlying cause, and is classified so the generation
// queue knows whether to retry it.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors should be retried with exponential backoff.
	// Examples: 500 Internal Server Error, network timeouts, connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors should fail immediately without retry.
	// Examples: 401 Unauthorized, 404 Not Found, malformed response bodies.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Op names the repository operation that failed.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Sentinels matched by errors.Is against a *StatusError of the same Op.
var (
	ErrFetch  = stderrors.New("fetch failed")
	ErrCreate = stderrors.New("create failed")
	ErrUpdate = stderrors.New("update failed")
	ErrDelete = stderrors.New("delete failed")
)

func sentinelFor(op Op) error {
	switch op {
	case OpFetch:
		return ErrFetch
	case OpCreate:
		return ErrCreate
	case OpUpdate:
		return ErrUpdate
	case OpDelete:
		return ErrDelete
	}
	return nil
}

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Op         Op
	Resource   string
	StatusCode int
	Body       string // response body, kept for diagnostics only
	Category   ErrorCategory
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: [%s] HTTP %d", e.Op, e.Resource, e.Category, e.StatusCode)
}

// Is makes errors.Is(err, ErrUpdate) true for update failures, and so on.
func (e *StatusError) Is(target error) bool {
	s := sentinelFor(e.Op)
	return s != nil && target == s
}

// TransportError wraps a failure below HTTP: connection refused, DNS, timeout.
type TransportError struct {
	Op       Op
	Resource string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Op, e.Resource, e.Err)
}

// Unwrap returns the underlying error so callers can match context.DeadlineExceeded etc.
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not have the expected shape.
type DecodeError struct {
	Resource string
	Field    string // empty when the whole document failed to parse
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s: field %q: %v", e.Resource, e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError is returned before any request is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CategoryOf classifies any error produced by the SDK.
// Unknown errors are treated as recoverable.
func CategoryOf(err error) ErrorCategory {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.Category
	}
	var de *DecodeError
	if stderrors.As(err, &de) {
		return Irrecoverable
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return Irrecoverable
	}
	return Recoverable
}

// IsIrrecoverable returns true if the error should not be retried.
func IsIrrecoverable(err error) bool {
	return err != nil && CategoryOf(err) == Irrecoverable
}

// StatusCodeOf returns the HTTP status carried by err, if any.
func StatusCodeOf(err error) (int, bool) {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
