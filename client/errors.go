package client

import (
	"errors"
	"net/http"

	apierrors "github.com/storynest/storynest/client/internal/errors"
	"github.com/storynest/storynest/client/internal/shardqueue"
)

// ErrBackPressure is returned when the generation queue for a kid is full.
var ErrBackPressure = errors.New("back-pressure (queue full)")

// ErrClosed is returned by SubmitGeneration after Close.
var ErrClosed = shardqueue.ErrExecutorClosed

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// Re-exported so callers need only this package.
type (
	StatusError     = apierrors.StatusError
	TransportError  = apierrors.TransportError
	DecodeError     = apierrors.DecodeError
	ValidationError = apierrors.ValidationError
	Op              = apierrors.Op
)

// Sentinels matched by errors.Is on a *StatusError of the same operation.
var (
	ErrFetch  = apierrors.ErrFetch
	ErrCreate = apierrors.ErrCreate
	ErrUpdate = apierrors.ErrUpdate
	ErrDelete = apierrors.ErrDelete
)

// IsFetchError reports whether err is a non-2xx answer to a read.
func IsFetchError(err error) bool { return errors.Is(err, ErrFetch) }

// IsCreateError reports whether err is a non-2xx answer to a create.
func IsCreateError(err error) bool { return errors.Is(err, ErrCreate) }

// IsUpdateError reports whether err is a non-2xx answer to an update.
func IsUpdateError(err error) bool { return errors.Is(err, ErrUpdate) }

// IsDeleteError reports whether err is a non-2xx answer to a delete.
func IsDeleteError(err error) bool { return errors.Is(err, ErrDelete) }

// IsTransportError reports whether the backend could not be reached.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) { return apierrors.StatusCodeOf(err) }

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool { return err != nil && !apierrors.IsIrrecoverable(err) }
