package rest

import (
	"errors"
	"fmt"
)

// Error taxonomy for client operations. Every mutation failure is locally
// recoverable by retry; none is fatal to the session.

// ValidationError is a client-detected input error. The request is never
// sent.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError creates a pre-flight validation failure.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// RequestError is a non-2xx response, carrying the server's message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// TransportError wraps a network-level failure (server unreachable,
// connection reset, timeout). Treated like RequestError for state
// purposes: the collection is left in its last-known-good state.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return e.err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// NewTransportError wraps a network failure.
func NewTransportError(err error) error {
	return &TransportError{err: err}
}

// IsValidation reports whether the error is a pre-flight validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRequest reports whether the error is a non-2xx server response.
func IsRequest(err error) bool {
	var r *RequestError
	return errors.As(err, &r)
}

// IsTransport reports whether the error is a network failure.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}

// retryable reports whether a request that failed with err may be retried.
// Transport failures and server-side throttling/outage responses are
// retryable; everything else is not.
func retryable(err error) bool {
	if IsTransport(err) {
		return true
	}
	var r *RequestError
	if errors.As(err, &r) {
		return r.Status == 429 || r.Status >= 500
	}
	return false
}
