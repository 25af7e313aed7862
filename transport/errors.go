package transport

import (
	"fmt"
	"net/http"
)

// NetworkError reports a transport-level failure: the request never
// produced an HTTP response (connection refused, DNS failure, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a response received with a non-success status code.
// The raw body is kept so callers can surface server-provided detail.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.Status)
}

// IsUnauthorized reports whether the error is an HTTP 401, which
// session-aware callers translate into a forced logout.
func (e *HTTPError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// DecodeError reports a response body that did not parse as the
// expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError reports caller-side input problems detected before any
// network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}
