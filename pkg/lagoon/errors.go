package lagoon

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication marks 401/403 responses. Not retried anywhere.
	ErrAuthentication = errors.New("lagoon: authentication failed")

	// ErrNotFound marks 404 responses for ids, models or versions that do
	// not exist remotely.
	ErrNotFound = errors.New("lagoon: resource not found")

	// ErrWaitTimeout is returned by Wait when the caller-supplied timeout
	// expires. The remote job is left running.
	ErrWaitTimeout = errors.New("lagoon: wait timeout exceeded")

	// ErrPayloadTooLarge is returned when a file input forced inline
	// exceeds the hard ceiling the API enforces on request bodies.
	ErrPayloadTooLarge = errors.New("lagoon: inline payload too large")
)

// APIError is any non-2xx response from the API, carrying the status code
// and the server's detail message. It unwraps to ErrAuthentication or
// ErrNotFound so callers can match categories with errors.Is.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("lagoon: api status %d", e.StatusCode)
	}
	return fmt.Sprintf("lagoon: api status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401, 403:
		return ErrAuthentication
	case 404:
		return ErrNotFound
	}
	return nil
}

// ValidationError is a client-side rejection raised before any request is
// sent, when the input for an operation is malformed or missing.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("lagoon: validation error: %s: %s", e.Field, e.Message)
}

// NetworkError wraps a transport-level failure. Low-level retries happen
// inside the transport; by the time a NetworkError surfaces, they are
// exhausted.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("lagoon: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ModelError means the remote computation itself failed: the prediction
// reached status "failed". The call that observed it succeeded; the Error
// field on the prediction carries the model's failure detail.
type ModelError struct {
	Prediction *Prediction
}

func (e *ModelError) Error() string {
	if e.Prediction != nil && e.Prediction.Error != "" {
		return fmt.Sprintf("lagoon: model failed: %s", e.Prediction.Error)
	}
	return "lagoon: model failed"
}
