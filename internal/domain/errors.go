package domain

import "fmt"

// AuthenticationError: bad or missing webhook signature. Always a 401.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// ValidationError: inbound payload failed validation, or the external service
// rejected the document content. Always a 400, all messages surfaced.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string { return e.Message }

// TransformationError: the order cannot be mapped into a fiscal document
// (missing or malformed customer identification). Surfaced as a 400.
type TransformationError struct {
	Message string
}

func (e *TransformationError) Error() string { return e.Message }

// TransientError: network/timeout/5xx from the external service. Retried with
// backoff inside the client; surfaced as a 500 once retries are exhausted.
type TransientError struct {
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError: credential failure against the external service. Misconfiguration,
// not load: never retried, surfaced as a 500.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }
