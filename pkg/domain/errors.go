package domain

import "errors"

// Common domain errors
var (
	ErrSchemaMissing      = errors.New("tool schema not found")
	ErrSchemaMalformed    = errors.New("tool schema malformed")
	ErrVerificationFailed = errors.New("evidence verification failed")
	ErrNotificationFailed = errors.New("blocked-domain notification failed")
	ErrConfigInvalid      = errors.New("invalid configuration")
)

// DomainError wraps errors with additional context.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the sanitized error payload returned to external clients.
// It never carries stack traces or filesystem paths; ErrorID is a short
// correlation token the caller may log internally against the full error.
type ErrorResponse struct {
	Error   string `json:"error"`
	ErrorID string `json:"error_id"`
}
