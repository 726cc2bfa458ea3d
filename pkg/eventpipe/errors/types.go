package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline operations.
var (
	// ErrRetryExhausted indicates a queued event was dropped after its last retry.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrStoreClosed indicates the queue store has been closed.
	ErrStoreClosed = errors.New("queue store closed")

	// ErrInvalidConfig indicates settings failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// HTTPError represents a non-2xx response from the ingestion endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ProviderError indicates an analytics provider failed a call.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
