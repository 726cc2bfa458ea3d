// Package errors classifies the failures that can occur while capturing and
// delivering analytics events.
//
// None of these errors reach the application code that tracks events: the
// pipeline records them as outcomes (metrics, development logs) and either
// recovers by retrying or drops the event.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how a delivery error should be treated.
type Category int

const (
	// CategoryTransient indicates a later attempt will likely succeed.
	// Examples: rate limits, 5xx responses, network failures.
	CategoryTransient Category = iota

	// CategoryPermanent indicates the endpoint rejected the payload.
	// Examples: 4xx responses, encoding failures.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %v (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%v (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Categorize determines how an error should be treated.
//
// The retry queue retries every delivery failure regardless of category;
// the category is recorded so operators can tell an outage from a rejection.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 408, httpErr.StatusCode == 429:
			return CategoryTransient
		case httpErr.StatusCode >= 500:
			return CategoryTransient
		default:
			return CategoryPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	return CategoryPermanent
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
