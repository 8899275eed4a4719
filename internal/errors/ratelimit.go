package errors

import (
	"fmt"
	"time"
)

// RateLimitError is an ErrRateLimited with remaining-time guidance attached.
// Handlers use the retry delay for the Retry-After header and user messaging.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

// Unwrap makes the error match ErrRateLimited via errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// NewRateLimitError creates a rate-limit error with the given retry delay.
func NewRateLimitError(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}
