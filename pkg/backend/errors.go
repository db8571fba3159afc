package backend

import (
	"fmt"
	"time"
)

// AdapterError represents a general management-plane error.
// It includes the adapter name, HTTP status code, and underlying error.
type AdapterError struct {
	// Adapter is the name of the adapter that produced the error
	Adapter string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("adapter %q error (status %d): %s", e.Adapter, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("adapter %q error: %s", e.Adapter, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// AuthError represents a credential rejection by the management plane
// (HTTP 401 or 403).
type AuthError struct {
	// Adapter is the name of the adapter whose credentials were rejected
	Adapter string

	// Message is the error message from the management plane
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("adapter %q authentication failed: %s", e.Adapter, e.Message)
}

// RateLimitError represents a rate limit response (HTTP 429) from the
// management plane. It includes the retry-after duration if provided.
type RateLimitError struct {
	// Adapter is the name of the adapter that was rate limited
	Adapter string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the management plane
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("adapter %q rate limited (retry after %s): %s",
			e.Adapter, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("adapter %q rate limited: %s", e.Adapter, e.Message)
}

// TimeoutError represents a management-plane request that exceeded its
// deadline.
type TimeoutError struct {
	// Adapter is the name of the adapter where the timeout occurred
	Adapter string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("adapter %q request timeout after %s", e.Adapter, e.Timeout)
}

// ParseError represents a malformed response from the management plane.
type ParseError struct {
	// Adapter is the name of the adapter that received the response
	Adapter string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("adapter %q response parse error: %v", e.Adapter, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError represents invalid adapter configuration detected at
// construction time.
type ConfigError struct {
	// Adapter is the name of the adapter being configured
	Adapter string

	// Field is the configuration field that is invalid
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("adapter %q config error for %q: %s", e.Adapter, e.Field, e.Message)
}
