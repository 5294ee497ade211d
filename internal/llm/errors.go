package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingCredentials is returned when a provider has no API key.
	ErrMissingCredentials = errors.New("llm: missing credentials")
	// ErrRetriesExhausted wraps the last error after every attempt failed.
	ErrRetriesExhausted = errors.New("llm: retries exhausted")
)

// ConnectionError reports a transport failure before a response was received.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "llm connection error: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ProviderError reports a non-2xx response or an unusable body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// TimeoutError reports a call aborted by the per-call timeout.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm call timed out after %s", e.After)
}

// classifyTransport wraps an error returned by an HTTP client.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ConnectionError{Err: err}
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	var (
		connErr  *ConnectionError
		provErr  *ProviderError
		timedOut *TimeoutError
	)
	switch {
	case errors.As(err, &connErr):
		return true
	case errors.As(err, &provErr):
		return true
	case errors.As(err, &timedOut):
		return true
	default:
		return false
	}
}
