package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy bounds retries with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts starting at 1s, doubling, capped at 10s.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

// Backoff returns the delay after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry retries retryable errors per policy. Cancellation of ctx stops
// retrying immediately. After the final attempt the last error is returned
// wrapped in ErrRetriesExhausted.
func Retry(p RetryPolicy) Middleware {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return func(next ChatClient) ChatClient {
		return &retrying{next: next, policy: p, sleep: sleepContext}
	}
}

type retrying struct {
	next   ChatClient
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Chat(ctx context.Context, messages []Message) (string, error) {
	var last error
	for i := 0; i < r.policy.MaxAttempts; i++ {
		out, err := r.next.Chat(ctx, messages)
		if err == nil {
			return out, nil
		}
		last = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !Retryable(err) {
			return "", err
		}
		if i == r.policy.MaxAttempts-1 {
			break
		}
		if err := r.sleep(ctx, r.policy.Backoff(i)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.policy.MaxAttempts, last)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Timeout bounds each call. A call that runs out of time while the parent
// context is still live fails with *TimeoutError.
func Timeout(d time.Duration) Middleware {
	return func(next ChatClient) ChatClient {
		if d <= 0 {
			return next
		}
		return &timeboxed{next: next, d: d}
	}
}

type timeboxed struct {
	next ChatClient
	d    time.Duration
}

func (t *timeboxed) Name() string { return t.next.Name() }

func (t *timeboxed) Chat(ctx context.Context, messages []Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	out, err := t.next.Chat(callCtx, messages)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", &TimeoutError{After: t.d}
	}
	return out, err
}

// WithLogging logs request size, latency, and errors.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(next ChatClient) ChatClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next ChatClient
	log  zerolog.Logger
}

func (l *logging) Name() string { return l.next.Name() }

func (l *logging) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()
	l.log.Debug().Ctx(ctx).
		Str("client", l.next.Name()).
		Int("messages", len(messages)).
		Int("bytes", messageBytes(messages)).
		Msg("llm request")

	out, err := l.next.Chat(ctx, messages)
	if err != nil {
		l.log.Warn().Ctx(ctx).Err(err).
			Str("client", l.next.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("llm request failed")
		return "", err
	}

	l.log.Debug().Ctx(ctx).
		Str("client", l.next.Name()).
		Int("response_bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("llm response")
	return out, nil
}
