// Package github is a small REST client for the repository contents, git
// tree, and Actions endpoints the agent drives.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	maxAttempts = 4
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 or 422 API error, which the
// contents API returns when a file already exists or a sha is stale.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusConflict || apiErr.StatusCode == http.StatusUnprocessableEntity)
}

// Options configures a Client.
type Options struct {
	APIURL     string
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client performs authenticated requests with retries on 429, 5xx and
// transport errors.
type Client struct {
	apiURL     string
	tokens     TokenSource
	httpClient *http.Client
	log        zerolog.Logger
	sleep      func(ctx context.Context, attempt int, retryAfter time.Duration) bool
}

// NewClient constructs a client. Tokens is required.
func NewClient(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("github: token source is required")
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
		sleep:      sleepWithBackoff,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("github token: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request, retrying transient failures, and returns the body of
// the first 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", op, err)
			if attempt < maxAttempts && isRetryableError(ctx, err) {
				c.log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("github request failed, retrying")
				if !c.sleep(ctx, attempt, 0) {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, lastErr
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, fmt.Errorf("%s: read body: %w", op, readErr)
			}
			return data, nil
		}

		lastErr = &APIError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}

		if attempt < maxAttempts && isRetryableStatus(resp.StatusCode) {
			c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("github request throttled or failed, retrying")
			if !c.sleep(ctx, attempt, retryAfterDuration(resp)) {
				return nil, ctx.Err()
			}
			continue
		}

		return nil, lastErr
	}
	return nil, lastErr
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	data, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryAfterDuration(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepWithBackoff(ctx context.Context, attempt int, retryAfter time.Duration) bool {
	base := 250 * time.Millisecond
	max := 5 * time.Second
	backoff := base * time.Duration(1<<(attempt-1))
	if backoff > max {
		backoff = max
	}
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	wait := backoff + jitter
	if retryAfter > wait {
		wait = retryAfter
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
