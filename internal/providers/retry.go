package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	// Requests per second and burst allowed per backend instance.
	defaultRateLimit = 2
	defaultBurst     = 4
)

// baseBackoff is the first retry delay; it doubles per attempt.
var baseBackoff = time.Second

type rateLimitError struct {
	retryable bool
}

func (e *rateLimitError) Error() string { return "rate limited" }

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string { return "server error: " + e.body }

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

func isRetryable(err error) bool {
	var rl *rateLimitError
	var se *serverError
	return errors.As(err, &rl) || errors.As(err, &se)
}

func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst)
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or maxRetries retries are spent. The limiter, when set, gates every
// attempt.
func retryWithBackoff(ctx context.Context, limiter *rate.Limiter, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * baseBackoff
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

// classifyStatus maps an HTTP status to the retry error taxonomy. It returns
// nil for 2xx.
func classifyStatus(code int, body string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 429:
		return &rateLimitError{retryable: true}
	case code == 401 || code == 403:
		return &authError{message: body}
	case code >= 500:
		return &serverError{statusCode: code, body: body}
	default:
		return fmt.Errorf("API error (status %d): %s", code, body)
	}
}
