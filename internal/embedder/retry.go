package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig configures exponential backoff for provider calls
type RetryConfig struct {
	MaxRetries int           // attempts in total, including the first
	BaseDelay  time.Duration // delay after the first failure
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // growth factor between delays
}

// DefaultRetryConfig returns the retry policy of remote providers
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// StatusError is a non-200 answer from an embedding API
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration // from the Retry-After header, zero when absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Body)
}

// Temporary reports whether repeating the request may succeed: rate limits,
// timeouts and server errors are temporary, other client errors are not.
func (e *StatusError) Temporary() bool {
	switch {
	case e.Code == http.StatusTooManyRequests, e.Code == http.StatusRequestTimeout:
		return true
	case e.Code >= 500:
		return true
	default:
		return false
	}
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	err := &StatusError{Code: resp.StatusCode, Body: string(body)}
	if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
		err.RetryAfter = time.Duration(secs) * time.Second
	}
	return err
}

// retryWithBackoff calls fn until it succeeds, fails permanently, or
// MaxRetries attempts have been made. A StatusError that is not Temporary
// stops immediately; a Retry-After hint stretches the next delay up to
// MaxDelay. Cancellation of ctx wins over any retry.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		var status *StatusError
		if errors.As(err, &status) && !status.Temporary() {
			return zero, err
		}

		if attempt == config.MaxRetries-1 {
			break
		}

		delay := backoff
		if status != nil && status.RetryAfter > delay {
			delay = min(status.RetryAfter, config.MaxDelay)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		backoff = min(time.Duration(float64(backoff)*config.Multiplier), config.MaxDelay)
	}

	return zero, lastErr
}
