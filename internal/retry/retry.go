// Package retry provides retry logic with exponential backoff.
// The relay uses it for connecting to the gateway only; direct messages are
// never retried.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
)

// Errors
var (
	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
)

// NotifyFunc is called before each retry with the failed attempt number
// (0-based), its error, and the delay before the next attempt
type NotifyFunc func(attempt int, err error, delay time.Duration)

// DoWithRetryNotify executes fn, retrying up to cfg.MaxAttempts times with
// exponential backoff. notify, if set, is invoked before every retry.
// It returns ErrMaxRetriesExceeded joined with the last error if all attempts fail.
func DoWithRetryNotify(ctx context.Context, cfg *config.RetryConfig, fn func() error, notify NotifyFunc) error {
	var err error

	for i := range cfg.MaxAttempts + 1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if i == cfg.MaxAttempts {
			break
		}

		delay := calculateBackoff(cfg, i)
		if notify != nil {
			notify(i, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return errors.Join(ErrMaxRetriesExceeded, err)
}

// calculateBackoff computes the backoff delay for a given attempt
func calculateBackoff(cfg *config.RetryConfig, attempt int) time.Duration {
	// Exponential backoff: baseDelayMs * (multiplier ^ attempt)
	delay := cfg.BaseDelayMs * time.Duration(math.Pow(cfg.Multiplier, float64(attempt)))

	return min(delay, cfg.MaxDelayMs)
}
