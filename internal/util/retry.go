package util

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrPermanent marks an error that must not be retried. Wrap it with
// fmt.Errorf("...: %w", ErrPermanent) or use Permanent.
var ErrPermanent = errors.New("permanent failure")

type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent wraps err so that Retry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay. It returns nil on the first success, the error immediately if it
// is permanent, or the last error once attempts are exhausted. Failed attempts
// are logged at warn on log (nil = slog.Default()).
func Retry(ctx context.Context, log *slog.Logger, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	log = OrDefault(log)
	var err error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPermanent) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		log.Warn("attempt failed, retrying", "attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
