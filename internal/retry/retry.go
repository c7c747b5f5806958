// Package retry wraps calls to external backends with per-attempt timeouts
// and capped exponential backoff. Only transient-looking failures (timeout,
// rate limit, 5xx) are retried; deterministic failures surface immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Config controls one wrapped backend.
type Config struct {
	// MaxAttempts is the total number of tries, not the number of retries.
	MaxAttempts int
	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// Sleep is overridable in tests. Nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 10 * time.Second
)

// Backoff returns the wait before the given 1-based attempt's successor:
// min(1s * 2^(attempt-1), 10s).
func Backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

// ExhaustedError aggregates a run of failed attempts against one service.
type ExhaustedError struct {
	Service  string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Service, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// StatusError is implemented by backend errors that carry an HTTP status.
type StatusError interface {
	error
	HTTPStatus() int
}

// Transient reports whether an error looks worth retrying: a timeout, a
// rate limit, or a server-side failure. Everything else is treated as
// deterministic.
func Transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var se StatusError
	if errors.As(err, &se) {
		status := se.HTTPStatus()
		return status == 429 || status >= 500
	}
	return false
}

// Do runs op under cfg. Each attempt gets its own deadline; between failed
// attempts it waits Backoff(attempt). After MaxAttempts transient failures
// it returns an *ExhaustedError naming the service and the last cause.
func Do[T any](ctx context.Context, log zerolog.Logger, service string, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Debug().Str("service", service).Int("attempt", attempt).Int("max_attempts", attempts).Msg("backend call")

		attemptCtx := ctx
		var cancel context.CancelFunc
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		result, err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if !Transient(err) {
			log.Warn().Str("service", service).Int("attempt", attempt).Err(err).Msg("non-transient backend error")
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := Backoff(attempt)
		log.Warn().Str("service", service).Int("attempt", attempt).Dur("backoff", delay).Err(err).Msg("backend call failed, retrying")
		if err := sleep(ctx, delay); err != nil {
			break
		}
	}

	return zero, &ExhaustedError{Service: service, Attempts: attempts, Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
