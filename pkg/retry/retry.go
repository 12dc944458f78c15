// Package retry runs an operation a bounded number of times with exponential
// backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is matched by every error returned after the last attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError carries the attempt count and the last failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last failure to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is makes errors.Is(err, ErrExhausted) hold.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts counts the first call; values below 1 mean a single call.
	MaxAttempts int
	// BaseDelay is doubled after every failed attempt.
	BaseDelay time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(error) bool
}

// DefaultPolicy is one call plus three retries, starting at 500ms.
var DefaultPolicy = Policy{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond}

// Result describes a finished loop.
type Result struct {
	Attempts int
	Err      error
}

// OK reports whether an attempt succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Exhausted reports whether the loop stopped because it ran out of attempts.
func (r Result) Exhausted() bool { return errors.Is(r.Err, ErrExhausted) }

// Do calls fn until it succeeds, returns a non-retryable error, the context
// ends, or the attempts run out.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, Backoff(p.BaseDelay, attempt-1)); err != nil {
				return Result{Attempts: attempt - 1, Err: err}
			}
		}

		last = fn(ctx)
		if last == nil {
			return Result{Attempts: attempt}
		}
		if p.Retryable != nil && !p.Retryable(last) {
			return Result{Attempts: attempt, Err: last}
		}
	}
	return Result{Attempts: maxAttempts, Err: &ExhaustedError{Attempts: maxAttempts, Last: last}}
}

// Backoff returns the delay before retry number n (n starts at 1).
func Backoff(base time.Duration, n int) time.Duration {
	if n < 1 || base <= 0 {
		return 0
	}
	return base * time.Duration(1<<uint(n-1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
