// internal/workflow/retry.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Clock abstracts time so bounded polling is testable without real timers.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewRealClock returns a Clock backed by the system timer.
func NewRealClock() Clock { return realClock{} }

// RetryPolicy retries an operation a bounded number of times with a fixed or
// exponentially growing delay. After the attempt budget is spent the last
// error is returned; the policy never retries indefinitely.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // 0 means BaseDelay is fixed, no growth
	clock       Clock
}

// NewRetryPolicy creates a fixed-interval policy.
func NewRetryPolicy(maxAttempts int, interval time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   interval,
		clock:       realClock{},
	}
}

// NewBackoffPolicy creates an exponential-backoff policy capped at maxDelay.
func NewBackoffPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		clock:       realClock{},
	}
}

// WithClock swaps the timer source, for tests.
func (p RetryPolicy) WithClock(c Clock) RetryPolicy {
	p.clock = c
	return p
}

// Permanent marks an error that must not be retried; Do returns the wrapped
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

type permanentError struct{ error }

func (p permanentError) Unwrap() error { return p.error }

// Do runs operation until it succeeds or attempts run out.
func (p RetryPolicy) Do(ctx context.Context, name string, operation func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = operation(ctx); err == nil {
			return nil
		}

		var perm permanentError
		if errors.As(err, &perm) {
			return perm.error
		}

		if attempt == p.MaxAttempts {
			break
		}
		if sleepErr := p.clock.Sleep(ctx, p.delay(attempt)); sleepErr != nil {
			return fmt.Errorf("%s interrupted after %d attempts: %w", name, attempt, sleepErr)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, err)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.MaxDelay <= 0 {
		return p.BaseDelay
	}
	d := p.BaseDelay * (1 << (attempt - 1))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
