// Package retry provides the bounded retry policy used around transient store calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy retries an operation up to MaxAttempts times with a constant Delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Validate checks that the policy can run at least once.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry: delay must be >= 0, got %s", p.Delay)
	}
	return nil
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts run out
// or ctx is done. The last error of fn is returned on exhaustion.
// onRetry, when set, is called after every failed attempt that will be retried.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if err := p.Validate(); err != nil {
		return err
	}

	delay := p.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	b := goretry.WithMaxRetries(uint64(p.MaxAttempts-1), goretry.NewConstant(delay))

	attempt := 0
	err := goretry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt < p.MaxAttempts && onRetry != nil {
			onRetry(attempt, err)
		}
		return goretry.RetryableError(err)
	})
	return err
}
