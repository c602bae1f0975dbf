// Package retry runs an operation again after transient failures.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes the wait between attempts.
type Backoff struct {
	// Base is doubled for every attempt.
	Base time.Duration
	// Jitter adds a uniform random duration in [0, Jitter).
	Jitter time.Duration
	// Max caps the exponential part when non-zero.
	Max time.Duration
}

// DefaultBackoff is 100ms doubling per attempt plus up to 100ms of jitter.
var DefaultBackoff = Backoff{Base: 100 * time.Millisecond, Jitter: 100 * time.Millisecond}

// Delay returns the wait after the given zero-based attempt failed.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for range attempt {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Jitter > 0 {
		d += rand.N(b.Jitter) //nolint:gosec // G404: jitter does not need a CSPRNG
	}
	return d
}

// Do calls fn up to attempts times. Only errors for which retryable returns
// true are retried; anything else is returned immediately. Waiting between
// attempts is aborted when ctx is done. The last error is returned.
func Do[T any](ctx context.Context, attempts int, b Backoff, retryable func(error) bool, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := range attempts {
		if attempt > 0 {
			if werr := Sleep(ctx, b.Delay(attempt-1)); werr != nil {
				return zero, werr
			}
		}
		var v T
		if v, err = fn(ctx, attempt); err == nil {
			return v, nil
		}
		if !retryable(err) {
			return zero, err
		}
	}
	return zero, err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
