package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Base: 10 * time.Millisecond}
	for attempt, want := range []time.Duration{10, 20, 40, 80} {
		if got := b.Delay(attempt); got != want*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want*time.Millisecond)
		}
	}
	b.Max = 30 * time.Millisecond
	if got := b.Delay(5); got != 30*time.Millisecond {
		t.Errorf("capped Delay = %v", got)
	}
	j := Backoff{Base: time.Millisecond, Jitter: 5 * time.Millisecond}
	for range 50 {
		if d := j.Delay(0); d < time.Millisecond || d >= 6*time.Millisecond {
			t.Fatalf("jittered Delay out of range: %v", d)
		}
	}
}

func TestDo(t *testing.T) {
	fast := Backoff{Base: time.Microsecond}
	t.Run("succeeds_after_retries", func(t *testing.T) {
		calls := 0
		v, err := Do(t.Context(), 3, fast, isTransient, func(_ context.Context, attempt int) (int, error) {
			calls++
			if attempt < 2 {
				return 0, errTransient
			}
			return 42, nil
		})
		if err != nil || v != 42 || calls != 3 {
			t.Fatalf("got %d, %v after %d calls", v, err, calls)
		}
	})
	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		_, err := Do(t.Context(), 3, fast, isTransient, func(context.Context, int) (struct{}, error) {
			calls++
			return struct{}{}, errTransient
		})
		if !errors.Is(err, errTransient) || calls != 3 {
			t.Fatalf("got %v after %d calls", err, calls)
		}
	})
	t.Run("permanent_not_retried", func(t *testing.T) {
		calls := 0
		perm := errors.New("permanent")
		_, err := Do(t.Context(), 3, fast, isTransient, func(context.Context, int) (struct{}, error) {
			calls++
			return struct{}{}, perm
		})
		if !errors.Is(err, perm) || calls != 1 {
			t.Fatalf("got %v after %d calls", err, calls)
		}
	})
	t.Run("context_cancelled_while_waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		calls := 0
		_, err := Do(ctx, 3, Backoff{Base: time.Hour}, isTransient, func(context.Context, int) (struct{}, error) {
			calls++
			cancel()
			return struct{}{}, errTransient
		})
		if !errors.Is(err, context.Canceled) || calls != 1 {
			t.Fatalf("got %v after %d calls", err, calls)
		}
	})
}
