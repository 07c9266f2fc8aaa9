package pacing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestBackoffScheduleDoublesAndCaps(t *testing.T) {
	t.Parallel()

	got := BackoffSchedule(5*time.Second, 15*time.Second, 4)
	want := []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 15 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("unexpected length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delay %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if BackoffSchedule(time.Second, time.Minute, 0) != nil {
		t.Fatalf("expected empty schedule for zero retries")
	}
}

func TestInvokeRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	r := NewRequester(Policy{MaxRetries: 3, BackoffBase: time.Second, BackoffMax: 4 * time.Second}, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	retries := 0
	r.OnRetry(func() { retries++ })

	calls := 0
	attempts, err := r.Invoke(context.Background(), "gen", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 || calls != 3 || retries != 2 {
		t.Fatalf("unexpected attempts=%d calls=%d retries=%d", attempts, calls, retries)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sleeps: %v", slept)
	}
}

func TestInvokeGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	r := NewRequester(Policy{MaxRetries: 2, BackoffBase: time.Millisecond}, nil)
	r.sleep = noSleep

	calls := 0
	attempts, err := r.Invoke(context.Background(), "gen", func(context.Context) error {
		calls++
		return errors.New("empty output")
	})
	if err == nil || err.Error() != "empty output" {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestInvokeStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	r := NewRequester(Policy{MaxRetries: 5, BackoffBase: time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := r.Invoke(ctx, "gen", func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestInvokeKeepsStartCadence(t *testing.T) {
	t.Parallel()

	const interval = 60 * time.Millisecond
	r := NewRequester(Policy{Interval: interval}, nil)

	var mu sync.Mutex
	var starts []time.Time
	for i := 0; i < 3; i++ {
		_, err := r.Invoke(context.Background(), "fast", func(context.Context) error {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			return nil
		})
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
	}

	tolerance := 5 * time.Millisecond
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval-tolerance {
			t.Fatalf("calls %d and %d started %s apart, want >= %s", i-1, i, gap, interval)
		}
	}
}

func TestInvokeAddsNoDelayForSlowCalls(t *testing.T) {
	t.Parallel()

	const interval = 30 * time.Millisecond
	const work = 80 * time.Millisecond
	r := NewRequester(Policy{Interval: interval}, nil)

	var starts []time.Time
	for i := 0; i < 2; i++ {
		_, _ = r.Invoke(context.Background(), "slow", func(context.Context) error {
			starts = append(starts, time.Now())
			time.Sleep(work)
			return nil
		})
	}

	gap := starts[1].Sub(starts[0])
	if gap > work+interval {
		t.Fatalf("unexpected extra delay: gap %s for %s call", gap, work)
	}
}
