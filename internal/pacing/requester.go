// Package pacing issues calls to an external service at a fixed cadence with retries.
package pacing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Policy configures call spacing and retry behaviour.
type Policy struct {
	// Interval is the minimum spacing between call starts. Zero disables pacing.
	Interval    time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Requester spaces call starts by Policy.Interval and retries failures
// on a precomputed exponential schedule.
type Requester struct {
	limiter  *rate.Limiter
	schedule []time.Duration
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	onRetry  func()
}

// NewRequester builds a requester from policy.
func NewRequester(p Policy, logger *slog.Logger) *Requester {
	limit := rate.Inf
	if p.Interval > 0 {
		limit = rate.Every(p.Interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		limiter:  rate.NewLimiter(limit, 1),
		schedule: BackoffSchedule(p.BackoffBase, p.BackoffMax, p.MaxRetries),
		logger:   logger,
		sleep:    sleepContext,
	}
}

// OnRetry registers a hook invoked before every retry.
func (r *Requester) OnRetry(fn func()) {
	r.onRetry = fn
}

// MaxAttempts is the total number of calls Invoke may make.
func (r *Requester) MaxAttempts() int {
	return len(r.schedule) + 1
}

// Invoke runs call until it succeeds or the retry budget is spent. Transport
// and application failures are retried alike. It returns the number of
// attempts made and the last error.
func (r *Requester) Invoke(ctx context.Context, name string, call func(ctx context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts(); attempt++ {
		if attempt > 1 {
			delay := r.schedule[attempt-2]
			r.logger.Warn("retrying call",
				"call", name,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			if r.onRetry != nil {
				r.onRetry()
			}
			if err := r.sleep(ctx, delay); err != nil {
				return attempt - 1, err
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return attempt - 1, fmt.Errorf("wait for slot: %w", err)
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, errors.Join(lastErr, ctxErr)
		}
	}
	return r.MaxAttempts(), lastErr
}

// BackoffSchedule returns retries delays starting at base, doubling, capped at ceiling.
func BackoffSchedule(base, ceiling time.Duration, retries int) []time.Duration {
	if retries <= 0 {
		return nil
	}
	if ceiling > 0 && base > ceiling {
		base = ceiling
	}
	schedule := make([]time.Duration, retries)
	delay := base
	for i := range schedule {
		schedule[i] = delay
		delay *= 2
		if ceiling > 0 && delay > ceiling {
			delay = ceiling
		}
	}
	return schedule
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// Sleep pauses for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}
