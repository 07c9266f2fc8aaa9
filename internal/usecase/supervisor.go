package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"DailyHoller/internal/pacing"
)

// Supervisor keeps a run alive: panics and errors are logged and the run is
// restarted after a delay. It stops when ctx ends or the run returns nil.
type Supervisor struct {
	run    func(ctx context.Context) error
	delay  time.Duration
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSupervisor wraps run.
func NewSupervisor(run func(ctx context.Context) error, restartDelay time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{run: run, delay: restartDelay, logger: logger, sleep: pacing.Sleep}
}

// Run blocks until the supervised run finishes cleanly or ctx ends.
func (s *Supervisor) Run(ctx context.Context) error {
	for restarts := 0; ; restarts++ {
		err := s.safeRun(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil {
			return nil
		}

		s.logger.Error("run crashed, restarting",
			"error", err,
			"restarts", restarts+1,
			"delay", s.delay,
		)
		if err := s.sleep(ctx, s.delay); err != nil {
			return err
		}
	}
}

func (s *Supervisor) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("recovered panic", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.run(ctx)
}
