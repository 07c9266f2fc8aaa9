package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"DailyHoller/internal/ports"
)

// Scheduler wires the cron-like driver with the daily one-shot run.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
	mode         RunMode
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring daily run.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator, replaceToday bool, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:       driver,
		orchestrator: orchestrator,
		mode:         RunMode{ReplaceToday: replaceToday},
		logger:       logger,
	}
}

// Start registers the orchestrator with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run triggered", "at", trigger)
		summary, err := s.orchestrator.Run(ctx, s.mode)
		switch {
		case errors.Is(err, ErrBusy):
			s.logger.Warn("scheduled run skipped, previous run still active")
		case err != nil:
			s.logger.Error("scheduled run failed", "run_id", summary.RunID, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
