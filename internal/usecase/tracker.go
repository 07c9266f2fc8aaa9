package usecase

import (
	"context"
	"log/slog"
	"time"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
)

// Tracker persists the run cursor. Store failures are logged and never stop a run.
type Tracker struct {
	store   ports.CheckpointStore
	metrics ports.Metrics
	logger  *slog.Logger
}

// NewTracker wraps store. A nil store keeps no durable state.
func NewTracker(store ports.CheckpointStore, m ports.Metrics, logger *slog.Logger) *Tracker {
	if m == nil {
		m = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, metrics: m, logger: logger}
}

// Load returns the saved checkpoint, or a zero checkpoint when none is usable.
func (t *Tracker) Load(ctx context.Context) domain.Checkpoint {
	if t.store == nil {
		return domain.Checkpoint{}
	}
	cp, ok, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("load checkpoint failed, starting from the beginning", "error", err)
		return domain.Checkpoint{}
	}
	if !ok {
		return domain.Checkpoint{}
	}
	if cp.NextIndex < 0 {
		cp.NextIndex = 0
	}
	t.logger.Info("resuming from checkpoint",
		"start_index", cp.NextIndex,
		"batch", cp.BatchNumber,
		"created", cp.TotalCreated,
		"failed", cp.TotalFailed,
	)
	return cp
}

// Save stores cp.
func (t *Tracker) Save(ctx context.Context, cp domain.Checkpoint) {
	if t.store == nil {
		return
	}
	if cp.LastUpdate.IsZero() {
		cp.LastUpdate = time.Now().UTC()
	}
	if err := t.store.Save(ctx, cp); err != nil {
		t.metrics.CheckpointWriteFailed()
		t.logger.Error("save checkpoint failed", "start_index", cp.NextIndex, "error", err)
	}
}

// Clear removes the stored checkpoint after a completed pass.
func (t *Tracker) Clear(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Clear(ctx); err != nil {
		t.metrics.CheckpointWriteFailed()
		t.logger.Error("clear checkpoint failed", "error", err)
	}
}

type noopMetrics struct{}

func (noopMetrics) ArticlePublished()               {}
func (noopMetrics) GenerationFailed(string)         {}
func (noopMetrics) PublishFailed()                  {}
func (noopMetrics) Retried()                        {}
func (noopMetrics) BatchAbandoned()                 {}
func (noopMetrics) SkippedFresh()                   {}
func (noopMetrics) FallbackUsed()                   {}
func (noopMetrics) CheckpointWriteFailed()          {}
func (noopMetrics) GenerationLatency(time.Duration) {}
func (noopMetrics) Cursor(int)                      {}
