package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/pacing"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/slug"
)

// ErrBusy is returned when a run is requested while another one is active.
var ErrBusy = errors.New("generation run already in progress")

// ErrStartOutOfRange is returned by RunBatch for a start index past the last work unit.
var ErrStartOutOfRange = errors.New("start index out of range")

const defaultSlugAttempts = 5

// State is the orchestrator's position in its batch state machine.
type State string

const (
	StateIdle                State = "idle"
	StateRunning             State = "running"
	StateBatchSucceeded      State = "batch_succeeded"
	StateBatchFailedRetrying State = "batch_failed_retrying"
	StateBatchAbandoned      State = "batch_abandoned"
	StateCompleted           State = "completed"
	StateContinuingForever   State = "continuing_forever"
)

// ThemePicker chooses the theme for the work unit at a global index.
type ThemePicker interface {
	Pick(index int) domain.Theme
}

// Options tune batching, retries and the refresh loop.
type Options struct {
	BatchSize          int
	Concurrency        int
	BatchDelay         time.Duration
	BatchRetryDelays   []time.Duration
	FreshnessThreshold time.Duration
	CycleDelay         time.Duration
	UseFallback        bool
	SlugAttempts       int
}

// RunMode selects between the one-shot daily pass and the continuous refresh loop.
type RunMode struct {
	Continuous   bool
	ReplaceToday bool
	// MaxCycles stops a continuous run after that many full cycles. Zero means unbounded.
	MaxCycles int
}

// OrchestratorDeps wires the driven adapters into the orchestrator.
type OrchestratorDeps struct {
	Units       ports.WorkUnitSource
	Checkpoints ports.CheckpointStore
	Requester   *pacing.Requester
	Generator   ports.ContentGenerator
	Themes      ThemePicker
	Sink        ports.ArticleSink
	Notifier    ports.Notifier
	Metrics     ports.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Status is a snapshot of the orchestrator for operators.
type Status struct {
	State      State             `json:"state"`
	RunID      string            `json:"runId,omitempty"`
	Checkpoint domain.Checkpoint `json:"checkpoint"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// BatchInfo locates a triggered batch inside the work-unit universe.
type BatchInfo struct {
	StartIndex      int `json:"startIndex"`
	EndIndex        int `json:"endIndex"`
	RemainingCities int `json:"remainingCities"`
	TotalCities     int `json:"totalCities"`
}

// BatchReport is the response of an externally triggered batch.
type BatchReport struct {
	Success      bool      `json:"success"`
	TotalCreated int       `json:"totalCreated"`
	TotalFailed  int       `json:"totalFailed"`
	Skipped      int       `json:"skipped,omitempty"`
	BatchInfo    BatchInfo `json:"batchInfo"`
}

// Orchestrator drives work units through generation, slug assignment and
// publication in checkpointed batches.
type Orchestrator struct {
	units     ports.WorkUnitSource
	tracker   *Tracker
	requester *pacing.Requester
	generator ports.ContentGenerator
	themes    ThemePicker
	sink      ports.ArticleSink
	notifier  ports.Notifier
	metrics   ports.Metrics
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	opts      Options

	runMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// NewOrchestrator constructs the orchestrator, filling unset options with defaults.
func NewOrchestrator(deps OrchestratorDeps, opts Options) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	m := deps.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	requester := deps.Requester
	if requester == nil {
		requester = pacing.NewRequester(pacing.Policy{}, logger)
	}
	requester.OnRetry(m.Retried)

	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.SlugAttempts <= 0 {
		opts.SlugAttempts = defaultSlugAttempts
	}

	o := &Orchestrator{
		units:     deps.Units,
		tracker:   NewTracker(deps.Checkpoints, m, logger),
		requester: requester,
		generator: deps.Generator,
		themes:    deps.Themes,
		sink:      deps.Sink,
		notifier:  deps.Notifier,
		metrics:   m,
		logger:    logger,
		now:       clock,
		sleep:     pacing.Sleep,
		opts:      opts,
	}
	o.status = Status{State: StateIdle, UpdatedAt: clock()}
	return o
}

// Status returns the current state snapshot.
func (o *Orchestrator) Status() Status {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

func (o *Orchestrator) setState(state State, cp *domain.Checkpoint) {
	o.statusMu.Lock()
	prev := o.status.State
	o.status.State = state
	if cp != nil {
		o.status.Checkpoint = *cp
	}
	o.status.UpdatedAt = o.now()
	o.statusMu.Unlock()

	if prev != state {
		o.logger.Debug("orchestrator state", "from", prev, "to", state)
	}
}

func (o *Orchestrator) setRunID(id string) {
	o.statusMu.Lock()
	o.status.RunID = id
	o.statusMu.Unlock()
}

// Run processes work units from the checkpoint onwards. In one-shot mode it
// returns once the cursor reaches the end and the checkpoint is cleared. In
// continuous mode it wraps around and only returns when ctx ends or
// MaxCycles cycles completed.
func (o *Orchestrator) Run(ctx context.Context, mode RunMode) (domain.RunSummary, error) {
	if !o.runMu.TryLock() {
		return domain.RunSummary{}, ErrBusy
	}
	defer o.runMu.Unlock()
	defer o.setState(StateIdle, nil)

	units, err := o.listUnits(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	cp := o.tracker.Load(ctx)
	if cp.NextIndex > len(units) {
		o.logger.Warn("checkpoint beyond work units, restarting pass",
			"start_index", cp.NextIndex,
			"total", len(units),
		)
		cp = domain.Checkpoint{Cycle: cp.Cycle}
	}

	summary := o.newSummary(cp.Cycle)
	o.setState(StateRunning, &cp)
	o.logger.Info("generation run started",
		"run_id", summary.RunID,
		"start_index", cp.NextIndex,
		"total", len(units),
		"continuous", mode.Continuous,
	)

	used := slug.Used{}
	if mode.ReplaceToday {
		if cp.Fresh() {
			if err := o.replaceToday(ctx); err != nil {
				return summary, err
			}
		} else {
			o.logger.Info("resumed pass keeps today's articles",
				"start_index", cp.NextIndex,
				"cycle", cp.Cycle,
			)
		}
	}

	cycles := 0
	for {
		for cp.NextIndex < len(units) {
			start := cp.NextIndex
			end := min(start+o.opts.BatchSize, len(units))

			result, err := o.runBatch(ctx, units, start, end, cp.BatchNumber+1, mode.Continuous, used)
			if err != nil {
				summary.Duration = o.now().Sub(summary.StartedAt)
				return summary, err
			}

			cp = cp.Advance(end, result.Created, result.Failed, o.now())
			o.tracker.Save(ctx, cp)
			o.metrics.Cursor(cp.NextIndex)
			summary.Add(result)
			o.setState(StateRunning, &cp)

			if cp.NextIndex < len(units) {
				if err := o.sleep(ctx, o.opts.BatchDelay); err != nil {
					summary.Duration = o.now().Sub(summary.StartedAt)
					return summary, err
				}
			}
		}

		summary.Completed = true
		summary.Duration = o.now().Sub(summary.StartedAt)
		o.report(ctx, summary)

		if !mode.Continuous {
			o.tracker.Clear(ctx)
			o.setState(StateCompleted, &cp)
			return summary, nil
		}

		cycles++
		cp = cp.Wrap(o.now())
		o.tracker.Save(ctx, cp)
		o.metrics.Cursor(cp.NextIndex)
		o.setState(StateContinuingForever, &cp)
		if mode.MaxCycles > 0 && cycles >= mode.MaxCycles {
			return summary, nil
		}

		if err := o.sleep(ctx, o.opts.CycleDelay); err != nil {
			return summary, err
		}

		summary = o.newSummary(cp.Cycle)
		used = slug.Used{}
		o.setState(StateRunning, &cp)
	}
}

// RunBatch processes one slice of work units without touching the checkpoint.
// It is the seam external schedulers drive the orchestrator through.
func (o *Orchestrator) RunBatch(ctx context.Context, startIndex, batchSize int, replaceToday bool) (BatchReport, error) {
	if !o.runMu.TryLock() {
		return BatchReport{}, ErrBusy
	}
	defer o.runMu.Unlock()
	defer o.setState(StateIdle, nil)

	units, err := o.listUnits(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	if startIndex < 0 || startIndex >= len(units) {
		return BatchReport{}, fmt.Errorf("start %d of %d: %w", startIndex, len(units), ErrStartOutOfRange)
	}
	if batchSize <= 0 {
		batchSize = o.opts.BatchSize
	}
	end := min(startIndex+batchSize, len(units))

	o.setState(StateRunning, nil)
	if replaceToday && startIndex == 0 {
		if err := o.replaceToday(ctx); err != nil {
			return BatchReport{}, err
		}
	}

	result, err := o.runBatch(ctx, units, startIndex, end, 1, false, slug.Used{})
	if err != nil {
		return BatchReport{}, err
	}

	return BatchReport{
		Success:      !result.Abandoned,
		TotalCreated: result.Created,
		TotalFailed:  result.Failed,
		Skipped:      result.Skipped,
		BatchInfo: BatchInfo{
			StartIndex:      startIndex,
			EndIndex:        end,
			RemainingCities: len(units) - end,
			TotalCities:     len(units),
		},
	}, nil
}

func (o *Orchestrator) listUnits(ctx context.Context) ([]domain.City, error) {
	if o.units == nil {
		return nil, fmt.Errorf("list work units: %w", domain.ErrNoWorkUnits)
	}
	units, err := o.units.ListWorkUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list work units: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("list work units: %w", domain.ErrNoWorkUnits)
	}
	return units, nil
}

func (o *Orchestrator) newSummary(cycle int) domain.RunSummary {
	id := uuid.NewString()
	o.setRunID(id)
	return domain.RunSummary{RunID: id, Cycle: cycle, StartedAt: o.now()}
}

func (o *Orchestrator) replaceToday(ctx context.Context) error {
	deleted, err := o.sink.ReplaceForDate(ctx, o.now())
	if err != nil {
		return fmt.Errorf("replace today's articles: %w", err)
	}
	o.logger.Info("cleared today's articles", "deleted", deleted)
	return nil
}

// runBatch retries batch-level failures on the configured schedule and
// abandons the batch once the schedule is spent. Only context errors are returned.
func (o *Orchestrator) runBatch(ctx context.Context, units []domain.City, start, end, number int, skipFresh bool, used slug.Used) (domain.BatchResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := o.processBatch(ctx, units, start, end, skipFresh, used)
		result.Number = number
		if err == nil {
			o.setState(StateBatchSucceeded, nil)
			o.logger.Info("batch finished",
				"batch", number,
				"start_index", start,
				"end_index", end,
				"created", result.Created,
				"failed", result.Failed,
				"skipped", result.Skipped,
			)
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		if attempt >= len(o.opts.BatchRetryDelays) {
			o.setState(StateBatchAbandoned, nil)
			o.metrics.BatchAbandoned()
			o.logger.Error("batch abandoned",
				"batch", number,
				"start_index", start,
				"end_index", end,
				"attempts", attempt+1,
				"error", err,
			)
			return domain.BatchResult{
				Number:     number,
				StartIndex: start,
				EndIndex:   end,
				Failed:     end - start,
				Abandoned:  true,
			}, nil
		}

		delay := o.opts.BatchRetryDelays[attempt]
		o.setState(StateBatchFailedRetrying, nil)
		o.logger.Warn("batch failed, retrying",
			"batch", number,
			"start_index", start,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := o.sleep(ctx, delay); err != nil {
			return result, err
		}
	}
}

type pendingUnit struct {
	index int
	job   *domain.GenerationJob
	prior bool
}

// processBatch returns a batch-level error only before anything is published,
// so a retried batch never duplicates articles. Each article is published as
// soon as its generation succeeds.
func (o *Orchestrator) processBatch(ctx context.Context, units []domain.City, start, end int, skipFresh bool, used slug.Used) (domain.BatchResult, error) {
	result := domain.BatchResult{StartIndex: start, EndIndex: end}

	if err := o.sink.Ping(ctx); err != nil {
		return result, fmt.Errorf("ping sink: %w", err)
	}

	checkPrior := o.opts.UseFallback || (skipFresh && o.opts.FreshnessThreshold > 0)
	pending := make([]pendingUnit, 0, end-start)
	for i := start; i < end; i++ {
		city := units[i]
		item := pendingUnit{index: i}

		if checkPrior {
			latest, ok, err := o.sink.LatestForCity(ctx, city.Name, city.State)
			if err != nil {
				return result, fmt.Errorf("latest article for %s, %s: %w", city.Name, city.State, err)
			}
			if skipFresh && ok && o.opts.FreshnessThreshold > 0 && o.now().Sub(latest) < o.opts.FreshnessThreshold {
				result.Skipped++
				o.metrics.SkippedFresh()
				o.logger.Debug("city still fresh", "city_id", city.ID, "city", city.Name, "latest", latest)
				continue
			}
			item.prior = ok
		}

		item.job = domain.NewGenerationJob(city, o.pickTheme(i), o.requester.MaxAttempts())
		pending = append(pending, item)
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(o.opts.Concurrency)
	for _, item := range pending {
		g.Go(func() error {
			o.generate(ctx, item.job)

			mu.Lock()
			defer mu.Unlock()
			o.settle(ctx, item, used, &result)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// settle publishes a succeeded job as soon as it is generated, or records
// the failure. Callers serialize settle calls.
func (o *Orchestrator) settle(ctx context.Context, item pendingUnit, used slug.Used, result *domain.BatchResult) {
	job := item.job
	if job.Status != domain.StatusSucceeded {
		result.Failed++
		if item.prior {
			result.Fallbacks++
			o.metrics.FallbackUsed()
			o.logger.Info("keeping previous article",
				"city_id", job.City.ID,
				"city", job.City.Name,
				"state", job.City.State,
			)
		}
		return
	}

	// A paid generation is stored even when the run is being cancelled.
	article, err := o.publish(context.WithoutCancel(ctx), job, used)
	if err != nil {
		result.Failed++
		o.metrics.PublishFailed()
		o.logger.Error("publish failed",
			"index", item.index,
			"city_id", job.City.ID,
			"city", job.City.Name,
			"state", job.City.State,
			"error", err,
		)
		return
	}
	result.Created++
	result.Articles = append(result.Articles, article)
}

func (o *Orchestrator) pickTheme(index int) domain.Theme {
	if o.themes == nil {
		return domain.Theme{}
	}
	return o.themes.Pick(index)
}

func (o *Orchestrator) generate(ctx context.Context, job *domain.GenerationJob) {
	started := o.now()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("generator panic: %v", r)
		job.Fail(&domain.GenerationError{CityID: job.City.ID, Attempts: job.Attempts, Err: err})
		o.metrics.GenerationFailed("panic")
		o.logger.Error("generation panicked",
			"city_id", job.City.ID,
			"city", job.City.Name,
			"state", job.City.State,
			"attempt", job.Attempts,
			"panic", r,
		)
	}()
	var draft domain.Draft
	attempts, err := o.requester.Invoke(ctx, "generate "+job.City.ID, func(ctx context.Context) error {
		if !job.Attempt() {
			return fmt.Errorf("attempt budget spent for %s", job.City.ID)
		}
		d, err := o.generator.Generate(ctx, job.City, job.Theme)
		if err != nil {
			return err
		}
		draft = d
		return nil
	})
	o.metrics.GenerationLatency(o.now().Sub(started))

	if err != nil {
		genErr := &domain.GenerationError{CityID: job.City.ID, Attempts: attempts, Err: err}
		job.Fail(genErr)
		o.metrics.GenerationFailed(failureReason(err))
		o.logger.Warn("generation failed",
			"city_id", job.City.ID,
			"city", job.City.Name,
			"state", job.City.State,
			"attempt", attempts,
			"error", err,
		)
		return
	}
	job.Succeed(draft)
}

func (o *Orchestrator) publish(ctx context.Context, job *domain.GenerationJob, used slug.Used) (domain.Article, error) {
	taken := slug.SetFunc(func(candidate string) bool {
		if used.Has(candidate) {
			return true
		}
		exists, err := o.sink.Exists(ctx, candidate)
		if err != nil {
			o.logger.Debug("slug lookup failed", "slug", candidate, "error", err)
			return false
		}
		return exists
	})

	for try := 0; try < o.opts.SlugAttempts; try++ {
		s := slug.Assign(job.Draft.Title, job.City.Name, taken)
		if s == "" {
			return domain.Article{}, domain.ErrEmptySlug
		}

		stored, err := o.sink.Publish(ctx, domain.Article{
			Title:     job.Draft.Title,
			Content:   job.Draft.Body,
			City:      job.City.Name,
			State:     job.City.State,
			Slug:      s,
			Theme:     job.Theme.Title,
			CreatedAt: o.now().UTC(),
		})
		if errors.Is(err, domain.ErrDuplicateSlug) {
			used.Add(s)
			o.logger.Debug("slug collision on publish", "slug", s)
			continue
		}
		if err != nil {
			return domain.Article{}, err
		}

		used.Add(s)
		o.metrics.ArticlePublished()
		return stored, nil
	}
	return domain.Article{}, fmt.Errorf("publish %s after %d slugs: %w", job.City.ID, o.opts.SlugAttempts, domain.ErrDuplicateSlug)
}

func (o *Orchestrator) report(ctx context.Context, summary domain.RunSummary) {
	o.logger.Info("generation run finished",
		"run_id", summary.RunID,
		"cycle", summary.Cycle,
		"created", summary.Created,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"fallbacks", summary.Fallbacks,
		"abandoned", summary.Abandoned,
		"duration", summary.Duration,
	)
	if o.notifier == nil {
		return
	}
	if err := o.notifier.PublishDigest(ctx, buildDigestMessage(summary)); err != nil {
		o.logger.Warn("publish digest failed", "run_id", summary.RunID, "error", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "upstream"
	}
}
