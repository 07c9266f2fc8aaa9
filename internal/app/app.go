package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"DailyHoller/internal/config"
	"DailyHoller/internal/domain"
	"DailyHoller/internal/generator"
	"DailyHoller/internal/infrastructure/cities"
	"DailyHoller/internal/infrastructure/httpapi"
	"DailyHoller/internal/infrastructure/llm"
	"DailyHoller/internal/infrastructure/metrics"
	"DailyHoller/internal/infrastructure/parser"
	"DailyHoller/internal/infrastructure/scheduler"
	"DailyHoller/internal/infrastructure/storage"
	"DailyHoller/internal/infrastructure/telegram"
	"DailyHoller/internal/logging"
	"DailyHoller/internal/pacing"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/scanner"
	"DailyHoller/internal/usecase"
	"DailyHoller/pkg/logger"
)

// ErrGenerationDisabled is returned by run commands when no completer could be built.
var ErrGenerationDisabled = errors.New("generation is not configured")

type articleStore interface {
	ports.ArticleSink
	ports.ArticleReader
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	cities       *cities.Source
	store        articleStore
	registry     *prometheus.Registry
	orchestrator *usecase.Orchestrator
	closers      []func() error
}

// New builds the application. Generation is left disabled, with a warning,
// when the LLM provider cannot be configured so the read API still serves.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, logging.WithFormat(cfg.Logging.Format))
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	src, err := cities.Load(cfg.Cities.Path, cfg.Cities.Limit)
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	a.cities = src

	store, ckpt, err := a.buildStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(a.registry)

	completer, err := llm.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		baseLogger.Warn("generation disabled", "provider", cfg.LLM.Provider, "error", err)
		return a, nil
	}

	flavor, err := generator.LoadFlavorCatalog()
	if err != nil {
		baseLogger.Warn("flavor catalog unavailable", "error", err)
	}

	gen := generator.New(generator.Deps{
		Completer:    completer,
		Facts:        a.buildFacts(),
		Flavor:       flavor,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Logger:       baseLogger.With("component", "generator"),
	})

	gc := cfg.Generation
	requester := pacing.NewRequester(pacing.Policy{
		Interval:    gc.RequestInterval,
		MaxRetries:  gc.MaxRetries,
		BackoffBase: gc.BackoffBase,
		BackoffMax:  gc.BackoffMax,
	}, baseLogger.With("component", "requester"))

	a.orchestrator = usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Units:       src,
		Checkpoints: ckpt,
		Requester:   requester,
		Generator:   gen,
		Themes:      generator.NewPicker(generator.DefaultThemes(), generator.ThemeMode(gc.ThemeMode), gc.Seed),
		Sink:        store,
		Notifier:    a.buildNotifier(),
		Metrics:     collector,
		Logger:      baseLogger.With("component", "orchestrator"),
	}, usecase.Options{
		BatchSize:          gc.BatchSize,
		Concurrency:        gc.Concurrency,
		BatchDelay:         gc.BatchDelay,
		BatchRetryDelays:   gc.BatchRetryDelays,
		FreshnessThreshold: gc.FreshnessThreshold,
		CycleDelay:         gc.CycleDelay,
		UseFallback:        gc.UseFallback,
		SlugAttempts:       gc.SlugAttempts,
	})

	return a, nil
}

func (a *Application) buildStorage(ctx context.Context) (articleStore, ports.CheckpointStore, error) {
	var (
		store articleStore
		repo  *storage.PostgresRepository
	)
	if dsn := a.cfg.Database.DSN; dsn != "" {
		db, err := storage.Open(ctx, dsn, a.cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		repo = storage.NewPostgresRepository(db)
		store = repo
	} else {
		a.logger.Warn("no database configured, articles are kept in memory")
		store = storage.NewMemoryArticleStore(nil)
	}

	cc := a.cfg.Checkpoint
	switch cc.Backend {
	case "", "file":
		return store, storage.NewFileCheckpointStore(cc.Path()), nil
	case "memory":
		return store, storage.NewMemoryCheckpointStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cc.RedisAddr, DB: cc.RedisDB})
		a.closers = append(a.closers, client.Close)
		return store, storage.NewRedisCheckpointStore(client, cc.Key), nil
	case "postgres":
		if repo == nil {
			return nil, nil, fmt.Errorf("postgres checkpoint backend requires database.dsn")
		}
		return store, storage.NewPostgresCheckpointStore(repo.DB(), cc.Key), nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend %q", cc.Backend)
	}
}

func (a *Application) buildFacts() ports.FactSource {
	fc := a.cfg.Facts
	if !fc.Enabled {
		return nil
	}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewWikipediaScanner(
		&http.Client{Timeout: fc.Timeout},
		fc.BaseURL,
		a.logger.With("component", "scanner.wikipedia"),
	))
	return parser.NewStrategySource(registry, nil, fc.Sentences, a.logger.With("component", "facts"))
}

func (a *Application) buildNotifier() ports.Notifier {
	tc := a.cfg.Notifications.Telegram
	if !tc.Enabled() {
		return nil
	}
	n, err := telegram.NewNotifier(tc.BotToken, tc.ChatID)
	if err != nil {
		a.logger.Warn("telegram notifier disabled", "error", err)
		return nil
	}
	return n
}

// Generation reports whether runs can be started.
func (a *Application) Generation() bool {
	return a.orchestrator != nil
}

// RunOnce performs a single one-shot pass over every city.
func (a *Application) RunOnce(ctx context.Context, replaceToday bool) (domain.RunSummary, error) {
	if a.orchestrator == nil {
		return domain.RunSummary{}, ErrGenerationDisabled
	}
	return a.orchestrator.Run(ctx, usecase.RunMode{ReplaceToday: replaceToday})
}

// RunForever keeps the continuous refresh loop alive until ctx ends.
func (a *Application) RunForever(ctx context.Context) error {
	if a.orchestrator == nil {
		return ErrGenerationDisabled
	}
	mode := usecase.RunMode{Continuous: true, ReplaceToday: a.cfg.Generation.ReplaceToday}
	supervisor := usecase.NewSupervisor(func(ctx context.Context) error {
		_, err := a.orchestrator.Run(ctx, mode)
		return err
	}, a.cfg.Generation.RestartDelay, a.logger.With("component", "supervisor"))

	err := supervisor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve runs the HTTP API and the daily schedule until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	deps := httpapi.RouterDeps{
		Cities:   a.cities,
		Articles: a.store,
		Gatherer: a.registry,
		Logger:   a.logger.With("component", "http"),
	}
	if a.orchestrator != nil {
		deps.Batches = a.orchestrator
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		ErrorLog:          logger.New(a.logger, "http").Std(),
	}

	var sched *usecase.Scheduler
	if a.orchestrator != nil && a.cfg.Scheduler.CronExpression != "" {
		driver := scheduler.NewCronScheduler(
			a.cfg.Scheduler.CronExpression,
			a.cfg.Scheduler.Location(),
			logger.New(a.logger, "cron"),
		)
		sched = usecase.NewScheduler(driver, a.orchestrator, true, a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				a.logger.Warn("scheduler stop", "error", err)
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.cfg.HTTP.ShutdownTimeout > 0 {
		return a.cfg.HTTP.ShutdownTimeout
	}
	return 10 * time.Second
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate applies the embedded schema migrations to the configured database.
func Migrate(cfg config.Config, baseLogger *slog.Logger) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for migrations")
	}
	return storage.RunMigrations(cfg.Database.DSN, logger.New(baseLogger, "migrate"))
}
