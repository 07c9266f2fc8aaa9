package ports

import (
	"context"
	"time"

	"DailyHoller/internal/domain"
)

// WorkUnitSource enumerates the cities a run iterates over.
type WorkUnitSource interface {
	ListWorkUnits(ctx context.Context) ([]domain.City, error)
}

// CheckpointStore persists the batch cursor. Load reports false when nothing is stored.
type CheckpointStore interface {
	Load(ctx context.Context) (domain.Checkpoint, bool, error)
	Save(ctx context.Context, cp domain.Checkpoint) error
	Clear(ctx context.Context) error
}

// Completer turns a prompt into raw text using an LLM provider.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ContentGenerator produces a titled draft for a city and theme.
type ContentGenerator interface {
	Generate(ctx context.Context, city domain.City, theme domain.Theme) (domain.Draft, error)
}

// FactSource looks up real local facts used to ground generated stories.
type FactSource interface {
	Facts(ctx context.Context, city domain.City) ([]string, error)
}

// ArticleSink owns article persistence.
type ArticleSink interface {
	Publish(ctx context.Context, article domain.Article) (domain.Article, error)
	ReplaceForDate(ctx context.Context, day time.Time) (int64, error)
	Exists(ctx context.Context, slug string) (bool, error)
	LatestForCity(ctx context.Context, city, state string) (time.Time, bool, error)
	Ping(ctx context.Context) error
}

// ArticleReader serves publication queries to the presentation layer.
type ArticleReader interface {
	ListByCity(ctx context.Context, city, state string, limit int) ([]domain.Article, error)
	ListForDate(ctx context.Context, day time.Time, limit int) ([]domain.Article, error)
	CountForDate(ctx context.Context, day time.Time) (int, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.Article, error)
	Count(ctx context.Context) (int, error)
	GetBySlug(ctx context.Context, slug string) (domain.Article, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Metrics records pipeline counters.
type Metrics interface {
	ArticlePublished()
	GenerationFailed(reason string)
	PublishFailed()
	Retried()
	BatchAbandoned()
	SkippedFresh()
	FallbackUsed()
	CheckpointWriteFailed()
	GenerationLatency(d time.Duration)
	Cursor(index int)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
