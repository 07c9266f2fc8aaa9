package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
)

const (
	articlesTable   = "articles"
	uniqueViolation = "23505"
)

var articleColumns = []string{
	"id", "title", "content", "city", "state", "slug", "theme", "is_today", "created_at", "published_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists generated articles into Postgres.
type PostgresRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ ports.ArticleSink   = (*PostgresRepository)(nil)
	_ ports.ArticleReader = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sqlx.DB implementation.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// DB exposes the underlying handle for stores sharing the connection pool.
func (r *PostgresRepository) DB() *sqlx.DB {
	return r.db
}

// Open connects to Postgres through lib/pq.
func Open(ctx context.Context, dsn string, maxOpen int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	return db, nil
}

// Publish inserts one article. A slug collision fails with domain.ErrDuplicateSlug.
func (r *PostgresRepository) Publish(ctx context.Context, article domain.Article) (domain.Article, error) {
	if err := article.Validate(); err != nil {
		return domain.Article{}, fmt.Errorf("validate article: %w", err)
	}

	now := r.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = article.CreatedAt
	}
	article.IsToday = domain.SameDay(article.CreatedAt, now)

	query, args, err := psql.Insert(articlesTable).
		Columns("title", "content", "city", "state", "slug", "theme", "is_today", "created_at", "published_at").
		Values(article.Title, article.Content, article.City, article.State, article.Slug,
			article.Theme, article.IsToday, article.CreatedAt, article.PublishedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&article.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.Article{}, fmt.Errorf("insert article %s: %w", article.Slug, domain.ErrDuplicateSlug)
		}
		return domain.Article{}, fmt.Errorf("insert article %s: %w", article.Slug, err)
	}

	return article, nil
}

// ReplaceForDate deletes the articles created on day and clears stale is_today flags.
func (r *PostgresRepository) ReplaceForDate(ctx context.Context, day time.Time) (int64, error) {
	start, end := domain.DayBounds(day)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psql.Delete(articlesTable).
		Where(sq.GtOrEq{"created_at": start}).
		Where(sq.Lt{"created_at": end}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete articles for %s: %w", start.Format(time.DateOnly), err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	query, args, err = psql.Update(articlesTable).
		Set("is_today", false).
		Where(sq.Eq{"is_today": true}).
		Where(sq.Lt{"created_at": start}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build flag reset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("reset is_today: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return deleted, nil
}

// Exists reports whether slug is already stored.
func (r *PostgresRepository) Exists(ctx context.Context, slug string) (bool, error) {
	query, args, err := psql.Select("1").From(articlesTable).Where(sq.Eq{"slug": slug}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query slug %s: %w", slug, err)
	}
	return true, nil
}

// LatestForCity returns the creation time of the newest article for the city.
func (r *PostgresRepository) LatestForCity(ctx context.Context, city, state string) (time.Time, bool, error) {
	query, args, err := psql.Select("MAX(created_at)").
		From(articlesTable).
		Where(sq.Eq{"city": city, "state": state}).
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build latest: %w", err)
	}

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("query latest for %s, %s: %w", city, state, err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}

// Ping checks the connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// ListByCity returns the newest articles for a city.
func (r *PostgresRepository) ListByCity(ctx context.Context, city, state string, limit int) ([]domain.Article, error) {
	where := sq.Eq{"city": city}
	if state != "" {
		where["state"] = state
	}
	builder := psql.Select(articleColumns...).
		From(articlesTable).
		Where(where).
		OrderBy("created_at DESC", "id DESC")
	return r.selectArticles(ctx, withLimit(builder, limit))
}

// ListForDate returns the articles created on day, newest first.
func (r *PostgresRepository) ListForDate(ctx context.Context, day time.Time, limit int) ([]domain.Article, error) {
	start, end := domain.DayBounds(day)
	builder := psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.GtOrEq{"created_at": start}).
		Where(sq.Lt{"created_at": end}).
		OrderBy("created_at DESC", "id DESC")
	return r.selectArticles(ctx, withLimit(builder, limit))
}

// CountForDate counts the articles created on day.
func (r *PostgresRepository) CountForDate(ctx context.Context, day time.Time) (int, error) {
	start, end := domain.DayBounds(day)
	return r.count(ctx, psql.Select("COUNT(*)").
		From(articlesTable).
		Where(sq.GtOrEq{"created_at": start}).
		Where(sq.Lt{"created_at": end}))
}

// ListRecent pages through every article, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.Article, error) {
	builder := withLimit(psql.Select(articleColumns...).
		From(articlesTable).
		OrderBy("created_at DESC", "id DESC"), limit)
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}
	return r.selectArticles(ctx, builder)
}

// Count returns the number of stored articles.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From(articlesTable))
}

func (r *PostgresRepository) count(ctx context.Context, builder sq.SelectBuilder) (int, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// GetBySlug loads one article.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (domain.Article, error) {
	query, args, err := psql.Select(articleColumns...).From(articlesTable).Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build get: %w", err)
	}

	var article domain.Article
	if err := r.db.GetContext(ctx, &article, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article %s: %w", slug, domain.ErrNotFound)
		}
		return domain.Article{}, fmt.Errorf("get article %s: %w", slug, err)
	}
	return article, nil
}

func (r *PostgresRepository) selectArticles(ctx context.Context, builder sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	articles := []domain.Article{}
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	return articles, nil
}

func withLimit(builder sq.SelectBuilder, limit int) sq.SelectBuilder {
	if limit > 0 {
		return builder.Limit(uint64(limit))
	}
	return builder
}
