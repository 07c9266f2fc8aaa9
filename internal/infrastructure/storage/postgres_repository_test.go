package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"DailyHoller/internal/domain"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPostgresRepository(sqlx.NewDb(db, "postgres"))
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func sampleArticle() domain.Article {
	return domain.Article{
		Title:   "Local Man Declares War On Pigeons",
		Content: "Body text.",
		City:    "Springfield",
		State:   "IL",
		Slug:    "springfield-local-man-declares-war-on-pigeons",
		Theme:   "War on pigeons",
	}
}

func TestPostgresRepositoryPublish(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	a := sampleArticle()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO articles (title,content,city,state,slug,theme,is_today,created_at,published_at)")).
		WithArgs(a.Title, a.Content, a.City, a.State, a.Slug, a.Theme, true, fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	stored, err := repo.Publish(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, int64(42), stored.ID)
	require.True(t, stored.IsToday)
	require.Equal(t, fixedNow, stored.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryPublishDuplicateSlug(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Publish(context.Background(), sampleArticle())
	require.ErrorIs(t, err, domain.ErrDuplicateSlug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryPublishRejectsEmptySlug(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	a := sampleArticle()
	a.Slug = ""

	_, err := repo.Publish(context.Background(), a)
	require.ErrorIs(t, err, domain.ErrEmptySlug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryReplaceForDate(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	start, end := domain.DayBounds(fixedNow)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM articles WHERE created_at >= $1 AND created_at < $2")).
		WithArgs(start, end).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET is_today = $1 WHERE is_today = $2 AND created_at < $3")).
		WithArgs(false, true, start).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	deleted, err := repo.ReplaceForDate(context.Background(), fixedNow)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryReplaceForDateRollsBack(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM articles").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.ReplaceForDate(context.Background(), fixedNow)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryExists(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	query := regexp.QuoteMeta("SELECT 1 FROM articles WHERE slug = $1 LIMIT 1")

	mock.ExpectQuery(query).WithArgs("troy-big-parade").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs("troy-big-parade-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(query).WithArgs("broken").
		WillReturnError(sql.ErrConnDone)

	ok, err := repo.Exists(context.Background(), "troy-big-parade")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Exists(context.Background(), "troy-big-parade-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.Exists(context.Background(), "broken")
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryLatestForCity(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	query := regexp.QuoteMeta("SELECT MAX(created_at) FROM articles WHERE city = $1 AND state = $2")
	latest := fixedNow.Add(-2 * time.Hour)

	mock.ExpectQuery(query).WithArgs("Troy", "NY").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))
	mock.ExpectQuery(query).WithArgs("Nowhere", "KS").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	got, ok, err := repo.LatestForCity(context.Background(), "Troy", "NY")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(latest))

	_, ok, err = repo.LatestForCity(context.Background(), "Nowhere", "KS")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryQueries(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	cols := []string{"id", "title", "content", "city", "state", "slug", "theme", "is_today", "created_at", "published_at"}
	start, end := domain.DayBounds(fixedNow)

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE city = $1 AND state = $2 ORDER BY created_at DESC, id DESC LIMIT 5")).
		WithArgs("Troy", "NY").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, "Second", "b", "Troy", "NY", "troy-second", "", true, fixedNow, fixedNow).
			AddRow(1, "First", "a", "Troy", "NY", "troy-first", "", false, fixedNow.Add(-time.Hour), fixedNow.Add(-time.Hour)))

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC, id DESC")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(cols))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles WHERE created_at >= $1 AND created_at < $2")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles WHERE slug = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	byCity, err := repo.ListByCity(context.Background(), "Troy", "NY", 5)
	require.NoError(t, err)
	require.Len(t, byCity, 2)
	require.Equal(t, "troy-second", byCity[0].Slug)
	require.True(t, byCity[0].IsToday)

	today, err := repo.ListForDate(context.Background(), fixedNow, 0)
	require.NoError(t, err)
	require.NotNil(t, today)
	require.Empty(t, today)

	count, err := repo.CountForDate(context.Background(), fixedNow)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	_, err = repo.GetBySlug(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryListRecentPages(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	cols := []string{"id", "title", "content", "city", "state", "slug", "theme", "is_today", "created_at", "published_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM articles ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 20")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, "Seventh", "g", "Troy", "NY", "troy-seventh", "", false, fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	page, err := repo.ListRecent(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "troy-seventh", page[0].Slug)

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 21, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
