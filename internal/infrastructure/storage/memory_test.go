package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DailyHoller/internal/domain"
)

func TestMemoryStoreReplaceForDateLeavesOnlyNewArticles(t *testing.T) {
	t.Parallel()

	now := fixedNow
	store := NewMemoryArticleStore(func() time.Time { return now })
	ctx := context.Background()

	yesterday := domain.Article{Title: "Old", Content: "x", City: "Troy", State: "NY", Slug: "troy-old", CreatedAt: now.AddDate(0, 0, -1)}
	_, err := store.Publish(ctx, yesterday)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := store.Publish(ctx, domain.Article{Title: "Early", Content: "x", City: "Troy", State: "NY", Slug: fmt.Sprintf("troy-early-%d", i)})
		require.NoError(t, err)
	}

	deleted, err := store.ReplaceForDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(5), deleted)

	for i := 0; i < 3; i++ {
		_, err := store.Publish(ctx, domain.Article{Title: "Fresh", Content: "x", City: "Troy", State: "NY", Slug: fmt.Sprintf("troy-fresh-%d", i)})
		require.NoError(t, err)
	}

	count, err := store.CountForDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	old, err := store.GetBySlug(ctx, "troy-old")
	require.NoError(t, err)
	require.False(t, old.IsToday)

	ok, err := store.Exists(ctx, "troy-early-0")
	require.NoError(t, err)
	require.False(t, ok, "replaced slugs are released")
}

func TestMemoryStoreEnforcesSlugUniqueness(t *testing.T) {
	t.Parallel()

	store := NewMemoryArticleStore(nil)
	ctx := context.Background()
	a := domain.Article{Title: "Big Parade", Content: "x", City: "Troy", State: "NY", Slug: "troy-big-parade"}

	_, err := store.Publish(ctx, a)
	require.NoError(t, err)
	_, err = store.Publish(ctx, a)
	require.ErrorIs(t, err, domain.ErrDuplicateSlug)

	a.Slug = ""
	_, err = store.Publish(ctx, a)
	require.ErrorIs(t, err, domain.ErrEmptySlug)
	require.Len(t, store.All(), 1)
}

func TestMemoryStoreQueries(t *testing.T) {
	t.Parallel()

	store := NewMemoryArticleStore(func() time.Time { return fixedNow })
	ctx := context.Background()

	for i, created := range []time.Time{fixedNow.Add(-3 * time.Hour), fixedNow.Add(-time.Hour), fixedNow.AddDate(0, 0, -2)} {
		_, err := store.Publish(ctx, domain.Article{
			Title: "T", Content: "x", City: "Troy", State: "NY",
			Slug: fmt.Sprintf("troy-t-%d", i), CreatedAt: created,
		})
		require.NoError(t, err)
	}
	_, err := store.Publish(ctx, domain.Article{Title: "T", Content: "x", City: "Troy", State: "AL", Slug: "troy-al"})
	require.NoError(t, err)

	list, err := store.ListByCity(ctx, "Troy", "NY", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "troy-t-1", list[0].Slug)
	require.Equal(t, "troy-t-0", list[1].Slug)

	latest, ok, err := store.LatestForCity(ctx, "Troy", "NY")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, latest.Equal(fixedNow.Add(-time.Hour)))

	_, ok, err = store.LatestForCity(ctx, "Troy", "OH")
	require.NoError(t, err)
	require.False(t, ok)

	today, err := store.ListForDate(ctx, fixedNow, 0)
	require.NoError(t, err)
	require.Len(t, today, 3)

	page, err := store.ListRecent(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "troy-t-1", page[0].Slug)
	require.Equal(t, "troy-t-0", page[1].Slug)

	past, err := store.ListRecent(ctx, 10, 4)
	require.NoError(t, err)
	require.NotNil(t, past)
	require.Empty(t, past)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, total)

	_, err = store.GetBySlug(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
