package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
)

// MemoryArticleStore keeps articles in process. Used when no database is configured and in tests.
type MemoryArticleStore struct {
	mu       sync.RWMutex
	articles []domain.Article
	bySlug   map[string]int
	nextID   int64
	now      func() time.Time
}

var (
	_ ports.ArticleSink   = (*MemoryArticleStore)(nil)
	_ ports.ArticleReader = (*MemoryArticleStore)(nil)
)

// NewMemoryArticleStore builds an empty store. A nil clock defaults to time.Now.
func NewMemoryArticleStore(now func() time.Time) *MemoryArticleStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryArticleStore{bySlug: map[string]int{}, now: now}
}

// Publish stores the article, rejecting duplicate slugs.
func (m *MemoryArticleStore) Publish(_ context.Context, article domain.Article) (domain.Article, error) {
	if err := article.Validate(); err != nil {
		return domain.Article{}, fmt.Errorf("validate article: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bySlug[article.Slug]; ok {
		return domain.Article{}, fmt.Errorf("insert article %s: %w", article.Slug, domain.ErrDuplicateSlug)
	}

	now := m.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = article.CreatedAt
	}
	article.IsToday = domain.SameDay(article.CreatedAt, now)
	m.nextID++
	article.ID = m.nextID

	m.articles = append(m.articles, article)
	m.bySlug[article.Slug] = len(m.articles) - 1
	return article, nil
}

// ReplaceForDate removes every article created on day.
func (m *MemoryArticleStore) ReplaceForDate(_ context.Context, day time.Time) (int64, error) {
	start, _ := domain.DayBounds(day)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.articles[:0]
	var deleted int64
	for _, a := range m.articles {
		if domain.SameDay(a.CreatedAt, day) {
			deleted++
			continue
		}
		if a.CreatedAt.Before(start) {
			a.IsToday = false
		}
		kept = append(kept, a)
	}
	m.articles = kept
	m.reindex()
	return deleted, nil
}

// Exists reports whether slug is stored.
func (m *MemoryArticleStore) Exists(_ context.Context, slug string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bySlug[slug]
	return ok, nil
}

// LatestForCity returns the newest creation time for the city.
func (m *MemoryArticleStore) LatestForCity(_ context.Context, city, state string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest time.Time
	found := false
	for _, a := range m.articles {
		if a.City == city && a.State == state && (!found || a.CreatedAt.After(latest)) {
			latest = a.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

// Ping always succeeds.
func (m *MemoryArticleStore) Ping(context.Context) error { return nil }

// ListByCity returns the newest articles for the city.
func (m *MemoryArticleStore) ListByCity(_ context.Context, city, state string, limit int) ([]domain.Article, error) {
	return m.filter(limit, func(a domain.Article) bool {
		return a.City == city && (state == "" || a.State == state)
	}), nil
}

// ListForDate returns the articles created on day.
func (m *MemoryArticleStore) ListForDate(_ context.Context, day time.Time, limit int) ([]domain.Article, error) {
	return m.filter(limit, func(a domain.Article) bool { return domain.SameDay(a.CreatedAt, day) }), nil
}

// CountForDate counts the articles created on day.
func (m *MemoryArticleStore) CountForDate(_ context.Context, day time.Time) (int, error) {
	return len(m.filter(0, func(a domain.Article) bool { return domain.SameDay(a.CreatedAt, day) })), nil
}

// ListRecent pages through every article, newest first.
func (m *MemoryArticleStore) ListRecent(_ context.Context, limit, offset int) ([]domain.Article, error) {
	all := m.filter(0, func(domain.Article) bool { return true })
	if offset >= len(all) {
		return []domain.Article{}, nil
	}
	all = all[max(offset, 0):]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Count returns the number of stored articles.
func (m *MemoryArticleStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles), nil
}

// GetBySlug loads one article.
func (m *MemoryArticleStore) GetBySlug(_ context.Context, slug string) (domain.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.bySlug[slug]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %s: %w", slug, domain.ErrNotFound)
	}
	return m.articles[idx], nil
}

// All returns a copy of every stored article in insertion order.
func (m *MemoryArticleStore) All() []domain.Article {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Article(nil), m.articles...)
}

func (m *MemoryArticleStore) filter(limit int, keep func(domain.Article) bool) []domain.Article {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Article{}
	for _, a := range m.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryArticleStore) reindex() {
	m.bySlug = make(map[string]int, len(m.articles))
	for i, a := range m.articles {
		m.bySlug[a.Slug] = i
	}
}
