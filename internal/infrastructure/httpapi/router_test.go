package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/infrastructure/cities"
	"DailyHoller/internal/infrastructure/metrics"
	"DailyHoller/internal/infrastructure/storage"
	"DailyHoller/internal/usecase"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type stubRunner struct {
	report usecase.BatchReport
	err    error
	calls  []batchRequest
}

func (s *stubRunner) RunBatch(_ context.Context, start, size int, replace bool) (usecase.BatchReport, error) {
	s.calls = append(s.calls, batchRequest{StartIndex: start, BatchSize: size, ReplaceToday: replace})
	return s.report, s.err
}

func (s *stubRunner) Status() usecase.Status {
	return usecase.Status{State: usecase.StateIdle}
}

func newTestRouter(t *testing.T, runner BatchRunner) (http.Handler, *storage.MemoryArticleStore) {
	t.Helper()

	src, err := cities.New([]domain.City{
		{Name: "Springfield", State: "IL", StateName: "Illinois", Population: 114394},
		{Name: "Troy", State: "NY", StateName: "New York", Population: 51401},
		{Name: "Dayton", State: "OH", StateName: "Ohio", Population: 137644},
	}, 0)
	require.NoError(t, err)

	store := storage.NewMemoryArticleStore(func() time.Time { return now })
	for _, a := range []domain.Article{
		{Title: "Pigeons Win", Content: "x", City: "Springfield", State: "IL", Slug: "springfield-pigeons-win", CreatedAt: now.Add(-time.Hour)},
		{Title: "Mayor Naps", Content: "x", City: "Springfield", State: "IL", Slug: "springfield-mayor-naps", CreatedAt: now.Add(-26 * time.Hour)},
		{Title: "River Sulks", Content: "x", City: "Troy", State: "NY", Slug: "troy-river-sulks", CreatedAt: now.Add(-2 * time.Hour)},
	} {
		_, err := store.Publish(context.Background(), a)
		require.NoError(t, err)
	}

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).ArticlePublished()

	return NewRouter(RouterDeps{
		Cities:   src,
		Articles: store,
		Batches:  runner,
		Gatherer: reg,
		Clock:    func() time.Time { return now },
	}), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, &stubRunner{})
	rec := do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Contains(t, rec.Body.String(), `"generation":"idle"`)
}

func TestCities(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/cities?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page cities.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Cities, 2)
	require.Equal(t, "Dayton", page.Cities[0].Name)

	rec = do(t, h, http.MethodGet, "/api/cities?search=troy", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)

	rec = do(t, h, http.MethodGet, "/api/cities?page=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/cities/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Springfield"`)

	rec = do(t, h, http.MethodGet, "/api/cities/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewsEndpoints(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/news/today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var today todayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &today))
	require.Equal(t, 2, today.Count)
	require.Equal(t, 2, today.TotalToday)
	require.Equal(t, "2026-10-16", today.Date)
	require.Equal(t, "springfield-pigeons-win", today.Articles[0].Slug)

	rec = do(t, h, http.MethodGet, "/api/news/today?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &today))
	require.Equal(t, 1, today.Count)
	require.Equal(t, 2, today.TotalToday)

	rec = do(t, h, http.MethodGet, "/api/news/city/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var city cityNewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	require.Equal(t, 2, city.Count)
	require.Equal(t, "2", city.CityID)
	require.Equal(t, "springfield-pigeons-win", city.Articles[0].Slug)

	rec = do(t, h, http.MethodGet, "/api/news/city/1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	require.Equal(t, 0, city.Count)
	require.NotNil(t, city.Articles)

	rec = do(t, h, http.MethodGet, "/api/news/today?limit=0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentNewsPages(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/news?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page newsPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.Limit)
	require.True(t, page.HasMore)
	require.Len(t, page.Articles, 2)
	require.Equal(t, "springfield-pigeons-win", page.Articles[0].Slug)
	require.Equal(t, "troy-river-sulks", page.Articles[1].Slug)

	rec = do(t, h, http.MethodGet, "/api/news?limit=2&offset=2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.False(t, page.HasMore)
	require.Len(t, page.Articles, 1)
	require.Equal(t, "springfield-mayor-naps", page.Articles[0].Slug)

	rec = do(t, h, http.MethodGet, "/api/news?offset=-1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCityBySlug(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/cities/slug/troy-ny", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Troy"`)

	rec = do(t, h, http.MethodGet, "/api/cities/slug/troy-oh", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArticleBySlug(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/articles/by-slug/troy-river-sulks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"River Sulks"`)

	rec = do(t, h, http.MethodGet, "/api/articles/by-slug/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateBatch(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{report: usecase.BatchReport{
		Success:      true,
		TotalCreated: 9,
		TotalFailed:  1,
		BatchInfo:    usecase.BatchInfo{StartIndex: 10, EndIndex: 20, RemainingCities: 5, TotalCities: 25},
	}}
	h, _ := newTestRouter(t, runner)

	rec := do(t, h, http.MethodPost, "/api/generate-batch", `{"batchSize":500,"startIndex":10,"replaceToday":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"totalCreated":9,"totalFailed":1,
		"batchInfo":{"startIndex":10,"endIndex":20,"remainingCities":5,"totalCities":25}}`, rec.Body.String())
	require.Equal(t, []batchRequest{{BatchSize: 50, StartIndex: 10, ReplaceToday: true}}, runner.calls)

	rec = do(t, h, http.MethodPost, "/api/generate-batch", `{"startIndex":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/generate-batch", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateBatchErrors(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, &stubRunner{err: usecase.ErrBusy})
	rec := do(t, h, http.MethodPost, "/api/generate-batch", `{}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	h, _ = newTestRouter(t, &stubRunner{err: usecase.ErrStartOutOfRange})
	rec = do(t, h, http.MethodPost, "/api/generate-batch", `{"startIndex":99}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	h, _ = newTestRouter(t, nil)
	rec = do(t, h, http.MethodPost, "/api/generate-batch", `{}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, nil)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "dailyholler_articles_published_total 1")
}
