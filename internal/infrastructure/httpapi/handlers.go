package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/infrastructure/cities"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/usecase"
)

const (
	defaultArticleLimit = 20
	maxArticleLimit     = 100
	defaultMaxBatchSize = 50
)

type handler struct {
	cities   CityDirectory
	articles ports.ArticleReader
	batches  BatchRunner
	logger   *slog.Logger
	now      func() time.Time
	maxBatch int
}

func newHandler(deps RouterDeps) *handler {
	h := &handler{
		cities:   deps.Cities,
		articles: deps.Articles,
		batches:  deps.Batches,
		logger:   deps.Logger,
		now:      deps.Clock,
		maxBatch: deps.MaxBatchSize,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.maxBatch <= 0 {
		h.maxBatch = defaultMaxBatchSize
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type newsPageResponse struct {
	Articles []domain.Article `json:"articles"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"hasMore"`
}

type todayResponse struct {
	Articles   []domain.Article `json:"articles"`
	Count      int              `json:"count"`
	Date       string           `json:"date"`
	TotalToday int              `json:"totalToday"`
}

type cityNewsResponse struct {
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
	CityID   string           `json:"cityId"`
	City     domain.City      `json:"city"`
}

type batchRequest struct {
	BatchSize    int  `json:"batchSize"`
	StartIndex   int  `json:"startIndex"`
	ReplaceToday bool `json:"replaceToday"`
}

// GET /api/health
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status": "ok",
		"time":   h.now().UTC(),
	}
	if h.batches != nil {
		body["generation"] = h.batches.Status().State
	}
	writeJSON(w, http.StatusOK, body)
}

// GET /api/cities?search=&state=&region=&page=&limit=
func (h *handler) listCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGE", "page must be an integer")
		return
	}
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
		return
	}
	limit = min(limit, 500)

	writeJSON(w, http.StatusOK, h.cities.Find(cities.Query{
		Search: q.Get("search"),
		State:  q.Get("state"),
		Region: q.Get("region"),
		Page:   page,
		Limit:  limit,
	}))
}

// GET /api/cities/{id}
func (h *handler) getCity(w http.ResponseWriter, r *http.Request) {
	city, err := h.cities.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, city)
}

// GET /api/cities/slug/{slug}
func (h *handler) cityBySlug(w http.ResponseWriter, r *http.Request) {
	city, err := h.cities.BySlug(chi.URLParam(r, "slug"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, city)
}

// GET /api/news?limit=&offset=
func (h *handler) recentNews(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.articleLimit(w, r)
	if !ok {
		return
	}
	offset, err := intParam(r.URL.Query().Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be a non-negative integer")
		return
	}

	articles, err := h.articles.ListRecent(r.Context(), limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}
	total, err := h.articles.Count(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newsPageResponse{
		Articles: nonNil(articles),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  offset+limit < total,
	})
}

// GET /api/news/today?limit=
func (h *handler) todayNews(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.articleLimit(w, r)
	if !ok {
		return
	}
	today := h.now().UTC()

	articles, err := h.articles.ListForDate(r.Context(), today, limit)
	if err != nil {
		h.handleError(w, err)
		return
	}
	total, err := h.articles.CountForDate(r.Context(), today)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todayResponse{
		Articles:   nonNil(articles),
		Count:      len(articles),
		Date:       today.Format(time.DateOnly),
		TotalToday: total,
	})
}

// GET /api/news/city/{cityId}?limit=
func (h *handler) cityNews(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.articleLimit(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "cityId")
	city, err := h.cities.Get(id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	articles, err := h.articles.ListByCity(r.Context(), city.Name, city.State, limit)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cityNewsResponse{
		Articles: nonNil(articles),
		Count:    len(articles),
		CityID:   id,
		City:     city,
	})
}

// GET /api/articles/by-slug/{slug}
func (h *handler) articleBySlug(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// POST /api/generate-batch
func (h *handler) generateBatch(w http.ResponseWriter, r *http.Request) {
	if h.batches == nil {
		writeError(w, http.StatusServiceUnavailable, "GENERATION_DISABLED", "generation is not configured")
		return
	}

	var req batchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
			return
		}
	}
	if req.StartIndex < 0 || req.BatchSize < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "batchSize and startIndex must not be negative")
		return
	}
	req.BatchSize = min(req.BatchSize, h.maxBatch)

	report, err := h.batches.RunBatch(r.Context(), req.StartIndex, req.BatchSize, req.ReplaceToday)
	switch {
	case errors.Is(err, usecase.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
		return
	case errors.Is(err, usecase.ErrStartOutOfRange):
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	case err != nil:
		h.logger.Error("generate batch failed", "start_index", req.StartIndex, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GET /api/generation/status
func (h *handler) generationStatus(w http.ResponseWriter, _ *http.Request) {
	if h.batches == nil {
		writeError(w, http.StatusServiceUnavailable, "GENERATION_DISABLED", "generation is not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.batches.Status())
}

func (h *handler) articleLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := intParam(r.URL.Query().Get("limit"), defaultArticleLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
		return 0, false
	}
	return min(limit, maxArticleLimit), true
}

func (h *handler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	h.logger.Error("internal server error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func nonNil(articles []domain.Article) []domain.Article {
	if articles == nil {
		return []domain.Article{}
	}
	return articles
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
