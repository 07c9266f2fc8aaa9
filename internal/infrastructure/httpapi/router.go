// Package httpapi serves the read API and the batch trigger over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/infrastructure/cities"
	"DailyHoller/internal/infrastructure/metrics"
	"DailyHoller/internal/ports"
	"DailyHoller/internal/usecase"
)

// CityDirectory looks up and lists work units.
type CityDirectory interface {
	Get(id string) (domain.City, error)
	BySlug(slug string) (domain.City, error)
	Find(q cities.Query) cities.Page
}

// BatchRunner runs externally triggered batches.
type BatchRunner interface {
	RunBatch(ctx context.Context, startIndex, batchSize int, replaceToday bool) (usecase.BatchReport, error)
	Status() usecase.Status
}

// RouterDeps collects what NewRouter needs.
type RouterDeps struct {
	Cities   CityDirectory
	Articles ports.ArticleReader
	Batches  BatchRunner
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Clock    func() time.Time
	// MaxBatchSize caps batchSize on the trigger endpoint. Zero means 50.
	MaxBatchSize int
}

// NewRouter wires every route and the middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	h := newHandler(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/cities", func(r chi.Router) {
			r.Get("/", h.listCities)
			r.Get("/slug/{slug}", h.cityBySlug)
			r.Get("/{id}", h.getCity)
		})

		r.Route("/news", func(r chi.Router) {
			r.Get("/", h.recentNews)
			r.Get("/today", h.todayNews)
			r.Get("/city/{cityId}", h.cityNews)
		})

		r.Get("/articles/by-slug/{slug}", h.articleBySlug)

		r.Post("/generate-batch", h.generateBatch)
		r.Get("/generation/status", h.generationStatus)
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
