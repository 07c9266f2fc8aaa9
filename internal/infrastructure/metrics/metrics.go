// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"DailyHoller/internal/ports"
)

// Collector records pipeline metrics on a Prometheus registry.
type Collector struct {
	published       prometheus.Counter
	generationFail  *prometheus.CounterVec
	publishFail     prometheus.Counter
	retries         prometheus.Counter
	abandoned       prometheus.Counter
	skippedFresh    prometheus.Counter
	fallbacks       prometheus.Counter
	checkpointFail  prometheus.Counter
	generationDelay prometheus.Histogram
	cursor          prometheus.Gauge
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_articles_published_total",
			Help: "Articles written to the publication sink.",
		}),
		generationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailyholler_generation_failures_total",
			Help: "Work units whose generation failed, by reason.",
		}, []string{"reason"}),
		publishFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_publish_failures_total",
			Help: "Articles the sink refused or could not store.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_generation_retries_total",
			Help: "Generation attempts beyond the first.",
		}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_batches_abandoned_total",
			Help: "Batches skipped after exhausting batch-level retries.",
		}),
		skippedFresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_skipped_fresh_total",
			Help: "Cities skipped because their newest article is still fresh.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_fallbacks_total",
			Help: "Failed generations for which previous content was kept.",
		}),
		checkpointFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailyholler_checkpoint_write_failures_total",
			Help: "Checkpoint saves or clears that failed.",
		}),
		generationDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dailyholler_generation_latency_seconds",
			Help:    "Time to produce one draft, retries included.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dailyholler_cursor_index",
			Help: "Next work unit index of the running pass.",
		}),
	}

	reg.MustRegister(
		c.published,
		c.generationFail,
		c.publishFail,
		c.retries,
		c.abandoned,
		c.skippedFresh,
		c.fallbacks,
		c.checkpointFail,
		c.generationDelay,
		c.cursor,
	)

	return c
}

func (c *Collector) ArticlePublished() { c.published.Inc() }
func (c *Collector) GenerationFailed(reason string) { c.generationFail.WithLabelValues(reason).Inc() }
func (c *Collector) PublishFailed() { c.publishFail.Inc() }
func (c *Collector) Retried() { c.retries.Inc() }
func (c *Collector) BatchAbandoned() { c.abandoned.Inc() }
func (c *Collector) SkippedFresh() { c.skippedFresh.Inc() }
func (c *Collector) FallbackUsed() { c.fallbacks.Inc() }
func (c *Collector) CheckpointWriteFailed() { c.checkpointFail.Inc() }
func (c *Collector) GenerationLatency(d time.Duration) { c.generationDelay.Observe(d.Seconds()) }
func (c *Collector) Cursor(index int) { c.cursor.Set(float64(index)) }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every observation.
type Noop struct{}

var _ ports.Metrics = Noop{}

func (Noop) ArticlePublished() {}
func (Noop) GenerationFailed(string) {}
func (Noop) PublishFailed() {}
func (Noop) Retried() {}
func (Noop) BatchAbandoned() {}
func (Noop) SkippedFresh() {}
func (Noop) FallbackUsed() {}
func (Noop) CheckpointWriteFailed() {}
func (Noop) GenerationLatency(time.Duration) {}
func (Noop) Cursor(int) {}
