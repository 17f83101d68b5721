// Package exportprom records export outcomes as Prometheus metrics.
package exportprom

import (
	"context"
	"net/http"

	"github.com/goliatone/go-report/export"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures metric names and buckets.
type Config struct {
	Namespace       string
	Subsystem       string
	DurationBuckets []float64
	SizeBuckets     []float64
}

// Collector implements export.MetricsHook.
type Collector struct {
	registry *prometheus.Registry

	exports  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
}

// NewCollector registers the export metrics on registry. A nil registry gets
// a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "go_report"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "export"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}
	if len(cfg.SizeBuckets) == 0 {
		cfg.SizeBuckets = prometheus.ExponentialBuckets(1024, 4, 8)
	}

	c := &Collector{
		registry: registry,
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "total",
			Help:      "Exports by format and outcome.",
		}, []string{"format", "outcome", "error_kind"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rows_total",
			Help:      "Records written by format.",
		}, []string{"format"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "duration_seconds",
			Help:      "Export encode duration.",
			Buckets:   cfg.DurationBuckets,
		}, []string{"format", "outcome"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "size_bytes",
			Help:      "Produced file size.",
			Buckets:   cfg.SizeBuckets,
		}, []string{"format"}),
	}
	registry.MustRegister(c.exports, c.rows, c.duration, c.size)
	return c
}

// Emit records one export observation.
func (c *Collector) Emit(_ context.Context, evt export.MetricsEvent) error {
	if c == nil {
		return nil
	}
	format := string(evt.Format)
	if format == "" {
		format = "unknown"
	}
	outcome := outcomeFor(evt.Name)
	c.exports.WithLabelValues(format, outcome, string(evt.ErrorKind)).Inc()

	if evt.Name == export.MetricExportSkipped {
		return nil
	}
	c.duration.WithLabelValues(format, outcome).Observe(evt.Duration.Seconds())
	if evt.Rows > 0 {
		c.rows.WithLabelValues(format).Add(float64(evt.Rows))
	}
	if evt.Name == export.MetricExportCompleted {
		c.size.WithLabelValues(format).Observe(float64(evt.Bytes))
	}
	return nil
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the scrape endpoint for the collector registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func outcomeFor(name string) string {
	switch name {
	case export.MetricExportCompleted:
		return "completed"
	case export.MetricExportFailed:
		return "failed"
	case export.MetricExportSkipped:
		return "skipped"
	default:
		return "other"
	}
}

var _ export.MetricsHook = (*Collector)(nil)
