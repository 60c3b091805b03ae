package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the prediction monitor.
type Metrics struct {
	// Loading metrics
	SnapshotsLoaded   *prometheus.CounterVec
	LoadLatency       *prometheus.HistogramVec
	RecordsReconciled prometheus.Counter
	AnchorsDropped    *prometheus.CounterVec
	InvalidRecords    prometheus.Gauge

	// Summary metrics
	SummaryLatency *prometheus.HistogramVec
	SummaryRows    *prometheus.HistogramVec
	SummaryErrors  *prometheus.CounterVec

	// Mapping cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all Prometheus metrics with reg. A nil
// registry gets a fresh one.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		// Loading metrics
		SnapshotsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_loaded_total",
				Help:      "Raw prediction snapshots loaded",
			},
			[]string{"source"},
		),
		LoadLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_latency_seconds",
				Help:      "Snapshot and mapping load latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"source"},
		),
		RecordsReconciled: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_reconciled_total",
				Help:      "Prediction records produced by the reconciliation join",
			},
		),
		AnchorsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anchors_dropped_total",
				Help:      "Baseline snapshots dropped by the reconciliation join",
			},
			[]string{"reason"}, // missing_test, missing_control
		),
		InvalidRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "invalid_records",
				Help:      "Invalid prediction records in the last loaded dataset",
			},
		),

		// Summary metrics
		SummaryLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summary_latency_seconds",
				Help:      "Summary computation latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		SummaryRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summary_rows",
				Help:      "Rows returned per summary",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"operation"},
		),
		SummaryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summary_errors_total",
				Help:      "Failed summary computations",
			},
			[]string{"operation"},
		),

		// Mapping cache metrics
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_cache_hits_total",
				Help:      "Channel mapping cache hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_cache_misses_total",
				Help:      "Channel mapping cache misses",
			},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),

		gatherer: reg,
	}

	return m
}

// Handler returns the Prometheus HTTP handler for the registry the metrics
// were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordLoad records a completed snapshot load.
func (m *Metrics) RecordLoad(source string, rows int, latency time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotsLoaded.WithLabelValues(source).Add(float64(rows))
	m.LoadLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordReconcile records the outcome of a reconciliation join.
func (m *Metrics) RecordReconcile(reconciled, missingTest, missingControl, invalid int) {
	if m == nil {
		return
	}
	m.RecordsReconciled.Add(float64(reconciled))
	m.AnchorsDropped.WithLabelValues("missing_test").Add(float64(missingTest))
	m.AnchorsDropped.WithLabelValues("missing_control").Add(float64(missingControl))
	m.InvalidRecords.Set(float64(invalid))
}

// RecordSummary records a summary computation.
func (m *Metrics) RecordSummary(operation string, rows int, latency time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SummaryErrors.WithLabelValues(operation).Inc()
		return
	}
	m.SummaryLatency.WithLabelValues(operation).Observe(latency.Seconds())
	m.SummaryRows.WithLabelValues(operation).Observe(float64(rows))
}

// RecordCacheLookup records a mapping cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}
