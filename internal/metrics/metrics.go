// Package metrics exposes Prometheus collectors for the dashboard engine.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

type Metrics struct {
	registry          *prometheus.Registry
	recomputations    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	fetchErrors       prometheus.Counter
	snapshotRows      prometheus.Gauge
	invalidTimestamps prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputations_total",
			Help:      "Reports computed, by trend granularity.",
		}, []string{"granularity"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Time spent normalizing, filtering and aggregating one report.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_errors_total",
			Help:      "Snapshot refreshes that failed at the row source.",
		}),
		snapshotRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Raw rows in the current snapshot.",
		}),
		invalidTimestamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_timestamps_total",
			Help:      "Records left out of trend and heatmap because their date did not parse.",
		}),
	}

	m.registry.MustRegister(
		m.recomputations,
		m.recomputeDuration,
		m.fetchErrors,
		m.snapshotRows,
		m.invalidTimestamps,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveRecompute(granularity string, d time.Duration, invalid int) {
	if m == nil {
		return
	}
	m.recomputations.WithLabelValues(granularity).Inc()
	m.recomputeDuration.Observe(d.Seconds())
	if invalid > 0 {
		m.invalidTimestamps.Add(float64(invalid))
	}
}

func (m *Metrics) IncFetchErrors() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

func (m *Metrics) SetSnapshotRows(n int) {
	if m == nil {
		return
	}
	m.snapshotRows.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
