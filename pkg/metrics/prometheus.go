package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshotsComputed *prometheus.CounterVec
	gapsDetected      *prometheus.CounterVec
	warmupRows        *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshotsComputed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresnap_snapshots_computed_total",
				Help: "Total number of feature snapshot rows computed and written",
			},
			[]string{"pair", "interval"},
		),
		gapsDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresnap_gaps_detected_total",
				Help: "Total number of missing snapshot timestamps detected",
			},
			[]string{"pair", "interval"},
		),
		warmupRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresnap_warmup_rows_total",
				Help: "Total number of snapshot rows written with warmup indicators",
			},
			[]string{"pair", "interval"},
		),
		storeLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "featuresnap_store_operation_duration_seconds",
				Help:    "Duration of storage operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresnap_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordSnapshotsComputed records newly computed snapshot rows.
func (r *Recorder) RecordSnapshotsComputed(pair, interval string, n int) {
	if n > 0 {
		r.snapshotsComputed.WithLabelValues(pair, interval).Add(float64(n))
	}
}

// RecordGapsDetected records missing timestamps found during gap detection.
func (r *Recorder) RecordGapsDetected(pair, interval string, n int) {
	if n > 0 {
		r.gapsDetected.WithLabelValues(pair, interval).Add(float64(n))
	}
}

// RecordWarmupRows records rows computed with insufficient history.
func (r *Recorder) RecordWarmupRows(pair, interval string, n int) {
	if n > 0 {
		r.warmupRows.WithLabelValues(pair, interval).Add(float64(n))
	}
}

// RecordStoreLatency records storage operation latency in seconds.
func (r *Recorder) RecordStoreLatency(op string, seconds float64) {
	r.storeLatency.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
