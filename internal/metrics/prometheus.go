// Package metrics records migration measurements in Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/moviesmigrate/internal/core"
)

const defaultNamespace = "moviesmigrate"

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the metric namespace (default: moviesmigrate).
func WithNamespace(ns string) Option {
	return func(r *Recorder) { r.namespace = ns }
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) { r.buckets = buckets }
}

// Recorder implements core.Metrics on a Prometheus registry.
type Recorder struct {
	namespace string
	buckets   []float64

	rowsInserted   *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	rowsVerified   *prometheus.CounterVec
	batchesWritten *prometheus.CounterVec
	writeLatency   *prometheus.HistogramVec
	verifyLatency  *prometheus.HistogramVec
	tablesFinished *prometheus.CounterVec
	tableDuration  *prometheus.GaugeVec
}

// New registers the migration metrics on reg.
func New(reg prometheus.Registerer, opts ...Option) *Recorder {
	r := &Recorder{
		namespace: defaultNamespace,
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(reg)
	r.rowsInserted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_inserted_total",
		Help:      "Rows inserted into the destination",
	}, []string{"table"})
	r.rowsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_skipped_total",
		Help:      "Rows skipped because their primary key already existed",
	}, []string{"table"})
	r.rowsVerified = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "rows_verified_total",
		Help:      "Source rows verified against the destination",
	}, []string{"table"})
	r.batchesWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "batches_written_total",
		Help:      "Batches committed to the destination",
	}, []string{"table"})
	r.writeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "batch_write_duration_seconds",
		Help:      "Time to write one batch, transaction included",
		Buckets:   r.buckets,
	}, []string{"table"})
	r.verifyLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "batch_verify_duration_seconds",
		Help:      "Time to verify one batch against the destination",
		Buckets:   r.buckets,
	}, []string{"table"})
	r.tablesFinished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "tables_finished_total",
		Help:      "Tables that reached a terminal state",
	}, []string{"state"})
	r.tableDuration = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "table_duration_seconds",
		Help:      "Wall time spent on each table",
	}, []string{"table"})

	return r
}

// BatchWritten records a committed batch.
func (r *Recorder) BatchWritten(table string, rows int, inserted int64, d time.Duration) {
	r.batchesWritten.WithLabelValues(table).Inc()
	r.rowsInserted.WithLabelValues(table).Add(float64(inserted))
	if skipped := int64(rows) - inserted; skipped > 0 {
		r.rowsSkipped.WithLabelValues(table).Add(float64(skipped))
	}
	r.writeLatency.WithLabelValues(table).Observe(d.Seconds())
}

// BatchVerified records a verified batch.
func (r *Recorder) BatchVerified(table string, rows int, d time.Duration) {
	r.rowsVerified.WithLabelValues(table).Add(float64(rows))
	r.verifyLatency.WithLabelValues(table).Observe(d.Seconds())
}

// TableFinished records a table reaching a terminal state.
func (r *Recorder) TableFinished(table string, state core.TableState, d time.Duration) {
	r.tablesFinished.WithLabelValues(string(state)).Inc()
	r.tableDuration.WithLabelValues(table).Set(d.Seconds())
}

var _ core.Metrics = (*Recorder)(nil)
