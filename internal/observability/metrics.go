// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-price-history/internal/pricesync"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// History walk metrics
	PagesFetched   prometheus.Counter
	SignaturesSeen prometheus.Counter
	PageSize       prometheus.Histogram

	// Batch fetch metrics
	BatchesDispatched   prometheus.Counter
	BatchRetries        prometheus.Counter
	BatchesExhausted    prometheus.Counter
	TransactionsMissing prometheus.Counter

	// Derivation metrics
	TradesDerived prometheus.Counter

	// Venue metrics
	VenueFallbacks   prometheus.Counter
	VenueResolutions *prometheus.CounterVec

	// Sync run metrics
	SyncRunsTotal *prometheus.CounterVec
	SyncDuration  prometheus.Histogram

	// Health metrics
	LastSuccessfulSync prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_price_history"
	}

	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "pages_fetched_total",
			Help:      "Total number of signature history pages fetched",
		}),
		SignaturesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "signatures_seen_total",
			Help:      "Total number of raw signatures seen across all pages",
		}),
		PageSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "page_size",
			Help:      "Raw signature count per fetched page",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000},
		}),

		BatchesDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "batches_dispatched_total",
			Help:      "Total number of transaction batches dispatched",
		}),
		BatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "batch_retries_total",
			Help:      "Total number of failed batch attempts that were retried",
		}),
		BatchesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "batches_exhausted_total",
			Help:      "Total number of batches dropped after exhausting retries",
		}),
		TransactionsMissing: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "transactions_missing_total",
			Help:      "Total number of signatures the provider could not resolve",
		}),

		TradesDerived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deriver",
			Name:      "trades_derived_total",
			Help:      "Total number of priced trades derived",
		}),

		VenueFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "bonding_curve_fallbacks_total",
			Help:      "Total number of venue resolutions that fell back to the bonding curve",
		}),
		VenueResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "resolutions_total",
			Help:      "Total number of venue resolutions by source",
		}, []string{"source"}),

		SyncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by status",
		}, []string{"status"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Sync run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last successful sync run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PipelineObserver bridges pipeline checkpoint events into Prometheus
// counters. It satisfies pricesync.Observer.
type PipelineObserver struct {
	metrics *Metrics
}

// NewPipelineObserver creates an observer recording into the given metrics.
func NewPipelineObserver(metrics *Metrics) *PipelineObserver {
	return &PipelineObserver{metrics: metrics}
}

// Compile-time interface check.
var _ pricesync.Observer = (*PipelineObserver)(nil)

func (o *PipelineObserver) VenueResolved(_, _ string, fallback bool) {
	if fallback {
		o.metrics.VenueFallbacks.Inc()
		o.metrics.VenueResolutions.WithLabelValues("bonding_curve").Inc()
		return
	}
	o.metrics.VenueResolutions.WithLabelValues("registry").Inc()
}

func (o *PipelineObserver) PageFetched(_ string, size int) {
	o.metrics.PagesFetched.Inc()
	o.metrics.SignaturesSeen.Add(float64(size))
	o.metrics.PageSize.Observe(float64(size))
}

func (o *PipelineObserver) BatchStart(_ string, _ int) {
	o.metrics.BatchesDispatched.Inc()
}

func (o *PipelineObserver) BatchRetry(_ string, _ int, _ error) {
	o.metrics.BatchRetries.Inc()
}

func (o *PipelineObserver) BatchDone(_ string, _, missing int) {
	o.metrics.TransactionsMissing.Add(float64(missing))
}

func (o *PipelineObserver) BatchExhausted(_ string, _ int) {
	o.metrics.BatchesExhausted.Inc()
}

func (o *PipelineObserver) TradesDerived(_ string, count int) {
	o.metrics.TradesDerived.Add(float64(count))
}
