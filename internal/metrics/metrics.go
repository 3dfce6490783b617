// Package metrics exposes EOD batch observability, grounded on nhbchain's
// lazily-initialized prometheus registry idiom
// (observability/metrics.go's sync.Once-guarded moduleMetrics) adapted
// from per-module RPC counters to per-batch-kind account-processing
// counters and a histogram of per-batch wall-clock duration.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics is the engine's EOD batch-orchestration instrumentation
// ("worker pool executes batch orchestrations").
type BatchMetrics struct {
	AccountsProcessed *prometheus.CounterVec
	AccountsFailed    *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	ActiveWorkers     *prometheus.GaugeVec
}

var (
	once     sync.Once
	registry *BatchMetrics
)

// Registry returns the process-wide batch metrics registry, registering
// it with the default prometheus registerer on first use.
func Registry() *BatchMetrics {
	once.Do(func() {
		registry = &BatchMetrics{
			AccountsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "losengine",
				Subsystem: "eod",
				Name:      "accounts_processed_total",
				Help:      "Total accounts processed by an EOD batch, segmented by batch kind.",
			}, []string{"batch_kind"}),
			AccountsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "losengine",
				Subsystem: "eod",
				Name:      "accounts_failed_total",
				Help:      "Total per-account failures during an EOD batch, segmented by batch kind.",
			}, []string{"batch_kind"}),
			BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "losengine",
				Subsystem: "eod",
				Name:      "batch_duration_seconds",
				Help:      "Wall-clock duration of a full EOD batch run, segmented by batch kind.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"batch_kind"}),
			ActiveWorkers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "losengine",
				Subsystem: "eod",
				Name:      "active_workers",
				Help:      "Number of worker-pool slots currently processing an account.",
			}, []string{"batch_kind"}),
		}
		prometheus.MustRegister(
			registry.AccountsProcessed,
			registry.AccountsFailed,
			registry.BatchDuration,
			registry.ActiveWorkers,
		)
	})
	return registry
}
