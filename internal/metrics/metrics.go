// Package metrics provides Prometheus metrics for the extraction pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a pipeline run.
type Metrics struct {
	// Shard metrics
	ShardsProcessed prometheus.Counter
	ShardsFailed    prometheus.Counter

	// Record metrics
	RecordsDecoded prometheus.Counter
	RecordsSkipped prometheus.Counter

	// Candidate metrics
	CandidatesExtracted prometheus.Counter
	RowsWritten         prometheus.Counter
	RowsDeduplicated    prometheus.Counter

	// Timing metrics
	ShardExtractDuration prometheus.Histogram
	DedupMergeDuration   prometheus.Histogram

	// Pipeline state
	ShardsInFlight prometheus.Gauge
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for the metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the global metrics. Call once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "watlinks"
	}

	m := &Metrics{
		ShardsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shards_processed_total",
			Help:      "Total number of archive shards fully processed",
		}),
		ShardsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shards_failed_total",
			Help:      "Total number of shards that degraded to an empty result",
		}),
		RecordsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Total number of metadata records decoded",
		}),
		RecordsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped due to decode failure",
		}),
		CandidatesExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_extracted_total",
			Help:      "Total number of link candidates emitted by the filter",
		}),
		RowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total number of rows persisted to the dataset",
		}),
		RowsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_deduplicated_total",
			Help:      "Total number of duplicate rows dropped",
		}),
		ShardExtractDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shard_extract_duration_seconds",
			Help:      "Time to extract one archive shard",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		}),
		DedupMergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dedup_merge_duration_seconds",
			Help:      "Time for one dedup-merge stage",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ShardsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shards_in_flight",
			Help:      "Number of shards currently being extracted",
		}),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics, or nil if Init was never called.
// Callers must nil-check; packages under test run without metrics.
func Get() *Metrics {
	return defaultMetrics
}

// Serve starts the metrics HTTP server in a background goroutine.
func Serve(cfg Config) {
	if !cfg.Enabled {
		return
	}
	addr := cfg.Address
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
