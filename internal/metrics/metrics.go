// Package metrics defines coderag's Prometheus instrumentation: indexing
// throughput, error counts, and run latency. Handler serves the default
// registry, which the status API mounts at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric coderag defines. No command or service in
// this repository constructs one, so outside this package's tests nothing
// registers or records these metrics.
type Registry struct {
	FilesIndexed   prometheus.Counter
	ChunksIndexed  prometheus.Counter
	IndexErrors    *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ReindexRuns    *prometheus.CounterVec
	ActiveRuns     prometheus.Gauge
}

// NewRegistry registers coderag's metrics against reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to publish on the default /metrics surface.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		FilesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "coderag",
			Name:      "files_indexed_total",
			Help:      "Total number of files successfully indexed.",
		}),
		ChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "coderag",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks upserted into the vector store.",
		}),
		IndexErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coderag",
			Name:      "index_errors_total",
			Help:      "Total number of per-file indexing errors, by pipeline stage.",
		}, []string{"stage"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coderag",
			Name:      "index_run_duration_seconds",
			Help:      "Wall-clock duration of a single index_paths/index_all run.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReindexRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coderag",
			Name:      "reindex_runs_total",
			Help:      "Total number of reconciler-triggered reindex runs, by trigger kind.",
		}, []string{"trigger"}),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coderag",
			Name:      "active_index_runs",
			Help:      "Number of indexing runs currently in flight.",
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
