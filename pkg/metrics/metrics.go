package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the collectors for ingestion runs and analytics queries.
type Registry struct {
	reg *prometheus.Registry

	// Ingestion
	RowsInserted        prometheus.Counter
	BatchesCommitted    prometheus.Counter
	BatchFailures       prometheus.Counter
	BatchLatencySec     prometheus.Histogram
	PartitionsProcessed prometheus.Counter
	PartitionFailures   prometheus.Counter
	BadLines            prometheus.Counter
	NullCells           *prometheus.CounterVec

	// Analytics
	QueryLatencySec *prometheus.HistogramVec
	QueryErrors     *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rowsInserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_rows_inserted_total"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_batches_committed_total"})
	batchFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_batch_failures_total"})
	batchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_batch_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	partitions := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_partitions_processed_total"})
	partitionFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_partition_failures_total"})
	badLines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_bad_lines_total",
		Help: "Malformed CSV lines skipped during ingestion.",
	})
	nullCells := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_null_cells_total",
		Help: "Cells stored as NULL after coercion, by column.",
	}, []string{"column"})

	queryLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_query_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})
	queryErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analytics_query_errors_total"}, []string{"query"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_hits_total"})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{Name: "analytics_cache_misses_total"})

	r.MustRegister(rowsInserted, batches, batchFailures, batchLatency, partitions, partitionFailures,
		badLines, nullCells, queryLatency, queryErrors, cacheHits, cacheMisses)
	return &Registry{
		reg:                 r,
		RowsInserted:        rowsInserted,
		BatchesCommitted:    batches,
		BatchFailures:       batchFailures,
		BatchLatencySec:     batchLatency,
		PartitionsProcessed: partitions,
		PartitionFailures:   partitionFailures,
		BadLines:            badLines,
		NullCells:           nullCells,
		QueryLatencySec:     queryLatency,
		QueryErrors:         queryErrors,
		CacheHits:           cacheHits,
		CacheMisses:         cacheMisses,
	}
}

// Gatherer exposes the underlying registry for collectors and scrape tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
