// Package metrics exposes Prometheus counters for the write and read
// paths. All metrics are registered on the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesWritten counts pages flushed per column path and page kind
	PagesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "pages_written_total",
		Help:      "Pages written, by column path and page kind",
	}, []string{"column", "kind"})

	// BytesWritten counts compressed page bytes per column path
	BytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "bytes_written_total",
		Help:      "Compressed page bytes written, by column path",
	}, []string{"column"})

	// RowsWritten counts records accepted by row group writers
	RowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "rows_written_total",
		Help:      "Records shredded into row groups",
	})

	// RowGroupsClosed counts finalized row groups
	RowGroupsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "row_groups_closed_total",
		Help:      "Row groups closed",
	})

	// DictionaryFallbacks counts chunks that abandoned dictionary encoding
	DictionaryFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "dictionary_fallbacks_total",
		Help:      "Column chunks that exceeded the dictionary threshold",
	}, []string{"column"})

	// ChecksumFailures counts pages rejected for checksum mismatch
	ChecksumFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "strata",
		Name:      "checksum_failures_total",
		Help:      "Pages rejected with a checksum mismatch",
	})

	// CompressionRatio observes uncompressed/compressed per page
	CompressionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "strata",
		Name:      "page_compression_ratio",
		Help:      "Per-page uncompressed to compressed size ratio",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})
)
