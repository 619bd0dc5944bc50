// Package metrics holds the Prometheus collectors of the dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts result cache lookups by outcome: "hit", "miss" or "shared".
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxidash_result_cache_requests_total",
		Help: "Result cache lookups by outcome",
	}, []string{"outcome"})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taxidash_result_cache_entries",
		Help: "Filter specifications currently cached",
	})

	// Retrievals counts trip retrievals by outcome: "ok", "empty", "short_circuit" or "error".
	Retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxidash_retrievals_total",
		Help: "Trip retrievals by outcome",
	}, []string{"outcome"})

	RetrievalRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxidash_retrieval_retries_total",
		Help: "Retried trip source scans",
	})

	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxidash_retrieval_duration_seconds",
		Help:    "Trip retrieval duration in seconds, retries included",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
	})

	RowGroupsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxidash_row_groups_skipped_total",
		Help: "Row groups whose data columns were never fetched",
	})

	RowsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxidash_rows_returned",
		Help:    "Rows returned per retrieval",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})

	ZoneLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxidash_zone_loads_total",
		Help: "Zone lookup loads by outcome",
	}, []string{"outcome"})
)
