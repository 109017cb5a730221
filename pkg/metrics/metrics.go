// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchesTotal tracks label matches by lookup phase and scoring method
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of successful label matches by phase and method",
		},
		[]string{"phase", "method"},
	)

	// MatchMissesTotal tracks product names that matched no label
	MatchMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "misses_total",
			Help:      "Total number of product names that matched no label",
		},
	)

	// AggregationDuration tracks invoice aggregation duration in seconds
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Duration of invoice carbon aggregations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// AggregationItems tracks line items per aggregated invoice
	AggregationItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "items_per_invoice",
			Help:      "Number of line items per aggregated invoice",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// LabelCacheHits tracks label cache lookups by outcome
	LabelCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "label_cache",
			Name:      "lookups_total",
			Help:      "Total number of label cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// InvoiceFetchesTotal tracks invoice platform fetches by status code
	InvoiceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "invoices",
			Name:      "fetches_total",
			Help:      "Total number of invoice platform fetches by status code",
		},
		[]string{"status_code"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordMatch records a successful label match
func RecordMatch(phase, method string) {
	MatchesTotal.WithLabelValues(phase, method).Inc()
}

// RecordMatchMiss records a product name that matched no label
func RecordMatchMiss() {
	MatchMissesTotal.Inc()
}

// ObserveAggregation records one invoice aggregation
func ObserveAggregation(durationSeconds float64, itemCount int) {
	AggregationDuration.Observe(durationSeconds)
	AggregationItems.Observe(float64(itemCount))
}

// RecordLabelCacheLookup records a label cache lookup outcome ("hit" or "miss")
func RecordLabelCacheLookup(outcome string) {
	LabelCacheHits.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordInvoiceFetch records a fetch against the invoice platform
func RecordInvoiceFetch(statusCode string) {
	InvoiceFetchesTotal.WithLabelValues(statusCode).Inc()
}
