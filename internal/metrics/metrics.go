package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ineqdash_dataset_records_total",
			Help: "Long-form records held in memory per dataset",
		},
		[]string{"dataset"},
	)

	DatasetLoadSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ineqdash_dataset_load_seconds",
			Help:    "Time spent reading and reshaping a dataset",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ineqdash_api_requests_total",
			Help: "Dashboard API requests",
		},
		[]string{"endpoint", "status"},
	)

	FilterEmptyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ineqdash_filter_empty_results_total",
			Help: "Filter requests that matched no rows",
		},
		[]string{"dataset"},
	)

	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ineqdash_chat_requests_total",
			Help: "Assistant completion requests",
		},
		[]string{"status"},
	)

	ChatLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ineqdash_chat_latency_seconds",
			Help:    "Assistant completion latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
