package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kiroku_engine"

// HTTP metrics, incremented by the API middleware.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path_pattern"})
)

// Pipeline counters, incremented by the orchestrator and workers.
var (
	TranscriptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcriptions_total",
		Help:      "Completed transcription requests by method and outcome.",
	}, []string{"method", "outcome"})

	SegmentsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_processed_total",
		Help:      "Audio segments cut and transcribed on the long path.",
	})

	ExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Structured extraction calls by outcome.",
	}, []string{"outcome"})

	FilesPrunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_pruned_total",
		Help:      "Stale files removed by the retention pruner.",
	})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_requests_total",
		Help:      "HTTP requests rejected by the admission limiter.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TranscriptionsTotal,
		SegmentsProcessedTotal,
		ExtractionsTotal,
		FilesPrunedTotal,
		RateLimitedTotal,
	)
}
