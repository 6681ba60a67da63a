package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts jobs accepted for asynchronous execution.
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_jobs_submitted_total",
			Help: "Total number of jobs submitted",
		},
	)

	// JobsProcessed counts worker executions by terminal outcome.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_jobs_processed_total",
			Help: "Total number of jobs processed by outcome",
		},
		[]string{"outcome"},
	)

	// ProcessingDuration tracks job processing time in seconds,
	// including the simulated latency.
	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tally_job_processing_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// WorkersActive tracks the number of currently busy workers.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)

	// DuplicateDeliveries counts redeliveries skipped by the settlement lock.
	DuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_duplicate_deliveries_total",
			Help: "Total number of duplicate broker deliveries skipped",
		},
	)
)
