// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	RepliesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_replies_submitted_total",
			Help: "Reply batches submitted, by outcome (accepted, rejected, failed)",
		},
		[]string{"outcome"},
	)

	ReplyRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_reply_rejections_total",
			Help: "Reply batches rejected by validation, by error code",
		},
		[]string{"code"},
	)

	ReplyGroups = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_reply_groups",
			Help:    "Number of member reply groups produced per aggregation",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_cache_lookups_total",
			Help: "Aggregated reply view cache lookups, by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "checkin_http_request_duration_seconds",
			Help: "HTTP request latency by route pattern",
		},
		[]string{"route"},
	)
)
