// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_completed_total",
			Help: "Total number of background jobs completed",
		},
		[]string{"job_kind"},
	)

	QueueJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_failed_total",
			Help: "Total number of background jobs failed",
		},
		[]string{"job_kind", "error_code"},
	)

	QueueJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "queue_job_duration_seconds",
			Help: "Duration of background job processing in seconds",
		},
		[]string{"job_kind"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of jobs waiting in the task queue",
		},
	)

	QueueSubmitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_submits_rejected_total",
			Help: "Total number of non-blocking submits rejected at capacity",
		},
		[]string{"job_kind"},
	)

	StageAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_stage_advances_total",
			Help: "Total number of stage advances by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	SweepSubjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_subjects_total",
			Help: "Subjects seen by bulk sweeps, by kind and disposition",
		},
		[]string{"sweep_kind", "disposition"},
	)
)
