// Package metrics exposes ambient Prometheus instrumentation — counters
// and histograms, not a dashboard. Package-level collectors registered
// against the default registry, read with promhttp at the HTTP health
// surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentsMade = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marcus_assignments_made_total",
		Help: "Total number of task assignments made to agents.",
	}, []string{"project_id"})

	LeasesExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marcus_leases_expired_total",
		Help: "Total number of assignments whose lease expired and were recycled.",
	}, []string{"project_id"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marcus_events_published_total",
		Help: "Total number of events published on the bus, by type.",
	}, []string{"event_type"})

	TasksStuck = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marcus_tasks_stuck_total",
		Help: "Total number of assignments that crossed the stuck-renewal threshold.",
	}, []string{"project_id"})

	AssignmentScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marcus_assignment_score_duration_seconds",
		Help:    "Time spent scoring the assignable frontier for a request_next_task call.",
		Buckets: prometheus.DefBuckets,
	})

	BoardReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marcus_board_reconcile_duration_seconds",
		Help:    "Time spent reconciling local task state against the board provider.",
		Buckets: prometheus.DefBuckets,
	})
)
