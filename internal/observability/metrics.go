package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementActions counts applied social mutations by target kind and action.
	EngagementActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_engagement_actions_total",
		Help: "Total number of applied likes, comments, replies, reactions and clones",
	}, []string{"target", "action"})

	// EngagementConflicts counts optimistic-concurrency retries by target kind.
	EngagementConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_engagement_version_conflicts_total",
		Help: "Total number of lost optimistic-concurrency races on engagement writes",
	}, []string{"target"})

	// CascadeDocuments counts documents visited by the name cascade.
	CascadeDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_name_cascade_documents_total",
		Help: "Documents visited by the display-name cascade by kind and outcome",
	}, []string{"kind", "outcome"})

	// NotificationsCreated counts persisted notifications by action.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_notifications_created_total",
		Help: "Total number of notifications persisted",
	}, []string{"action"})

	// UpstreamRequests counts calls to third-party APIs by service and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_upstream_requests_total",
		Help: "Total number of third-party API calls",
	}, []string{"service", "outcome"})

	// UpstreamLatency records third-party API latency per attempt.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanderplan_upstream_latency_seconds",
		Help:    "Third-party API latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"service"})

	// AsyncOperationDuration records background operation latency.
	AsyncOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanderplan_async_operation_seconds",
		Help:    "Background operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
