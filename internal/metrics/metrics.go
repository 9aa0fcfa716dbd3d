package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess   = "success"
	ResultForbidden = "forbidden"
	ResultInvalid   = "invalid"
	ResultError     = "error"

	ReasonMutation = "mutation"
	ReasonChange   = "change"
	ReasonManual   = "manual"
)

var (
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_store_operations_total",
			Help: "Store operations by outcome",
		},
		[]string{"store", "operation", "result"},
	)

	StoreRefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_store_refetches_total",
			Help: "Full store re-fetches by trigger",
		},
		[]string{"store", "reason"},
	)

	ChangeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_change_events_total",
			Help: "Row change notifications received from the database",
		},
		[]string{"table", "type"},
	)

	DroppedChangeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_change_events_dropped_total",
			Help: "Change events not delivered because a subscriber buffer was full",
		},
		[]string{"table"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_change_subscriptions_active",
			Help: "Open change feed subscriptions",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_job_runs_total",
			Help: "Scheduled job executions by outcome",
		},
		[]string{"job", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_job_duration_seconds",
			Help: "Duration of scheduled jobs in seconds",
		},
		[]string{"job"},
	)
)
