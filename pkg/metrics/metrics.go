// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorageOpDuration tracks storage operation duration.
	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_op_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"op", "status"},
	)

	// StorageOpsTotal tracks total storage operations.
	StorageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_ops_total",
			Help: "Total storage operations",
		},
		[]string{"op", "status"},
	)

	// AccessDeniedTotal tracks queries denied by partition scoping.
	AccessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_access_denied_total",
			Help: "Queries rejected by row-level access scoping",
		},
		[]string{"op"},
	)

	// ConversationsStored tracks conversation upserts.
	ConversationsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_stored_total",
			Help: "Total conversation rows written",
		},
	)

	// BotUsageUpdates tracks best-effort bot last-used updates.
	BotUsageUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_usage_updates_total",
			Help: "Bot last_used_time side-effect updates",
		},
		[]string{"status"},
	)

	// RequestDuration tracks HTTP request duration on the operational surface.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests on the operational surface.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// RecordOp records metrics for one storage operation.
func RecordOp(op, status string, duration float64) {
	StorageOpDuration.WithLabelValues(op, status).Observe(duration)
	StorageOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordAccessDenied records a query rejected by partition scoping.
func RecordAccessDenied(op string) {
	AccessDeniedTotal.WithLabelValues(op).Inc()
}

// RecordBotUsage records the outcome of a bot last-used update.
func RecordBotUsage(status string) {
	BotUsageUpdates.WithLabelValues(status).Inc()
}

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
