// Package metrics provides Prometheus metrics for asset operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_http_requests_total",
			Help: "Total number of HTTP requests served by the gateway",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Public operation metrics
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_operations_total",
			Help: "Total number of asset operations",
		},
		[]string{"backend_type", "operation", "status"}, // status: "success", "failure"
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_operation_duration_seconds",
			Help:    "Asset operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend_type", "operation"},
	)

	// Session metrics
	ConnectionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_connection_attempts_total",
			Help: "Total number of backend connection attempts",
		},
		[]string{"backend_type", "result"}, // result: "success", "failure"
	)

	ReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_reconnects_total",
			Help: "Total number of reconnections after a failed liveness probe",
		},
		[]string{"backend_type"},
	)

	RemoveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_remove_failures_total",
			Help: "Total number of individual failures during batch removal",
		},
		[]string{"backend_type"},
	)
)

// ObserveOperation records the outcome and duration of one operation.
func ObserveOperation(backendType, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	OperationsTotal.WithLabelValues(backendType, operation, status).Inc()
	OperationDuration.WithLabelValues(backendType, operation).Observe(time.Since(start).Seconds())
}
