package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockledger_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_mutations_total",
		Help: "Count of inventory mutation attempts by action and result",
	}, []string{"action", "result"})

	auditEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_audit_entries_total",
		Help: "Count of audit log entries written, by action",
	}, []string{"action"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveMutation counts one mutation attempt with its outcome.
func ObserveMutation(action, result string) {
	mutationsTotal.WithLabelValues(action, result).Inc()
}

// AuditEntryWritten counts one committed audit entry.
func AuditEntryWritten(action string) {
	auditEntriesTotal.WithLabelValues(action).Inc()
}

// ObserveLogin counts a login attempt by result.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
