package metrics

import (
	"fastpayment/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastpayment_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SubscriptionCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_subscription_commits_total",
			Help: "Subscription commit attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_reconciliations_total",
			Help: "Payment reconciliations by mapped status and outcome",
		},
		[]string{"status", "outcome"},
	)

	OTPIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastpayment_otp_issued_total",
			Help: "Total number of one-time codes issued",
		},
	)

	OTPValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_otp_validations_total",
			Help: "One-time code validations by result",
		},
		[]string{"result"},
	)

	SchedulesSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastpayment_schedules_swept_total",
			Help: "Schedules closed because their start time passed",
		},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_provider_requests_total",
			Help: "Payment provider calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastpayment_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	DBOpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fastpayment_db_open_connections",
			Help: "Open database connections",
		},
	)

	DBInUseConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fastpayment_db_in_use_connections",
			Help: "Database connections in use",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCommit(outcome string) {
	SubscriptionCommitsTotal.WithLabelValues(outcome).Inc()
}

func RecordReconciliation(status, outcome string) {
	ReconciliationsTotal.WithLabelValues(status, outcome).Inc()
}

func RecordOTPIssued() {
	OTPIssuedTotal.Inc()
}

func RecordOTPValidation(result string) {
	OTPValidationsTotal.WithLabelValues(result).Inc()
}

func RecordSweep(closed int64) {
	SchedulesSweptTotal.Add(float64(closed))
}

func RecordProviderRequest(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequestsTotal.WithLabelValues(operation, result).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordPoolStats(stats database.PoolStats) {
	DBOpenConnections.Set(float64(stats.OpenConns))
	DBInUseConnections.Set(float64(stats.InUse))
}
