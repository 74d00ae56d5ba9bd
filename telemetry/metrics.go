package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests received, partitioned by method, route and status class.",
		},
		[]string{"method", "route", "status_class"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, partitioned by method, route and status class.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5},
		},
		[]string{"method", "route", "status_class"},
	)
)

// Inscription metrics
var (
	inscriptionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inscriptions_started_total",
			Help: "Total number of card inscriptions started against the provider.",
		},
	)

	inscriptionsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inscriptions_completed_total",
			Help: "Total number of card inscriptions completed successfully.",
		},
	)

	inscriptionsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inscriptions_failed_total",
			Help: "Total number of inscriptions that failed, partitioned by reason.",
		},
		[]string{"reason"}, // reasons: rejected | provider | db
	)

	inscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inscriptions_expired_total",
			Help: "Total number of pending inscriptions expired by the sweep.",
		},
	)
)

// Transaction metrics
var (
	transactionsAuthorizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_authorized_total",
			Help: "Total number of authorized transactions, partitioned by whether every detail was approved.",
		},
		[]string{"fully_authorized"}, // "true" | "false"
	)

	transactionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_rejected_total",
			Help: "Total number of rejected authorization attempts, partitioned by reason.",
		},
		[]string{"reason"}, // reasons: validation | duplicate | no_inscription | provider | db
	)

	providerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Total number of provider communication failures, partitioned by operation.",
		},
		[]string{"operation"},
	)
)

// InitMetrics called on startup
func InitMetrics() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		inscriptionsStartedTotal,
		inscriptionsCompletedTotal,
		inscriptionsFailedTotal,
		inscriptionsExpiredTotal,
		transactionsAuthorizedTotal,
		transactionsRejectedTotal,
		providerErrorsTotal,
	)
}

// PrometheusMiddleware measures one HTTP request: increments counter and observes latency.
// It uses gin.Context.FullPath() to record the *route template* (e.g., /v1/transactions).
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next() // execute handler chain

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/100)

		httpRequestsTotal.WithLabelValues(method, route, statusClass).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, route, statusClass).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes /metrics in Prometheus text exposition format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
