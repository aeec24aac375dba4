package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Estimate outcomes recorded on estimator_estimates_total.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Metrics holds Prometheus metrics for the estimator daemon.
type Metrics struct {
	// HTTP surface
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Estimation pipeline
	EstimatesTotal   *prometheus.CounterVec
	EstimateDuration prometheus.Histogram

	// State gauges
	ProjectCount       prometheus.Gauge
	ScopeConfigPresent prometheus.Gauge
}

// NewMetrics creates and registers the daemon's Prometheus metrics.
//
// This function uses sync.Once so the server, the daemon wiring, and
// tests can all call it without hitting "duplicate metrics collector
// registration" panics.
//
// All metrics are prefixed with "estimator_".
//
// Metrics:
//   - estimator_http_requests_total{method,path,status} - Requests per route
//   - estimator_http_request_duration_seconds{method,path} - Request latency
//   - estimator_estimates_total{outcome} - Pipeline runs, completed or failed
//   - estimator_estimate_duration_seconds - Pipeline run duration
//   - estimator_projects - Current number of stored projects
//   - estimator_scope_config_present - 1 when a scope config file exists
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "estimator_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),

			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "estimator_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
				},
				[]string{"method", "path"},
			),

			EstimatesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "estimator_estimates_total",
					Help: "Total number of estimation pipeline runs",
				},
				[]string{"outcome"}, // "completed" or "failed"
			),

			EstimateDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "estimator_estimate_duration_seconds",
					Help:    "Duration of estimation pipeline runs in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
				},
			),

			ProjectCount: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "estimator_projects",
					Help: "Current number of stored projects",
				},
			),

			ScopeConfigPresent: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "estimator_scope_config_present",
					Help: "Whether a scope config file is currently uploaded (0 or 1)",
				},
			),
		}
	})

	return globalMetrics
}

// RecordRequest records one handled HTTP request.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEstimate records one pipeline run.
func (m *Metrics) RecordEstimate(outcome string, duration time.Duration) {
	m.EstimatesTotal.WithLabelValues(outcome).Inc()
	m.EstimateDuration.Observe(duration.Seconds())
}

// SetProjectCount updates the stored-projects gauge.
func (m *Metrics) SetProjectCount(n int) {
	m.ProjectCount.Set(float64(n))
}

// SetScopeConfigPresent updates the scope-config presence gauge.
func (m *Metrics) SetScopeConfigPresent(present bool) {
	if present {
		m.ScopeConfigPresent.Set(1)
	} else {
		m.ScopeConfigPresent.Set(0)
	}
}

// RequestMiddleware returns an Echo middleware that records request
// metrics per route pattern, keeping label cardinality bounded.
func (m *Metrics) RequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RecordRequest(c.Request().Method, path, c.Response().Status, time.Since(start))

			return err
		}
	}
}
