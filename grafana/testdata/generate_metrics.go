// Package main generates sample estimator metrics for testing Grafana
// dashboards without using real production data.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards, mirroring internal/server/metrics.go.
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimator_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)
	estimatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_estimates_total",
			Help: "Total number of estimation pipeline runs",
		},
		[]string{"outcome"},
	)
	estimateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "estimator_estimate_duration_seconds",
			Help:    "Duration of estimation pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	projectCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "estimator_projects",
			Help: "Current number of stored projects",
		},
	)
	scopeConfigPresent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "estimator_scope_config_present",
			Help: "Whether a scope config file is currently uploaded (0 or 1)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		estimatesTotal,
		estimateDuration,
		projectCount,
		scopeConfigPresent,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'estimator-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

var (
	apiPaths = []string{
		"/api/health",
		"/api/projects",
		"/api/projects/:id",
		"/api/projects/:id/download-csv",
		"/api/scope-config",
		"/api/models",
	}
	methods  = []string{"GET", "POST", "DELETE"}
	statuses = []string{"200", "201", "400", "404", "500"}
)

func generateSampleData() {
	// A day's worth of API traffic
	for i := 0; i < 200; i++ {
		path := randomChoice(apiPaths)
		method := randomChoice(methods)
		httpRequestsTotal.WithLabelValues(method, path, randomChoice(statuses)).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(rand.Float64() * 0.5)
	}

	// Pipeline runs, mostly successful
	for i := 0; i < 40; i++ {
		outcome := "completed"
		if rand.Float64() > 0.85 {
			outcome = "failed"
		}
		estimatesTotal.WithLabelValues(outcome).Inc()
		estimateDuration.Observe(0.2 + rand.Float64()*20.0)
	}

	projectCount.Set(float64(rand.Intn(30) + 5))
	scopeConfigPresent.Set(1)
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ambient traffic: list and status polls
			path := randomChoice([]string{"/api/projects", "/api/scope-config", "/api/health"})
			httpRequestsTotal.WithLabelValues("GET", path, "200").Inc()
			httpRequestDuration.WithLabelValues("GET", path).Observe(rand.Float64() * 0.05)

			// Occasional project creation with its pipeline run
			if rand.Float64() > 0.7 {
				outcome := "completed"
				status := "201"
				if rand.Float64() > 0.85 {
					outcome = "failed"
					status = "500"
				}
				httpRequestsTotal.WithLabelValues("POST", "/api/projects", status).Inc()
				httpRequestDuration.WithLabelValues("POST", "/api/projects").Observe(1.0 + rand.Float64()*10.0)
				estimatesTotal.WithLabelValues(outcome).Inc()
				estimateDuration.Observe(0.2 + rand.Float64()*20.0)
				if outcome == "completed" {
					projectCount.Add(1)
				}
			}

			// Rare deletions
			if rand.Float64() > 0.9 {
				httpRequestsTotal.WithLabelValues("DELETE", "/api/projects/:id", "200").Inc()
				projectCount.Add(-1)
			}
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
