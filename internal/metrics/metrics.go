// Package metrics exposes Prometheus collectors for the probe service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probeStagesTotal           *prometheus.CounterVec
	probeLoadTimeSeconds       *prometheus.HistogramVec
	probeExportsTotal          *prometheus.CounterVec
	probeStoredRecords         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		probeStagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websight_probe_stages_total",
				Help: "Total number of probe stages run, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		probeLoadTimeSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "websight_probe_load_time_seconds",
				Help:    "Histogram of reported page load times, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		probeExportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websight_exports_total",
				Help: "Total number of CSV exports, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		probeStoredRecords = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "websight_stored_records",
				Help: "Number of probe records held by the session store.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStage increments the stage counter for the given outcome.
func ObserveStage(stage, outcome string) {
	Init()
	probeStagesTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveLoadTime records a reported load time for the URL's site.
func ObserveLoadTime(rawURL string, seconds float64) {
	Init()
	probeLoadTimeSeconds.WithLabelValues(SanitizeSite(rawURL)).Observe(seconds)
}

// ObserveExport increments the export counter.
func ObserveExport(outcome string) {
	Init()
	probeExportsTotal.WithLabelValues(outcome).Inc()
}

// SetStoredRecords reports the current record store size.
func SetStoredRecords(n int) {
	Init()
	probeStoredRecords.Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
