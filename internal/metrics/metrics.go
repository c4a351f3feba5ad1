// Package metrics registers the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comfy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comfy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	aiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comfy_ai_calls_total",
			Help: "AI gateway calls by operation and outcome (ai, fallback, error)",
		},
		[]string{"operation", "outcome"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comfy_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	quotaDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comfy_ai_quota_denied_total",
			Help: "AI requests denied by the daily per-user ceiling",
		},
	)
)

// ObserveRequest records one served request. route is the chi pattern.
func ObserveRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveAI records an AI gateway outcome.
func ObserveAI(op, outcome string) { aiCallsTotal.WithLabelValues(op, outcome).Inc() }

// RateLimited counts a rejection by the named limiter.
func RateLimited(limiter string) { rateLimitedTotal.WithLabelValues(limiter).Inc() }

// QuotaDenied counts a request over the daily AI ceiling.
func QuotaDenied() { quotaDeniedTotal.Inc() }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
