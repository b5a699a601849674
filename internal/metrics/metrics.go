// Package metrics exposes Prometheus instrumentation for the HTTP API and
// the background pipelines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankdesk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern, and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rankdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LeadsCaptured counts leads accepted through the public capture
	// endpoint, labeled by source.
	LeadsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankdesk",
		Name:      "leads_captured_total",
		Help:      "Leads captured, by source.",
	}, []string{"source"})

	// VideosProcessed counts pipeline outcomes.
	VideosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankdesk",
		Name:      "videos_processed_total",
		Help:      "Video pipeline outcomes.",
	}, []string{"outcome"})

	// RankChecks counts SERP lookups against the provider.
	RankChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankdesk",
		Name:      "rank_checks_total",
		Help:      "SERP checks submitted, by outcome.",
	}, []string{"outcome"})

	// APIKeyPoolExhausted counts checkouts that found no key with budget.
	APIKeyPoolExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankdesk",
		Name:      "api_key_pool_exhausted_total",
		Help:      "Key checkouts that failed because the pool was spent.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
