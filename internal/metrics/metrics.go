// Package metrics exposes Prometheus metrics for the Lendery server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendery_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lendery_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	booksListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lendery_books_listed_total",
		Help: "Count of books listed for lending",
	})

	lendingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lendery_lending_transitions_total",
		Help: "Count of lending state transitions by kind",
	}, []string{"transition"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lendery_sessions_started_total",
		Help: "Count of successful logins",
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// BookListed counts a newly listed book.
func BookListed() {
	booksListed.Inc()
}

// LendingTransition counts a lending state transition.
// Known transitions: reserve, cancel, receive, return, remove.
func LendingTransition(transition string) {
	lendingTransitions.WithLabelValues(transition).Inc()
}

// SessionStarted counts a successful login.
func SessionStarted() {
	sessionsStarted.Inc()
}

// Middleware records request count and duration per route pattern.
// The chi route pattern is used instead of the raw URL so book IDs don't
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		ObserveHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
