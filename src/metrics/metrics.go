package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PlansComputed counts full allocation plan computations (cache misses).
	PlansComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_plans_computed_total",
			Help: "Allocation plans computed from a fresh store snapshot",
		},
	)

	// PlanCacheHits counts allocation plans served from cache.
	PlanCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_plan_cache_hits_total",
			Help: "Allocation plans served from the in-memory cache",
		},
	)

	// DebtPayments counts recorded debt payments.
	DebtPayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debt_payments_recorded_total",
			Help: "Debt payments recorded",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments a handler with request count and latency metrics.
// The route pattern registered on the mux is used as the path label so
// per-user URLs do not explode the cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
