// Package metrics exposes Prometheus counters for the inventory lifecycle
// and an HTTP instrumentation middleware.
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
	// LoansCreated counts successful loan creations.
	LoansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obrastock_loans_created_total",
		Help: "Number of loans created.",
	})

	// LoansReturned counts successful loan returns.
	LoansReturned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obrastock_loans_returned_total",
		Help: "Number of loans returned.",
	})

	// ToolsRegistered counts tool entry registrations.
	ToolsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obrastock_tools_registered_total",
		Help: "Number of tools registered.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "obrastock_http_request_duration_seconds",
		Help:    "HTTP request duration by method and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware observes request durations.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
