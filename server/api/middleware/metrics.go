package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/countdown/metrics"
)

// HTTPMetrics holds request-level metrics of the API server.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// NewHTTPMetrics registers HTTP metrics on reg.
func NewHTTPMetrics(reg *metrics.ComponentRegistry) *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		RequestDuration: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: metrics.DurationBuckets,
		}, []string{"route", "method"}),

		InFlight: reg.NewGauge(prometheus.GaugeOpts{
			Name: "requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
	}
}

// Metrics records request counts and latencies. It must be installed on the
// router with Router.Use so the matched route template is known.
func Metrics(m *HTTPMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
