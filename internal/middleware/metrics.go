package middleware

import (
	"net/http"
	"time"

	"github.com/centxo/adser-dashboard/internal/metrics"
)

// knownRoutes bounds the route label cardinality.
var knownRoutes = map[string]bool{
	"/health":               true,
	"/metrics":              true,
	"/api/dashboard/data":   true,
	"/api/dashboard/charts": true,
	"/api/dashboard/tabs":   true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// MetricsMiddleware records request counts and latency per route.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)
		m.metrics.RecordRequest(routeLabel(r.URL.Path), r.Method, rw.status, time.Since(start))
	})
}
