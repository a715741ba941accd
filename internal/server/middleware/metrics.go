package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/observability"
)

// statusRecorder keeps the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// knownEndpoints maps raw paths to metric labels for requests that reach the
// middleware without a chi route pattern.
var knownEndpoints = map[string]string{
	"/":               "/",
	"/analyze":        "/analyze",
	"/api/parse":      "/api/parse",
	"/api/analyze":    "/api/analyze",
	"/api/entries":    "/api/entries",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/version":        "/version",
	"/metrics":        "/metrics",
}

// EndpointPattern returns a low-cardinality label for r. Entry IDs
// collapse into /api/entries/*; anything unrecognised is /unknown.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	if label, ok := knownEndpoints[path]; ok {
		return label
	}
	if strings.HasPrefix(path, "/api/entries/") {
		return "/api/entries/*"
	}
	return "/unknown"
}

// RequestMetrics emits the http_* request metrics and logs one line per
// request. It is a pass-through when telemetry is off.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel := observability.TelemetrySystem
		if tel == nil {
			next.ServeHTTP(w, r)
			return
		}

		var requestSize int64
		if size, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
			requestSize = size
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := EndpointPattern(r)
		status := strconv.Itoa(rec.status)
		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}

		_ = tel.Counter("http_requests_total", 1, labels)
		_ = tel.Histogram("http_request_duration_ms", elapsed, labels)
		_ = tel.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
		_ = tel.Gauge("http_response_size_bytes", float64(rec.bytes), sizeLabels)

		if rec.status >= http.StatusBadRequest {
			errorType := "client_error"
			if rec.status >= http.StatusInternalServerError {
				errorType = "server_error"
			}
			_ = tel.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", rec.bytes),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		}
	})
}
