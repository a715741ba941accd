package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/observability"
)

const prometheusContentType = "text/plain; version=0.0.4"

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

// hopHeaders are connection-scoped and must not be copied from the exporter.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// MetricsHandler serves /metrics on the main listener by relaying the
// scrape to the local Prometheus exporter.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		HandleError(w, r, errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Metrics exporter not initialized"))
		return
	}

	target := exporterURL()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		HandleError(w, r, exporterError("INTERNAL_ERROR", "Unable to build metrics request", target, err))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, exporterError("SERVICE_UNAVAILABLE", "Prometheus exporter unreachable", target, err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", prometheusContentType)
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to relay metrics", zap.Error(err))
	}
}

func exporterURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = viper.GetInt("metrics.port")
	}
	if port == 0 {
		port = 9090
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func exporterError(code, message, target string, cause error) error {
	envelope, _ := errors.NewErrorEnvelope(code, message).WithContext(map[string]interface{}{
		"metrics_url":    target,
		"original_error": cause.Error(),
	})
	return envelope
}
