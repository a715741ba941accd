package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubExporter(t *testing.T, transport roundTripFunc) {
	t.Helper()

	originalClient := metricsProxyClient
	originalExporter := observability.PrometheusExporter
	t.Cleanup(func() {
		metricsProxyClient = originalClient
		observability.PrometheusExporter = originalExporter
	})

	metricsProxyClient = &http.Client{Transport: transport}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("test", ":9090")
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error.Code
}

func TestMetricsHandlerRelaysExporterOutput(t *testing.T) {
	stubExporter(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/metrics", req.URL.Path)
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("meal_analyses_total 4\n")),
			Header:     make(http.Header),
		}
		resp.Header.Set("Connection", "close")
		return resp, nil
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prometheusContentType, rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "meal_analyses_total 4")
}

func TestMetricsHandlerExporterUnreachable(t *testing.T) {
	stubExporter(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeErrorCode(t, rec.Body))
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeErrorCode(t, rec.Body))
}
