package integration

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/core"
	"github.com/platelog/platelog/internal/core/engine"
	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/server"
	"github.com/platelog/platelog/internal/server/handlers"
)

// cannedSearcher knows a single product, rolled oats.
type cannedSearcher struct{}

func (cannedSearcher) Search(ctx context.Context, query string) []core.ProductCandidate {
	if query != "oats" {
		return nil
	}
	return []core.ProductCandidate{{
		DisplayName:      "Rolled oats",
		ProductCode:      "5000",
		NutrientsPer100g: map[string]float64{"energy-kcal_100g": 372, "proteins_100g": 13},
	}}
}

// sandboxDenied reports whether err means loopback sockets are blocked.
func sandboxDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted")
}

func initLoggers() {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")
}

// startExporter brings up a Prometheus exporter on a free port and resets
// global telemetry when the test ends.
func startExporter(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if sandboxDenied(err) {
			t.Skipf("exporter bind refused: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// startServer serves the full platelog router on IPv4 loopback.
func startServer(t *testing.T) (string, *http.Client) {
	t.Helper()
	handlers.InitHealthManager("test")
	srv := server.New(server.Options{
		Host:  "127.0.0.1",
		Meals: handlers.NewMealHandler(&engine.Resolver{Searcher: cannedSearcher{}}, nil),
	})

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if sandboxDenied(err) {
			t.Skipf("loopback listen refused: %v", err)
		}
		require.NoError(t, err)
	}
	ts := &httptest.Server{Listener: listener, Config: &http.Server{Handler: srv.Handler()}}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts.URL, ts.Client()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestConcurrentTrafficIsScraped(t *testing.T) {
	initLoggers()
	startExporter(t)
	baseURL, client := startServer(t)

	requests := []func() (*http.Response, error){
		func() (*http.Response, error) {
			return client.Post(baseURL+"/api/analyze", "application/json", strings.NewReader(`{"text": "40 g oats, milk"}`))
		},
		func() (*http.Response, error) {
			return client.Post(baseURL+"/api/parse", "application/json", strings.NewReader(`{"text": "2 eggs and toast"}`))
		},
		func() (*http.Response, error) { return client.Get(baseURL + "/health") },
		func() (*http.Response, error) { return client.Get(baseURL + "/no-such-route") },
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				resp, err := requests[(worker+i)%len(requests)]()
				if assert.NoError(t, err) {
					_ = resp.Body.Close()
				}
			}
		}(worker)
	}
	wg.Wait()

	resp, err := client.Get(baseURL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain; version=0.0.4")
	scrape := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, series := range []string{
		"test_http_requests_total",
		"test_http_request_duration_ms",
		"meal_analyses_total",
		"meal_items_total",
	} {
		assert.Contains(t, scrape, series)
	}

	samples := 0
	for _, line := range strings.Split(scrape, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") && len(strings.Fields(line)) >= 2 {
			samples++
		}
	}
	assert.Positive(t, samples)
}

func TestMetricsUnavailableWithoutExporter(t *testing.T) {
	initLoggers()
	exporter, system := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter, observability.TelemetrySystem = nil, nil
	t.Cleanup(func() {
		observability.PrometheusExporter, observability.TelemetrySystem = exporter, system
	})

	baseURL, client := startServer(t)

	resp, err := client.Post(baseURL+"/api/analyze", "application/json", strings.NewReader(`{"text": "oats"}`))
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(baseURL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "SERVICE_UNAVAILABLE")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAnalyzeOverHTTP(t *testing.T) {
	initLoggers()
	baseURL, client := startServer(t)

	resp, err := client.Post(baseURL+"/api/analyze", "application/json",
		strings.NewReader(`{"text": "40 g oats, milk", "grams": {"1": 200}}`))
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.Contains(t, body, `"off_product_name":"Rolled oats"`)
	assert.Contains(t, body, `"off_product_name":null`)
	assert.Contains(t, body, `"grams":200`)

	resp, err = client.Post(baseURL+"/api/analyze", "application/json",
		strings.NewReader(`{"text": "oats", "grams": {"4": 10}}`))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "VALIDATION")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
