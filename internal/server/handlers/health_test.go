package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err   error
	calls *int
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	if s.calls != nil {
		*s.calls++
	}
	return s.err
}

func TestHealthHandlerHealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["store"])
}

func TestHealthHandlerUnhealthyStore(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{err: errors.New("database is locked")})
	manager.RegisterChecker("portions", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, "aggregate", resp.Error.Details["probe"])

	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	require.True(t, ok, "checks missing from details")
	assert.Equal(t, "unhealthy", checks["store"])
	assert.Equal(t, "healthy", checks["portions"])
}

func TestProbesShareCheckers(t *testing.T) {
	calls := 0
	manager := NewHealthManager("dev")
	manager.RegisterChecker("store", stubChecker{calls: &calls})

	for _, handler := range []http.HandlerFunc{
		manager.LivenessHandler,
		manager.ReadinessHandler,
		manager.StartupHandler,
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ProbeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
	}
	assert.Equal(t, 3, calls)
}

func TestRunHealthChecksAfterDeadline(t *testing.T) {
	calls := 0
	manager := NewHealthManager("dev")
	manager.RegisterChecker("store", stubChecker{calls: &calls})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := manager.runHealthChecks(ctx)
	assert.Equal(t, "timeout", checks["store"])
	assert.Zero(t, calls)
	assert.Equal(t, "degraded", manager.determineOverallStatus(checks))
}

func TestDetermineOverallStatus(t *testing.T) {
	manager := NewHealthManager("dev")

	assert.Equal(t, "healthy", manager.determineOverallStatus(nil))
	assert.Equal(t, "degraded", manager.determineOverallStatus(map[string]string{"a": "healthy", "b": "timeout"}))
	assert.Equal(t, "unhealthy", manager.determineOverallStatus(map[string]string{"a": "timeout", "b": "unhealthy"}))
}

func TestPackageHandlersWithoutManager(t *testing.T) {
	original := globalHealthManager
	globalHealthManager = nil
	t.Cleanup(func() { globalHealthManager = original })

	rec := httptest.NewRecorder()
	ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "health manager not initialized")

	InitHealthManager("0.1.0")
	rec = httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, globalHealthManager, GetHealthManager())
}
