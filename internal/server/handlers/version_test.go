package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandlerReportsBuildAndPipeline(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2026-10-01T12:00:00Z")
	SetAppIdentity(&appidentity.Identity{BinaryName: "platelog"})
	SetPipelineInfo(PipelineInfo{
		LookupBaseURL: "https://world.openfoodfacts.org",
		PageSize:      5,
		DefaultGrams:  100,
	})
	t.Cleanup(func() {
		SetVersionInfo("dev", "unknown", "unknown")
		SetAppIdentity(nil)
		SetPipelineInfo(PipelineInfo{})
	})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "platelog", resp.App.Name)
	assert.Equal(t, "1.2.3", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.Equal(t, "https://world.openfoodfacts.org", resp.Pipeline.LookupBaseURL)
	assert.Equal(t, 5, resp.Pipeline.PageSize)
	assert.Equal(t, 100.0, resp.Pipeline.DefaultGrams)
	assert.False(t, resp.Pipeline.PortionEstimate)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.NotEmpty(t, resp.Dependencies.Crucible)
}

func TestVersionHandlerFallsBackToExecutableName(t *testing.T) {
	SetAppIdentity(nil)

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.App.Name)
}
