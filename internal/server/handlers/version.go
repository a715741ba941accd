package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// Build metadata, set from main through SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"

	appIdentity *appidentity.Identity
	pipeline    PipelineInfo
)

// SetVersionInfo records the ldflags build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetAppIdentity sets the identity reported as the app name.
func SetAppIdentity(identity *appidentity.Identity) {
	appIdentity = identity
}

// SetPipelineInfo records how the running server resolves meals.
func SetPipelineInfo(info PipelineInfo) {
	pipeline = info
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          AppInfo      `json:"app"`
	Pipeline     PipelineInfo `json:"pipeline"`
	Dependencies DepInfo      `json:"dependencies"`
	Runtime      RuntimeInfo  `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// PipelineInfo describes the lookup source and portion defaults in effect.
type PipelineInfo struct {
	LookupBaseURL   string  `json:"lookup_base_url,omitempty"`
	PageSize        int     `json:"page_size,omitempty"`
	DefaultGrams    float64 `json:"default_grams,omitempty"`
	PortionEstimate bool    `json:"portion_estimate"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

func appName() string {
	if appIdentity != nil && appIdentity.BinaryName != "" {
		return appIdentity.BinaryName
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()

	writeJSON(w, http.StatusOK, VersionResponse{
		App: AppInfo{
			Name:      appName(),
			Version:   AppVersion,
			Commit:    AppCommit,
			BuildDate: AppBuildDate,
			GoVersion: runtime.Version(),
		},
		Pipeline: pipeline,
		Dependencies: DepInfo{
			Gofulmen: deps.Gofulmen,
			Crucible: deps.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
