package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/metrics"
)

// Check results reported per registered checker.
const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkTimeout   = "timeout"
	statusDegraded = "degraded"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live/ready/startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is anything the probes can ask "are you ok", such as the
// meal store.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// probe names a health endpoint and how long its checks may take.
type probe struct {
	name    string
	message string
	timeout time.Duration
}

var (
	aggregateProbe = probe{name: "aggregate", message: "aggregate health check failed", timeout: 5 * time.Second}
	liveProbe      = probe{name: "live", message: "liveness probe failed", timeout: 2 * time.Second}
	readyProbe     = probe{name: "ready", message: "readiness probe failed", timeout: 5 * time.Second}
	startupProbe   = probe{name: "startup", message: "startup probe failed", timeout: 3 * time.Second}
)

// HealthManager runs registered checkers for the health endpoints.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager returns a manager with no checkers.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker stored under name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks runs checkers in name order. Once ctx expires the
// remaining checkers are reported as timed out.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			results[name] = checkTimeout
			continue
		}

		started := time.Now()
		err := checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(started))

		if err != nil {
			results[name] = checkUnhealthy
		} else {
			results[name] = checkHealthy
		}
	}
	return results
}

// determineOverallStatus is unhealthy if any check failed, degraded if any
// timed out, and healthy otherwise.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := checkHealthy
	for _, result := range checks {
		switch result {
		case checkUnhealthy:
			return checkUnhealthy
		case checkTimeout, statusDegraded:
			status = statusDegraded
		}
	}
	return status
}

func (hm *HealthManager) evaluate(r *http.Request, p probe) (string, map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	checks := hm.runHealthChecks(ctx)
	return hm.determineOverallStatus(checks), checks
}

// HealthHandler serves GET /health with every check result.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, checks := hm.evaluate(r, aggregateProbe)
	if status == checkUnhealthy {
		apperrors.RespondWithError(w, r, healthFailure(aggregateProbe, status, checks))
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler serves GET /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, liveProbe)
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, readyProbe)
}

// StartupHandler serves GET /health/startup.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, startupProbe)
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, p probe) {
	status, checks := hm.evaluate(r, p)
	if status == checkUnhealthy {
		apperrors.RespondWithError(w, r, healthFailure(p, status, checks))
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

// healthFailure builds the 503 envelope. Details carry the full check map;
// context lists only the failing checker names for the log line.
func healthFailure(p probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status, "probe": p.name}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope := errors.NewErrorEnvelope(apperrors.CodeServiceUnavailable, p.message).WithDetails(details)

	logContext := map[string]interface{}{"status": status, "probe": p.name}
	var failing []string
	for name, result := range checks {
		if result != checkHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		logContext["unhealthy_checks"] = failing
	}
	if updated, err := envelope.WithContext(logContext); err == nil {
		envelope = updated
	}
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the process-wide manager used by the routes.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide manager, or nil before init.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func withGlobalManager(p probe, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			serve(hm, w, r)
			return
		}
		apperrors.RespondWithError(w, r, healthFailure(
			probe{name: p.name, message: "health manager not initialized"}, "unknown", nil))
	}
}

// Package-level handlers delegate to the process-wide manager.
var (
	HealthHandler    = withGlobalManager(aggregateProbe, (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobalManager(liveProbe, (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobalManager(readyProbe, (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobalManager(startupProbe, (*HealthManager).StartupHandler)
)
