package metrics

import (
	"time"

	"github.com/platelog/platelog/internal/observability"
)

// Process-level metrics for the serve command.
var (
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

// RecordHealthCheck counts one run of a registered health checker.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": checkName,
	})
}

// SetServerStartTime records when the HTTP server began listening.
func SetServerStartTime(started time.Time) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(started.Unix()), nil)
	}
}
