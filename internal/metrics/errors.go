package metrics

import (
	"strconv"

	"github.com/platelog/platelog/internal/observability"
)

// HTTP error metrics
const (
	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"
)

// RecordError counts one error response by envelope code and status.
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsTotal, 1, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts one recovered handler panic.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
	}
}

// RecordErrorByEndpoint counts one error response against a route pattern.
// Callers pass the pattern, not the raw path, so entry IDs do not become labels.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsByEndpoint, 1, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
