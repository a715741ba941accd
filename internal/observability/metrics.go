package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// defaultMetricsPort is reported when the exporter was asked for an
// ephemeral port and its bound address could not be read back.
const defaultMetricsPort = 9090

var (
	// TelemetrySystem receives every counter, gauge and histogram the app
	// emits. A nil system turns all recording helpers into no-ops.
	TelemetrySystem *telemetry.System

	// PrometheusExporter backs TelemetrySystem when metrics are enabled.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free port) and
// routes TelemetrySystem through it. Metric names are prefixed with namespace
// when given, otherwise with serviceName.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if port < 0 {
		port = 0
	}
	metricsPort = port

	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}
	PrometheusExporter = exporter

	switch bound, err := portOf(exporter.GetAddr()); {
	case err == nil:
		metricsPort = bound
	case port == 0:
		metricsPort = defaultMetricsPort
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return fmt.Errorf("create telemetry system: %w", err)
	}
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the exporter is serving on.
func GetMetricsPort() int {
	return metricsPort
}

func portOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
