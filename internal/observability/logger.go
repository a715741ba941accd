package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger serves one-shot commands (analyze, history, doctor).
	CLILogger *logging.Logger

	// ServerLogger serves the long-running HTTP process.
	ServerLogger *logging.Logger
)

// InitCLILogger sets CLILogger to a SIMPLE-profile logger. verbose lowers the
// level to DEBUG so lookup throughput and rate-limit decisions show up.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatalInit("CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger sets ServerLogger to a STRUCTURED-profile logger writing
// JSON to stderr with request correlation. namespace, when given, is attached
// to every record.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	logger, err := logging.New(serverLoggerConfig(serviceName, normalizeLevel(logLevel), namespace...))
	if err != nil {
		fatalInit("server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(serviceName, level string, namespace ...string) *logging.LoggerConfig {
	static := map[string]any{}
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: level,
		Service:      serviceName,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// normalizeLevel maps a config level ("debug", "Warning", ...) to the
// severity names gofulmen expects. Unknown values fall back to INFO.
func normalizeLevel(level string) string {
	switch upper := strings.ToUpper(strings.TrimSpace(level)); upper {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
		return upper
	case "WARNING":
		return "WARN"
	default:
		return "INFO"
	}
}

// fatalInit runs before any logger exists, so it reports on stderr directly.
func fatalInit(what string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: failed to initialize %s: %v\n", what, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
