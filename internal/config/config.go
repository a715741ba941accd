package config

import (
	"time"
)

// Config is the decoded platelog configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Portions PortionsConfig `mapstructure:"portions"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Workers  int            `mapstructure:"workers"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the meal store: a local libsql file by default, or a
// remote Turso database when URL is set.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LookupConfig configures the Open Food Facts product search.
type LookupConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	PageSize  int           `mapstructure:"page_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// PortionsConfig controls how item weights are chosen when the caller gives
// none.
type PortionsConfig struct {
	// DefaultGrams is the weight assumed for every item.
	DefaultGrams float64 `mapstructure:"default_grams"`

	// Estimate derives weights from quantities such as "2 slices" instead.
	Estimate bool `mapstructure:"estimate"`

	// Table is an optional YAML file replacing the built-in unit weights.
	Table string `mapstructure:"table"`
}

// LoggingConfig is applied to the server logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus exporter. When disabled /metrics
// answers 503 and request metrics are not recorded.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig toggles the /health probes.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig holds development-only switches.
type DebugConfig struct {
	// PprofEnabled mounts net/http/pprof under /debug. Never expose it publicly.
	PprofEnabled bool `mapstructure:"pprof_enabled"`

	// AdminToken enables POST /admin/signal with bearer auth.
	AdminToken string `mapstructure:"admin_token"`
}
