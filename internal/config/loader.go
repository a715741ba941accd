// Package config provides centralized configuration management for platelog.
//
// Settings are layered with viper: built-in defaults, the user config file
// at the XDG config path, {PREFIX}{NAME} environment variables, then runtime
// overrides such as command-line flags. The merged settings are decoded into
// a typed Config with mapstructure.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/platelog/platelog/internal/appid"
)

const fallbackAppName = "platelog"

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// EnvVarSpec maps one environment variable (without prefix) to a config key.
type EnvVarSpec struct {
	Name string
	Key  string
}

// envSpecs lists the environment variables understood by platelog.
var envSpecs = []EnvVarSpec{
	// Server config
	{Name: "HOST", Key: "server.host"},
	{Name: "PORT", Key: "server.port"},
	{Name: "READ_TIMEOUT", Key: "server.read_timeout"},
	{Name: "WRITE_TIMEOUT", Key: "server.write_timeout"},
	{Name: "IDLE_TIMEOUT", Key: "server.idle_timeout"},
	{Name: "SHUTDOWN_TIMEOUT", Key: "server.shutdown_timeout"},

	// Logging config
	{Name: "LOG_LEVEL", Key: "logging.level"},

	// Store config
	{Name: "DB_DRIVER", Key: "store.driver"},
	{Name: "DB_PATH", Key: "store.path"},
	{Name: "DB_URL", Key: "store.url"},
	{Name: "DB_AUTH_TOKEN", Key: "store.auth_token"},

	// Lookup config
	{Name: "LOOKUP_BASE_URL", Key: "lookup.base_url"},
	{Name: "LOOKUP_PAGE_SIZE", Key: "lookup.page_size"},
	{Name: "LOOKUP_TIMEOUT", Key: "lookup.timeout"},
	{Name: "LOOKUP_USER_AGENT", Key: "lookup.user_agent"},

	// Portion config
	{Name: "PORTIONS_DEFAULT_GRAMS", Key: "portions.default_grams"},
	{Name: "PORTIONS_ESTIMATE", Key: "portions.estimate"},
	{Name: "PORTIONS_TABLE", Key: "portions.table"},

	// Metrics config
	{Name: "METRICS_ENABLED", Key: "metrics.enabled"},
	{Name: "METRICS_PORT", Key: "metrics.port"},

	// Health config
	{Name: "HEALTH_ENABLED", Key: "health.enabled"},

	// Debug config
	{Name: "DEBUG_PPROF_ENABLED", Key: "debug.pprof_enabled"},
	{Name: "ADMIN_TOKEN", Key: "debug.admin_token"},

	{Name: "WORKERS", Key: "workers"},
	{Name: "RATE_LIMIT_MARGIN", Key: "rate_limit_margin"},
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Lookup defaults
	v.SetDefault("lookup.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("lookup.page_size", 5)
	v.SetDefault("lookup.timeout", "10s")
	v.SetDefault("lookup.user_agent", "platelog/dev (+https://github.com/platelog/platelog)")

	// Portion defaults
	v.SetDefault("portions.default_grams", 100.0)
	v.SetDefault("portions.estimate", false)
	v.SetDefault("portions.table", "")

	// Rate limit overrides (optional)
	v.SetDefault("rate_limits", map[string]int{})
	v.SetDefault("rate_limit_margin", 0.9)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Worker defaults
	v.SetDefault("workers", 4)

	// Debug defaults
	v.SetDefault("debug.pprof_enabled", false)
	v.SetDefault("debug.admin_token", "")
}

// BindEnv maps {prefix}{NAME} environment variables onto config keys.
func BindEnv(v *viper.Viper, prefix string) error {
	prefix = normalizePrefix(prefix)
	for _, spec := range envSpecs {
		if err := v.BindEnv(spec.Key, prefix+spec.Name); err != nil {
			return fmt.Errorf("bind %s%s: %w", prefix, spec.Name, err)
		}
	}
	return nil
}

// Load decodes the process-wide viper settings into a Config.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	prefix := ""
	if appIdentity != nil {
		prefix = appIdentity.EnvPrefix
	}

	cfg, err := LoadFrom(viper.GetViper(), prefix, runtimeOverrides...)
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// LoadFrom applies defaults and environment bindings to v and decodes the
// result, with runtimeOverrides merged on top.
func LoadFrom(v *viper.Viper, envPrefix string, runtimeOverrides ...map[string]any) (*Config, error) {
	SetDefaults(v)
	if strings.TrimSpace(envPrefix) != "" {
		if err := BindEnv(v, envPrefix); err != nil {
			return nil, err
		}
	}

	settings := v.AllSettings()
	// Endpoint keys are hostnames; AllSettings would split them on dots.
	if limits := v.Get("rate_limits"); limits != nil {
		settings["rate_limits"] = limits
	}
	for _, overrides := range runtimeOverrides {
		mergeSettings(settings, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Portions.DefaultGrams <= 0 {
		return fmt.Errorf("portions.default_grams must be positive, got %v", c.Portions.DefaultGrams)
	}
	if c.Lookup.PageSize < 0 {
		return fmt.Errorf("lookup.page_size must not be negative, got %d", c.Lookup.PageSize)
	}
	if c.Lookup.Timeout < 0 {
		return fmt.Errorf("lookup.timeout must not be negative, got %s", c.Lookup.Timeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// mergeSettings deep-merges src into dst. Keys are lowercased to match viper.
func mergeSettings(dst map[string]any, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		nested, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[key] = existing
		}
		mergeSettings(existing, nested)
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "platelog" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = fallbackAppName
	binaryName = fallbackAppName
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
