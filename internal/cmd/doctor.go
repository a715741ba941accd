package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/config"
	"github.com/platelog/platelog/internal/core/lookup"
	"github.com/platelog/platelog/internal/observability"
)

// doctorProbeQuery is a search term every Open Food Facts mirror answers.
const doctorProbeQuery = "water"

var (
	doctorOnline    bool
	doctorInitForce bool
	doctorResetConf bool
	doctorResetData bool
	doctorResetAll  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the local installation: runtime, config,
meal store and portion table. With --online the Open Food Facts search is
probed with one real request.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		identity := GetAppIdentity()
		bannerName := "doctor"
		if identity != nil && identity.BinaryName != "" {
			bannerName = identity.BinaryName + " doctor"
		}
		logger.Info("=== " + bannerName + " ===")
		logger.Info("")

		healthy := true
		const totalChecks = 6
		step := func(n int, label string) string {
			return fmt.Sprintf("[%d/%d] %s...", n, totalChecks, label)
		}

		goVersion := runtime.Version()
		logger.Info(step(1, "Checking Go runtime")+" ✅ "+goVersion,
			zap.String("go_version", goVersion),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		version := crucible.GetVersion()
		if version.Gofulmen != "" && version.Crucible != "" {
			logger.Info(fmt.Sprintf("%s ✅ gofulmen v%s, crucible v%s", step(2, "Checking Fulmen libraries"), version.Gofulmen, version.Crucible))
		} else {
			logger.Warn(step(2, "Checking Fulmen libraries") + " ⚠️  version metadata unavailable")
			healthy = false
		}

		configPath := config.DefaultConfigPath()
		cfg, cfgErr := config.Load(ctx)
		switch {
		case cfgErr != nil:
			logger.Warn(step(3, "Checking config")+" ❌ invalid", zap.Error(cfgErr))
			healthy = false
		case fileExists(configPath):
			logger.Info(step(3, "Checking config")+" ✅ "+configPath, zap.String("config_path", configPath))
		default:
			logger.Info(step(3, "Checking config")+" ✅ defaults (no file at "+configPath+")", zap.String("config_path", configPath))
		}
		if cfgErr != nil {
			logger.Warn("Remaining checks skipped (config not loaded)")
			logger.Info("=== End Diagnostics ===")
			return
		}

		if !checkStore(ctx, cfg, step(4, "Checking meal store")) {
			healthy = false
		}

		if _, err := loadPortions(cfg.Portions); err != nil {
			logger.Warn(step(5, "Checking portion table")+" ❌", zap.Error(err))
			healthy = false
		} else {
			source := "built-in"
			if strings.TrimSpace(cfg.Portions.Table) != "" {
				source = cfg.Portions.Table
			}
			logger.Info(fmt.Sprintf("%s ✅ %s (default %.0f g, estimate=%t)", step(5, "Checking portion table"), source, cfg.Portions.DefaultGrams, cfg.Portions.Estimate))
		}

		if !doctorOnline {
			logger.Info(step(6, "Checking Open Food Facts") + " skipped (use --online)")
		} else if !probeLookup(ctx, cfg, step(6, "Checking Open Food Facts")) {
			healthy = false
		}

		logger.Info("")
		if healthy {
			logger.Info("✅ All checks passed")
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		logger.Info("=== End Diagnostics ===")
	},
}

func checkStore(ctx context.Context, cfg *config.Config, label string) bool {
	logger := observability.CLILogger

	location := cfg.Store.URL
	if location == "" {
		absPath, _ := filepath.Abs(cfg.Store.Path)
		location = absPath
		if info, err := os.Stat(absPath); err == nil {
			location = fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
		}
	}

	db, err := openStoreWith(ctx, cfg)
	if err != nil {
		logger.Warn(label+" ❌ "+location, zap.Error(err))
		return false
	}
	defer db.Close() //nolint:errcheck

	latest, err := db.ListEntries(ctx, 1)
	if err != nil {
		logger.Warn(label+" ❌ "+location, zap.Error(err))
		return false
	}
	if len(latest) == 0 {
		logger.Info(label + " ✅ " + location + ", no meals yet")
		return true
	}
	logger.Info(fmt.Sprintf("%s ✅ %s, last meal %s", label, location, formatTimeAgo(latest[0].CreatedAt)))
	return true
}

func probeLookup(ctx context.Context, cfg *config.Config, label string) bool {
	client := &lookup.OpenFoodFacts{
		Client:    &http.Client{},
		BaseURL:   cfg.Lookup.BaseURL,
		PageSize:  1,
		Timeout:   cfg.Lookup.Timeout,
		UserAgent: userAgent(cfg.Lookup.UserAgent),
	}

	startedAt := time.Now()
	candidates, err := client.SearchProducts(ctx, doctorProbeQuery)
	elapsed := time.Since(startedAt)
	if err != nil {
		observability.CLILogger.Warn(label+" ❌", zap.Duration("elapsed", elapsed), zap.Error(err))
		return false
	}
	observability.CLILogger.Info(fmt.Sprintf("%s ✅ %d result(s) in %s", label, len(candidates), elapsed.Round(time.Millisecond)))
	return true
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(configPath) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(buildInitConfig()), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the user config file and/or the local meal database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConf = true
			doctorResetData = true
		}
		if !doctorResetConf && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConf {
			if err := removeIfPresent("Config", config.DefaultConfigPath()); err != nil {
				return err
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}
			absPath, _ := filepath.Abs(cfg.Store.Path)
			if err := removeIfPresent("Database", absPath); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorResetCmd)

	doctorCmd.Flags().BoolVar(&doctorOnline, "online", false, "probe the Open Food Facts search with one request")
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetConf, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local meal database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

func removeIfPresent(label, path string) error {
	if path == "" {
		observability.CLILogger.Warn(label + " path not resolved; skipping")
		return nil
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		observability.CLILogger.Info(label+" removed", zap.String("path", path))
	case os.IsNotExist(err):
		observability.CLILogger.Info(label+" already removed", zap.String("path", path))
	default:
		return fmt.Errorf("remove %s: %w", strings.ToLower(label), err)
	}
	return nil
}

func buildInitConfig() string {
	lines := []string{
		"# platelog config - created by 'platelog doctor init'",
		"lookup:",
		"  base_url: " + lookup.DefaultBaseURL,
		fmt.Sprintf("  page_size: %d", lookup.DefaultPageSize),
		"  timeout: " + lookup.DefaultTimeout.String(),
		"portions:",
		"  default_grams: 100",
		"  # estimate: true  # use quantities such as \"2 slices\" when present",
		"  # table: /path/to/portions.yaml",
		"server:",
		"  host: localhost",
		"  port: 8080",
	}
	return strings.Join(lines, "\n") + "\n"
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// formatTimeAgo returns a human-readable relative time
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "min") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
