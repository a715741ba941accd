package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/config"
	"github.com/platelog/platelog/internal/core/engine"
	"github.com/platelog/platelog/internal/core/store"
	errwrap "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/metrics"
	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/server"
	"github.com/platelog/platelog/internal/server/handlers"
)

const defaultShutdownTimeout = 10 * time.Second

// checkFunc adapts a function to handlers.HealthChecker.
type checkFunc func(ctx context.Context) error

func (f checkFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

func storeCheck(db *store.Store) checkFunc {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "meal store unreachable")
		}
		return nil
	}
}

func telemetryCheck(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// resolverCheck fails when the resolver lost its lookup or portion table.
func resolverCheck(resolver *engine.Resolver) checkFunc {
	return func(context.Context) error {
		switch {
		case resolver == nil || resolver.Searcher == nil:
			return errwrap.NewInternalError("meal resolver has no product lookup")
		case resolver.EstimatePortions && resolver.Portions == nil:
			return errwrap.NewConfigInvalidError("portion estimation enabled without a portion table")
		}
		return nil
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the meal log web page and JSON API",
	Long: `Start the HTTP server: the meal page at /, the JSON API under /api,
plus health, version and metrics endpoints.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (lookup, portion and store settings need a restart)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()

	cfg, err := config.Load(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "invalid configuration")
	}
	if err := startObservability(identity, cfg); err != nil {
		return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
	}
	logger := observability.ServerLogger

	db, err := openStoreWith(ctx, cfg)
	if err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "failed to open meal store")
	}
	resolver, err := buildResolver(cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return errwrap.WrapConfigInvalid(ctx, err, "failed to build meal resolver")
	}

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("store", storeCheck(db))
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", checkFunc(telemetryCheck))
	}
	hm.RegisterChecker("resolver", resolverCheck(resolver))

	handlers.SetAppIdentity(identity)
	handlers.SetPipelineInfo(handlers.PipelineInfo{
		LookupBaseURL:   cfg.Lookup.BaseURL,
		PageSize:        cfg.Lookup.PageSize,
		DefaultGrams:    cfg.Portions.DefaultGrams,
		PortionEstimate: cfg.Portions.Estimate,
	})

	srv := server.New(server.Options{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Meals:         handlers.NewMealHandler(resolver, db),
		DisableHealth: !cfg.Health.Enabled,
		Pprof:         cfg.Debug.PprofEnabled,
		AdminToken:    cfg.Debug.AdminToken,
	})

	registerShutdown(srv, db, cfg.Server.ShutdownTimeout)
	signals.OnReload(reloadConfig)
	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		metrics.SetServerStartTime(time.Now())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// startObservability installs the server logger and, unless metrics are
// disabled, the Prometheus exporter under the identity's telemetry namespace.
func startObservability(identity *appidentity.Identity, cfg *config.Config) error {
	namespace := identity.TelemetryNamespace()
	observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)

	if cfg.Metrics.Enabled {
		port := cfg.Metrics.Port
		if port == 0 {
			port = 9090
		}
		if err := observability.InitMetrics(identity.BinaryName, port, namespace); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
			return err
		}
	}

	observability.ServerLogger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.String("lookup", cfg.Lookup.BaseURL))
	return nil
}

// registerShutdown installs the shutdown hooks. They run LIFO: HTTP server,
// then store, then logger flush.
func registerShutdown(srv *server.Server, db *store.Store, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger := observability.ServerLogger

	signals.OnShutdown(func(ctx context.Context) error {
		if err := logger.Sync(); err != nil {
			// stdout/stderr may already be closed.
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		if err := db.Close(); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store close failed")
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})
}

func reloadConfig(ctx context.Context) error {
	logger := observability.ServerLogger
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		logger.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
		return nil
	case errors.As(err, &notFound):
		logger.Info("No config file found - using defaults and environment variables")
		return nil
	default:
		logger.Error("Failed to reload config file",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}
}
