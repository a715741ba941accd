package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/platelog/platelog/internal/config"
	"github.com/platelog/platelog/internal/core/engine"
	"github.com/platelog/platelog/internal/core/items"
	"github.com/platelog/platelog/internal/core/lookup"
	"github.com/platelog/platelog/internal/core/store"
	"github.com/platelog/platelog/internal/observability"
)

// buildResolver wires the lookup client, rate limiter and portion table from
// config. limiterStore may be nil, in which case searches are not budgeted.
func buildResolver(cfg *config.Config, limiterStore engine.RateLimitStore, logger *logging.Logger) (*engine.Resolver, error) {
	var limiter *engine.RateLimiter
	if limiterStore != nil {
		limiter = &engine.RateLimiter{Store: limiterStore}
		limiter.ApplyOverrides(cfg.RateLimits)
		limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	}

	portions, err := loadPortions(cfg.Portions)
	if err != nil {
		return nil, err
	}

	searcher := &lookup.OpenFoodFacts{
		Client:    &http.Client{},
		Limiter:   limiter,
		Logger:    logger,
		BaseURL:   cfg.Lookup.BaseURL,
		PageSize:  cfg.Lookup.PageSize,
		Timeout:   cfg.Lookup.Timeout,
		UserAgent: userAgent(cfg.Lookup.UserAgent),
	}

	return &engine.Resolver{
		Searcher:         searcher,
		Portions:         portions,
		EstimatePortions: cfg.Portions.Estimate,
		DefaultGrams:     cfg.Portions.DefaultGrams,
		Workers:          cfg.Workers,
		Logger:           logger,
	}, nil
}

func loadPortions(cfg config.PortionsConfig) (*items.PortionTable, error) {
	path := strings.TrimSpace(cfg.Table)
	if path == "" {
		return items.DefaultPortionTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portion table: %w", err)
	}
	return items.LoadPortionTable(data)
}

// userAgent identifies the tool to Open Food Facts, which asks API clients to
// name themselves.
func userAgent(configured string) string {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		return trimmed
	}
	name := "platelog"
	if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
		name = identity.BinaryName
	}
	version := versionInfo.Version
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("%s/%s", name, version)
}

// openPipeline loads config, opens the store and builds a resolver whose
// rate limiter shares it.
func openPipeline(ctx context.Context) (*config.Config, *store.Store, *engine.Resolver, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	db, err := openStoreWith(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	resolver, err := buildResolver(cfg, db, observability.CLILogger)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return cfg, db, resolver, nil
}
