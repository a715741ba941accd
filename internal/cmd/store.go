package cmd

import (
	"context"
	"fmt"

	"github.com/platelog/platelog/internal/config"
	"github.com/platelog/platelog/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openStoreWith(ctx, cfg)
}

func openStoreWith(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
