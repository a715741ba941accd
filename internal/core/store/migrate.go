package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);`,
	`CREATE TABLE IF NOT EXISTS entry_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		grams REAL NOT NULL,
		off_product_name TEXT,
		off_code TEXT,
		energy_kcal REAL NOT NULL DEFAULT 0,
		protein_g REAL NOT NULL DEFAULT 0,
		fat_g REAL NOT NULL DEFAULT 0,
		carbs_g REAL NOT NULL DEFAULT 0,
		sugars_g REAL NOT NULL DEFAULT 0,
		fiber_g REAL NOT NULL DEFAULT 0,
		salt_g REAL NOT NULL DEFAULT 0,
		sodium_mg REAL NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_entry_items_entry ON entry_items(entry_id, position);`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		endpoint TEXT PRIMARY KEY,
		request_count INTEGER NOT NULL DEFAULT 0,
		window_start INTEGER NOT NULL,
		backoff_until INTEGER,
		last_429_at INTEGER
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
