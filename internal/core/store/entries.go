package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platelog/platelog/internal/core"
)

// DefaultListLimit applies when ListEntries is called without a positive limit.
const DefaultListLimit = 50

// SaveEntry stores a meal and its items in one transaction and returns the new
// entry id. createdAt defaults to the current time.
func (s *Store) SaveEntry(ctx context.Context, text string, items []core.ResolvedItem, createdAt *time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if err := core.ValidateItems(items); err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	when := time.Now().UTC()
	if createdAt != nil && !createdAt.IsZero() {
		when = createdAt.UTC()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save entry: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries (text, created_at)
		VALUES (?, ?)
	`, text, when.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	entryID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	for position, item := range items {
		n := item.Nutrients
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entry_items (
				entry_id, position, name, grams, off_product_name, off_code,
				energy_kcal, protein_g, fat_g, carbs_g, sugars_g, fiber_g, salt_g, sodium_mg
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entryID, position, item.Name, item.Grams,
			nullString(item.MatchedProductName), nullString(item.MatchedProductCode),
			n.EnergyKcal, n.ProteinG, n.FatG, n.CarbsG, n.SugarsG, n.FiberG, n.SaltG, n.SodiumMg)
		if err != nil {
			return 0, fmt.Errorf("insert entry item %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit entry: %w", err)
	}
	return entryID, nil
}

// ListEntries returns the most recent entries, newest first, with items.
func (s *Store) ListEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, text, created_at
		FROM entries
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := []core.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list entries: %w", err)
	}
	_ = rows.Close()

	if err := s.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry returns one entry with its items, or nil when it does not exist.
func (s *Store) GetEntry(ctx context.Context, id int64) (*core.Entry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, text, created_at
		FROM entries
		WHERE id = ?
	`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	entries := []core.Entry{entry}
	if err := s.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		entry     core.Entry
		createdAt int64
	)
	if err := row.Scan(&entry.ID, &entry.Text, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, fmt.Errorf("scan entry: %w", err)
	}
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	entry.Items = []core.ResolvedItem{}
	return entry, nil
}

// attachItems loads items for entries in one query and fills in totals.
func (s *Store) attachItems(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	index := make(map[int64]int, len(entries))
	placeholders := make([]string, len(entries))
	args := make([]any, len(entries))
	for i, entry := range entries {
		index[entry.ID] = i
		placeholders[i] = "?"
		args[i] = entry.ID
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT entry_id, name, grams, off_product_name, off_code,
			energy_kcal, protein_g, fat_g, carbs_g, sugars_g, fiber_g, salt_g, sodium_mg
		FROM entry_items
		WHERE entry_id IN (%s)
		ORDER BY entry_id, position
	`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return fmt.Errorf("load entry items: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			entryID     int64
			item        core.ResolvedItem
			productName sql.NullString
			productCode sql.NullString
		)
		n := &item.Nutrients
		if err := rows.Scan(&entryID, &item.Name, &item.Grams, &productName, &productCode,
			&n.EnergyKcal, &n.ProteinG, &n.FatG, &n.CarbsG, &n.SugarsG, &n.FiberG, &n.SaltG, &n.SodiumMg); err != nil {
			return fmt.Errorf("scan entry item: %w", err)
		}
		item.MatchedProductName = stringPtr(productName)
		item.MatchedProductCode = stringPtr(productCode)

		i, ok := index[entryID]
		if !ok {
			continue
		}
		entries[i].Items = append(entries[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load entry items: %w", err)
	}

	for i := range entries {
		entries[i].Totals = core.SumNutrients(entries[i].Items)
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	out := value.String
	return &out
}
