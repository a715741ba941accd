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

// Lookup budgets are kept per endpoint host (for example
// "world.openfoodfacts.org"). Times are stored as Unix seconds.

const rateLimitColumns = `endpoint, request_count, window_start, backoff_until, last_429_at`

// RateLimitEntry is one stored budget row.
type RateLimitEntry struct {
	Endpoint string              `json:"endpoint"`
	State    core.RateLimitState `json:"state"`
}

// RateLimitQuery selects budget rows for the admin commands. Exactly one of
// All, Endpoint or Prefix should be set; Endpoint wins over Prefix.
type RateLimitQuery struct {
	All      bool
	Endpoint string
	Prefix   string
}

// Validate rejects a query that selects nothing.
func (q RateLimitQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Endpoint) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --endpoint, or --prefix")
}

func (q RateLimitQuery) where() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	switch {
	case q.All:
		return "", nil, nil
	case strings.TrimSpace(q.Endpoint) != "":
		return "WHERE endpoint = ?", []any{strings.TrimSpace(q.Endpoint)}, nil
	default:
		return "WHERE endpoint LIKE ?", []any{strings.TrimSpace(q.Prefix) + "%"}, nil
	}
}

func scanRateLimit(row rowScanner) (RateLimitEntry, error) {
	var (
		entry        RateLimitEntry
		windowStart  int64
		backoffUntil sql.NullInt64
		last429At    sql.NullInt64
	)
	if err := row.Scan(&entry.Endpoint, &entry.State.RequestCount, &windowStart, &backoffUntil, &last429At); err != nil {
		return entry, err
	}
	entry.State.WindowStart = time.Unix(windowStart, 0).UTC()
	entry.State.BackoffUntil = unixPtr(backoffUntil)
	entry.State.Last429At = unixPtr(last429At)
	return entry, nil
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func unixNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func (s *Store) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

// GetRateLimit returns the budget for endpoint, or nil when none is stored.
func (s *Store) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	entry, err := scanRateLimit(s.DB.QueryRowContext(ctx,
		`SELECT `+rateLimitColumns+` FROM rate_limits WHERE endpoint = ?`, endpoint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	return &entry.State, nil
}

// UpdateRateLimit upserts the budget for endpoint.
func (s *Store) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return errors.New("endpoint is required")
	}
	if state == nil {
		return errors.New("rate limit state is required")
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (`+rateLimitColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			backoff_until = excluded.backoff_until,
			last_429_at = excluded.last_429_at
	`, endpoint, state.RequestCount, state.WindowStart.UTC().Unix(),
		unixNull(state.BackoffUntil), unixNull(state.Last429At))
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// ListRateLimits returns matching budgets ordered by endpoint.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]RateLimitEntry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM rate_limits %s ORDER BY endpoint`, rateLimitColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		entry, err := scanRateLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return entries, nil
}

// CountRateLimits reports how many budgets q matches.
func (s *Store) CountRateLimits(ctx context.Context, q RateLimitQuery) (int, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rate_limits `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rate limits: %w", err)
	}
	return count, nil
}

// ResetRateLimits deletes matching budgets and returns how many were removed.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limits `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return result.RowsAffected()
}
