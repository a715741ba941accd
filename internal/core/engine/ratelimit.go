package engine

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/platelog/platelog/internal/core"
)

const worldEndpoint = "world.openfoodfacts.org"

// fallbackLimit applies to hosts with no configured budget.
var fallbackLimit = RateLimit{RequestsPerWindow: 10, WindowDuration: time.Minute}

// RateLimiter keeps a fixed-window request budget per lookup host. State
// lives in a RateLimitStore so separate CLI runs share one budget.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	// Margin scales every budget down, for example 0.8 keeps 20% in reserve.
	Margin float64
}

// RateLimit is a request budget per window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore persists budget state by host.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// DefaultLimits stays under the Open Food Facts fair-use guidance of ten
// search queries per minute.
var DefaultLimits = map[string]RateLimit{
	worldEndpoint:             {RequestsPerWindow: 10, WindowDuration: time.Minute},
	"world.openfoodfacts.net": {RequestsPerWindow: 10, WindowDuration: time.Minute},
}

// Allow reports whether one more request to endpoint fits the budget. When
// it does not, the returned duration is how long until it would. Store errors
// fail open.
func (r *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}

	now := r.now()
	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(now), nil
	}

	limit := r.limitFor(endpoint)
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, state.WindowStart.Add(limit.WindowDuration).Sub(now), nil
	}
	return true, 0, nil
}

// Record spends one request from endpoint's budget.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}
	state.RequestCount++
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record429 notes a 429 from endpoint and, when retryAfter is positive,
// blocks the host until it has passed.
func (r *RateLimiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}

	now := r.now()
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// load returns the stored state with an expired window already rolled over.
func (r *RateLimiter) load(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if state == nil {
		return &core.RateLimitState{WindowStart: now}, nil
	}

	limit := r.limitFor(endpoint)
	if state.WindowStart.IsZero() || !now.Before(state.WindowStart.Add(limit.WindowDuration)) {
		state.RequestCount = 0
		state.WindowStart = now
	}
	return state, nil
}

// ApplyOverrides replaces per-minute budgets for the named hosts. Blank
// names and non-positive values are ignored.
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits)+len(overrides))
		for host, limit := range DefaultLimits {
			r.Limits[host] = limit
		}
	}

	for host, perMinute := range overrides {
		host = strings.TrimSpace(host)
		if host == "" || perMinute <= 0 {
			continue
		}
		r.Limits[host] = RateLimit{RequestsPerWindow: perMinute, WindowDuration: time.Minute}
	}
}

// ApplySafetyMargin sets Margin when it lies in (0, 1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r != nil && margin > 0 && margin <= 1 {
		r.Margin = margin
	}
}

// limitFor picks the budget for endpoint. Regional mirrors such as
// fr.openfoodfacts.org share the world budget.
func (r *RateLimiter) limitFor(endpoint string) RateLimit {
	limits := DefaultLimits
	if r != nil && r.Limits != nil {
		limits = r.Limits
	}

	limit, ok := limits[endpoint]
	if !ok && strings.HasSuffix(endpoint, ".openfoodfacts.org") {
		limit, ok = limits[worldEndpoint]
	}
	if !ok {
		limit = fallbackLimit
	}
	return r.withMargin(limit)
}

func (r *RateLimiter) withMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	limit.RequestsPerWindow = max(1, int(math.Floor(float64(limit.RequestsPerWindow)*r.Margin)))
	return limit
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
