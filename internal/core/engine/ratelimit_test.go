package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/core"
)

type memoryRateStore struct {
	state map[string]*core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	if m.state == nil {
		return nil, nil
	}
	if val, ok := m.state[endpoint]; ok {
		return val, nil
	}
	return nil, nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	if m.state == nil {
		m.state = make(map[string]*core.RateLimitState)
	}
	m.state[endpoint] = state
	return nil
}

func TestRateLimiterWindow(t *testing.T) {
	store := &memoryRateStore{}
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"off.example": {RequestsPerWindow: 1, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "off.example")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(context.Background(), "off.example"))

	allowed, wait, err := limiter.Allow(context.Background(), "off.example")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)
}

func TestRateLimiterBackoff(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record429(context.Background(), "off.example", 30*time.Second))

	allowed, wait, err := limiter.Allow(context.Background(), "off.example")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait)
}

func TestRateLimiterMargin(t *testing.T) {
	store := &memoryRateStore{}
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"off.example": {RequestsPerWindow: 10, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return time.Now().UTC() },
	}

	limiter.ApplySafetyMargin(0.9)
	limit := limiter.limitFor("off.example")
	require.Equal(t, 9, limit.RequestsPerWindow)
}

func TestRateLimiterRegionalMirrorSharesWorldBudget(t *testing.T) {
	limiter := &RateLimiter{Store: &memoryRateStore{}}
	limiter.ApplyOverrides(map[string]int{"world.openfoodfacts.org": 4})

	limit := limiter.limitFor("fr.openfoodfacts.org")
	require.Equal(t, 4, limit.RequestsPerWindow)
	require.Equal(t, time.Minute, limit.WindowDuration)
}

func TestRateLimiterWindowResets(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"off.example": {RequestsPerWindow: 1, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record(context.Background(), "off.example"))
	allowed, _, err := limiter.Allow(context.Background(), "off.example")
	require.NoError(t, err)
	require.False(t, allowed)

	now = now.Add(2 * time.Minute)
	allowed, _, err = limiter.Allow(context.Background(), "off.example")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRateLimiterRecordRollsExpiredWindow(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  store,
		Limits: map[string]RateLimit{"off.example": {RequestsPerWindow: 2, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return now },
	}

	require.NoError(t, limiter.Record(context.Background(), "off.example"))
	require.NoError(t, limiter.Record(context.Background(), "off.example"))
	require.Equal(t, 2, store.state["off.example"].RequestCount)

	now = now.Add(time.Minute)
	require.NoError(t, limiter.Record(context.Background(), "off.example"))

	state := store.state["off.example"]
	require.Equal(t, 1, state.RequestCount)
	require.True(t, now.Equal(state.WindowStart))
}

func TestRateLimiterUnknownHostUsesFallback(t *testing.T) {
	limiter := &RateLimiter{Margin: 0.5}

	limit := limiter.limitFor("static.example.org")
	require.Equal(t, 5, limit.RequestsPerWindow)

	var nilLimiter *RateLimiter
	allowed, _, err := nilLimiter.Allow(context.Background(), "static.example.org")
	require.NoError(t, err)
	require.True(t, allowed)
}
