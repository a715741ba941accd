package metrics

import (
	"time"

	"github.com/platelog/platelog/internal/observability"
)

// Meal pipeline metrics
const (
	LookupRequestsTotal = "lookup_requests_total"
	LookupDuration      = "lookup_duration_ms"
	MealAnalysesTotal   = "meal_analyses_total"
	MealItemsTotal      = "meal_items_total"
)

// Lookup outcomes
const (
	LookupOutcomeOK          = "ok"
	LookupOutcomeEmpty       = "empty"
	LookupOutcomeRateLimited = "rate_limited"
	LookupOutcomeUnavailable = "unavailable"
)

// RecordLookup records one nutrient search and its outcome.
func RecordLookup(outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		LookupRequestsTotal,
		1,
		map[string]string{"outcome": outcome},
	)
	_ = observability.TelemetrySystem.Histogram(
		LookupDuration,
		duration,
		map[string]string{"outcome": outcome},
	)
}

// RecordMealAnalysis records one resolved meal and whether each item matched.
func RecordMealAnalysis(matched []bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(MealAnalysesTotal, 1, nil)
	for _, ok := range matched {
		label := "false"
		if ok {
			label = "true"
		}
		_ = observability.TelemetrySystem.Counter(
			MealItemsTotal,
			1,
			map[string]string{"matched": label},
		)
	}
}
