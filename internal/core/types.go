package core

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// NutrientNumbers is the fixed-shape nutrient record for one portion.
// Every field defaults to zero; absent source data never leaves a field unset.
type NutrientNumbers struct {
	EnergyKcal float64 `json:"energy_kcal"`
	ProteinG   float64 `json:"protein_g"`
	FatG       float64 `json:"fat_g"`
	CarbsG     float64 `json:"carbs_g"`
	SugarsG    float64 `json:"sugars_g"`
	FiberG     float64 `json:"fiber_g"`
	SaltG      float64 `json:"salt_g"`
	SodiumMg   float64 `json:"sodium_mg"`
}

// Add returns the field-wise sum of n and other.
func (n NutrientNumbers) Add(other NutrientNumbers) NutrientNumbers {
	return NutrientNumbers{
		EnergyKcal: n.EnergyKcal + other.EnergyKcal,
		ProteinG:   n.ProteinG + other.ProteinG,
		FatG:       n.FatG + other.FatG,
		CarbsG:     n.CarbsG + other.CarbsG,
		SugarsG:    n.SugarsG + other.SugarsG,
		FiberG:     n.FiberG + other.FiberG,
		SaltG:      n.SaltG + other.SaltG,
		SodiumMg:   n.SodiumMg + other.SodiumMg,
	}
}

// ProductCandidate is one product record returned by the food search.
type ProductCandidate struct {
	DisplayName       string
	ProductCode       string
	NutrientsPer100g  map[string]float64
	HasNutritionGrade bool
}

// HasNutrients reports whether the candidate carries any nutrient data.
func (c ProductCandidate) HasNutrients() bool {
	return len(c.NutrientsPer100g) > 0
}

// Nutrient returns the per-100g value for key and whether it was present.
func (c ProductCandidate) Nutrient(key string) (float64, bool) {
	if c.NutrientsPer100g == nil {
		return 0, false
	}
	value, ok := c.NutrientsPer100g[key]
	return value, ok
}

// ResolvedItem is the per-item pipeline output.
type ResolvedItem struct {
	Name               string          `json:"name"`
	Grams              float64         `json:"grams"`
	MatchedProductName *string         `json:"off_product_name"`
	MatchedProductCode *string         `json:"off_code"`
	Nutrients          NutrientNumbers `json:"nutrients"`
}

// MealAnalysis is the resolver output for one meal description.
type MealAnalysis struct {
	Items  []ResolvedItem  `json:"items"`
	Totals NutrientNumbers `json:"totals"`
}

// SumNutrients returns the field-wise sum of all item nutrients.
func SumNutrients(items []ResolvedItem) NutrientNumbers {
	var total NutrientNumbers
	for _, item := range items {
		total = total.Add(item.Nutrients)
	}
	return total
}

// ParsedItem is a split item with its stripped quantity token kept.
type ParsedItem struct {
	Name         string  `json:"name"`
	QuantityText string  `json:"quantity_text"`
	Amount       float64 `json:"amount,omitempty"`
	Unit         string  `json:"unit,omitempty"`
}

// Entry is a stored meal with its resolved items.
type Entry struct {
	ID        int64           `json:"id"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []ResolvedItem  `json:"items"`
	Totals    NutrientNumbers `json:"totals"`
}

// RateLimitState captures per-endpoint rate limiting state.
type RateLimitState struct {
	RequestCount int        `json:"request_count"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
}

// ErrInvalidPortion marks a caller-supplied portion that cannot be used.
var ErrInvalidPortion = errors.New("invalid portion")

// PortionError describes a rejected portion override.
type PortionError struct {
	Index  int
	Grams  float64
	Reason string
}

func (e *PortionError) Error() string {
	return fmt.Sprintf("invalid portion for item %d (%v g): %s", e.Index, e.Grams, e.Reason)
}

func (e *PortionError) Unwrap() error {
	return ErrInvalidPortion
}

// CheckPortion rejects a portion that is not a positive finite gram weight.
func CheckPortion(index int, grams float64) error {
	switch {
	case math.IsNaN(grams) || math.IsInf(grams, 0):
		return &PortionError{Index: index, Grams: grams, Reason: "grams must be a finite number"}
	case grams <= 0:
		return &PortionError{Index: index, Grams: grams, Reason: "grams must be positive"}
	}
	return nil
}

// ValidateItems checks every item's portion, reporting the first bad one.
func ValidateItems(items []ResolvedItem) error {
	for i, item := range items {
		if err := CheckPortion(i, item.Grams); err != nil {
			return err
		}
	}
	return nil
}
