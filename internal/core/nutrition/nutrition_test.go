package nutrition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/core"
)

func TestRankEmpty(t *testing.T) {
	_, ok := Rank(nil)
	require.False(t, ok)
}

func TestRankPriority(t *testing.T) {
	bare := core.ProductCandidate{DisplayName: "bare"}
	graded := core.ProductCandidate{DisplayName: "graded", HasNutritionGrade: true}
	withFat := core.ProductCandidate{DisplayName: "fat", NutrientsPer100g: map[string]float64{KeyFat: 3}}
	withKcal := core.ProductCandidate{DisplayName: "kcal", NutrientsPer100g: map[string]float64{KeyEnergyKcal: 50}}
	gradedKcal := core.ProductCandidate{
		DisplayName:       "graded kcal",
		HasNutritionGrade: true,
		NutrientsPer100g:  map[string]float64{KeyEnergyKcal: 50},
	}

	tests := []struct {
		name       string
		candidates []core.ProductCandidate
		want       string
	}{
		{"single", []core.ProductCandidate{bare}, "bare"},
		{"nutrients beat grade", []core.ProductCandidate{graded, withFat}, "fat"},
		{"kcal breaks nutrient tie", []core.ProductCandidate{withFat, withKcal}, "kcal"},
		{"grade beats kcal", []core.ProductCandidate{withKcal, gradedKcal}, "graded kcal"},
		{"grade alone beats bare", []core.ProductCandidate{bare, graded}, "graded"},
		{"ties keep first", []core.ProductCandidate{
			{DisplayName: "first", NutrientsPer100g: map[string]float64{KeyFat: 1}},
			{DisplayName: "second", NutrientsPer100g: map[string]float64{KeyFat: 2}},
		}, "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rank(tt.candidates)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.DisplayName)
		})
	}
}

func TestScaleNilCandidate(t *testing.T) {
	require.Equal(t, core.NutrientNumbers{}, Scale(nil, 250))
}

func TestScaleFullRecord(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{
		KeyEnergyKcal: 200,
		KeyEnergyKJ:   999,
		KeyProteins:   10,
		KeyFat:        5,
		KeyCarbs:      30,
		KeySugars:     4,
		KeyFiber:      2,
		KeySalt:       1.5,
	}}

	got := Scale(candidate, 50)
	assert.InDelta(t, 100, got.EnergyKcal, 1e-9)
	assert.InDelta(t, 5, got.ProteinG, 1e-9)
	assert.InDelta(t, 2.5, got.FatG, 1e-9)
	assert.InDelta(t, 15, got.CarbsG, 1e-9)
	assert.InDelta(t, 2, got.SugarsG, 1e-9)
	assert.InDelta(t, 1, got.FiberG, 1e-9)
	assert.InDelta(t, 0.75, got.SaltG, 1e-9)
	assert.InDelta(t, 750, got.SodiumMg, 1e-9)
}

func TestScaleEnergyFallsBackToKilojoules(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{KeyEnergyKJ: 418.4}}
	got := Scale(candidate, 200)
	assert.InDelta(t, 200, got.EnergyKcal, 1e-9)
}

func TestScaleMissingFieldsAreZero(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{KeyProteins: 8}}
	got := Scale(candidate, 100)
	assert.Equal(t, core.NutrientNumbers{ProteinG: 8}, got)
}

func TestScaleIgnoresNonFiniteValues(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{
		KeyEnergyKcal: math.NaN(),
		KeyEnergyKJ:   836.8,
		KeyFat:        math.Inf(1),
	}}
	got := Scale(candidate, 100)
	assert.InDelta(t, 200, got.EnergyKcal, 1e-9)
	assert.Zero(t, got.FatG)
}

func TestScaleKeepsNegativeValues(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{KeySugars: -2}}
	got := Scale(candidate, 100)
	assert.InDelta(t, -2, got.SugarsG, 1e-9)
}

func TestScaleIsLinearInGrams(t *testing.T) {
	candidate := &core.ProductCandidate{NutrientsPer100g: map[string]float64{
		KeyEnergyKcal: 120,
		KeySalt:       0.4,
	}}
	one := Scale(candidate, 80)
	two := Scale(candidate, 160)
	assert.InDelta(t, one.EnergyKcal*2, two.EnergyKcal, 1e-9)
	assert.InDelta(t, one.SodiumMg*2, two.SodiumMg, 1e-9)
}
