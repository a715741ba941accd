package nutrition

import (
	"math"

	"github.com/platelog/platelog/internal/core"
)

// Scale converts a candidate's per-100g values into absolute values for grams.
// A nil candidate yields the zero record. Missing fields count as zero;
// negative source values are passed through unchanged.
func Scale(candidate *core.ProductCandidate, grams float64) core.NutrientNumbers {
	if candidate == nil {
		return core.NutrientNumbers{}
	}

	factor := grams / referenceGrams
	get := func(key string) float64 {
		value, _ := finiteNutrient(candidate, key)
		return value * factor
	}

	salt := get(KeySalt)
	return core.NutrientNumbers{
		EnergyKcal: energyKcalPer100g(candidate) * factor,
		ProteinG:   get(KeyProteins),
		FatG:       get(KeyFat),
		CarbsG:     get(KeyCarbs),
		SugarsG:    get(KeySugars),
		FiberG:     get(KeyFiber),
		SaltG:      salt,
		SodiumMg:   salt * 1000.0,
	}
}

func energyKcalPer100g(candidate *core.ProductCandidate) float64 {
	if kcal, ok := finiteNutrient(candidate, KeyEnergyKcal); ok {
		return kcal
	}
	if kj, ok := finiteNutrient(candidate, KeyEnergyKJ); ok {
		return kj / kJPerKcal
	}
	return 0
}

// finiteNutrient treats NaN and infinite values as absent.
func finiteNutrient(candidate *core.ProductCandidate, key string) (float64, bool) {
	value, ok := candidate.Nutrient(key)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
