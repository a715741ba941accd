// Package nutrition selects the best search candidate for an item and scales
// its per-100g values to a portion.
package nutrition

// Per-100g nutrient keys as published by Open Food Facts.
const (
	KeyEnergyKcal = "energy-kcal_100g"
	KeyEnergyKJ   = "energy_100g"
	KeyProteins   = "proteins_100g"
	KeyFat        = "fat_100g"
	KeyCarbs      = "carbohydrates_100g"
	KeySugars     = "sugars_100g"
	KeyFiber      = "fiber_100g"
	KeySalt       = "salt_100g"
)

// kJPerKcal converts kilojoules to kilocalories.
const kJPerKcal = 4.184

// referenceGrams is the portion the per-100g fields describe.
const referenceGrams = 100.0
