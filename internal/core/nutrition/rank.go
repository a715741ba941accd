package nutrition

import (
	"github.com/platelog/platelog/internal/core"
)

// Rank picks the candidate with, in priority order, any nutrient data, a
// nutrition grade, and a known kcal value. Ties keep the earliest candidate.
func Rank(candidates []core.ProductCandidate) (core.ProductCandidate, bool) {
	if len(candidates) == 0 {
		return core.ProductCandidate{}, false
	}

	best := 0
	bestScore := rankScore(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if score := rankScore(candidates[i]); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return candidates[best], true
}

// rankScore packs the three criteria into one comparable value; a higher
// criterion always outweighs every lower one combined.
func rankScore(c core.ProductCandidate) int {
	score := 0
	if c.HasNutrients() {
		score += 4
	}
	if c.HasNutritionGrade {
		score += 2
	}
	if _, ok := finiteNutrient(&c, KeyEnergyKcal); ok {
		score++
	}
	return score
}
