package lookup

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/platelog/platelog/internal/core"
)

type searchResponse struct {
	Products []productPayload `json:"products"`
}

type productPayload struct {
	ProductName      string                     `json:"product_name"`
	Code             json.RawMessage            `json:"code"`
	Nutriments       map[string]json.RawMessage `json:"nutriments"`
	NutritionGradeFR string                     `json:"nutrition_grade_fr"`
	NutritionGrades  string                     `json:"nutrition_grades"`
}

func decodeSearch(r io.Reader) ([]core.ProductCandidate, error) {
	var payload searchResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Products == nil {
		return nil, errors.New("response has no products field")
	}

	candidates := make([]core.ProductCandidate, 0, len(payload.Products))
	for _, product := range payload.Products {
		candidates = append(candidates, product.candidate())
	}
	return candidates, nil
}

func (p productPayload) candidate() core.ProductCandidate {
	candidate := core.ProductCandidate{
		DisplayName:       strings.TrimSpace(p.ProductName),
		ProductCode:       rawString(p.Code),
		HasNutritionGrade: strings.TrimSpace(p.NutritionGradeFR) != "" || strings.TrimSpace(p.NutritionGrades) != "",
	}

	for key, raw := range p.Nutriments {
		value, ok := rawNumber(raw)
		if !ok {
			continue
		}
		if candidate.NutrientsPer100g == nil {
			candidate.NutrientsPer100g = make(map[string]float64)
		}
		candidate.NutrientsPer100g[key] = value
	}
	return candidate
}

// rawNumber accepts JSON numbers and numeric strings. NaN and infinities are
// treated as absent.
func rawNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// rawString accepts product codes published either as strings or numbers.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}
