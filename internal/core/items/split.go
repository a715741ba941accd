// Package items turns free-text meal descriptions into food item names.
package items

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/platelog/platelog/internal/core"
)

// quantityPattern matches a leading amount with an optional recognized unit.
// The amount may touch the name ("2eggs"); a unit only counts when it ends
// on a word boundary, so "2 grapes" keeps its name.
var quantityPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(?:(kilograms?|kg|grams?|g|milliliters?|ml|cups?|slices?|pieces?)\b)?\s*`)

// Split returns the cleaned item names in order of appearance.
// Blank input yields an empty slice.
func Split(text string) []string {
	parsed := Parse(text)
	names := make([]string, 0, len(parsed))
	for _, item := range parsed {
		names = append(names, item.Name)
	}
	return names
}

// Parse splits text on commas and strips one leading quantity token from each
// piece, keeping the token as QuantityText.
func Parse(text string) []core.ParsedItem {
	pieces := strings.Split(text, ",")
	result := make([]core.ParsedItem, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		item := parsePiece(piece)
		if item.Name == "" {
			continue
		}
		result = append(result, item)
	}
	return result
}

func parsePiece(piece string) core.ParsedItem {
	loc := quantityPattern.FindStringSubmatchIndex(piece)
	if loc == nil {
		return core.ParsedItem{Name: piece}
	}

	item := core.ParsedItem{
		Name:         strings.TrimSpace(piece[loc[1]:]),
		QuantityText: strings.TrimSpace(piece[loc[0]:loc[1]]),
	}

	if value, err := strconv.ParseFloat(piece[loc[2]:loc[3]], 64); err == nil {
		item.Amount = value
	}
	if loc[4] >= 0 {
		item.Unit = canonicalUnit(piece[loc[4]:loc[5]])
	}
	return item
}

func canonicalUnit(raw string) string {
	switch strings.ToLower(raw) {
	case "g", "gram", "grams":
		return "g"
	case "kg", "kilogram", "kilograms":
		return "kg"
	case "ml", "milliliter", "milliliters":
		return "ml"
	case "cup", "cups":
		return "cup"
	case "slice", "slices":
		return "slice"
	case "piece", "pieces":
		return "piece"
	default:
		return strings.ToLower(raw)
	}
}
