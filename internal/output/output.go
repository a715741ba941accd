package output

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/platelog/platelog/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders meal analyses and stored entries.
type Formatter interface {
	FormatAnalysis(analysis *core.MealAnalysis) (string, error)
	FormatEntry(entry *core.Entry) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatEntryList renders stored entries, newest first as given.
func FormatEntryList(format Format, entries []core.Entry) (string, error) {
	if format == FormatJSON {
		if entries == nil {
			entries = []core.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if len(entries) == 0 {
		return "No meals logged yet.", nil
	}

	formatter := NewFormatter(format)
	rendered := make([]string, 0, len(entries))
	for i := range entries {
		value, err := formatter.FormatEntry(&entries[i])
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, value)
	}

	return strings.Join(rendered, "\n\n"), nil
}

func matchedName(item core.ResolvedItem) string {
	if item.MatchedProductName == nil {
		return "-"
	}
	return *item.MatchedProductName
}

func matchedCode(item core.ResolvedItem) string {
	if item.MatchedProductCode == nil {
		return "-"
	}
	return *item.MatchedProductCode
}

func formatGrams(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}

func formatKcal(value float64) string {
	return strconv.FormatFloat(value, 'f', 0, 64)
}

func formatMg(value float64) string {
	return strconv.FormatFloat(value, 'f', 0, 64)
}

func entryHeading(entry *core.Entry) string {
	heading := fmt.Sprintf("#%d %s", entry.ID, entry.Text)
	if !entry.CreatedAt.IsZero() {
		heading += " (" + entry.CreatedAt.Local().Format("2006-01-02 15:04") + ")"
	}
	return heading
}

func nutrientCells(n core.NutrientNumbers) []string {
	return []string{
		formatKcal(n.EnergyKcal),
		formatGrams(n.ProteinG),
		formatGrams(n.FatG),
		formatGrams(n.CarbsG),
		formatGrams(n.SugarsG),
		formatGrams(n.FiberG),
		formatGrams(n.SaltG),
		formatMg(n.SodiumMg),
	}
}

var nutrientHeaders = []string{"kcal", "Protein g", "Fat g", "Carbs g", "Sugars g", "Fiber g", "Salt g", "Sodium mg"}
