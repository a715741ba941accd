package output

import (
	"fmt"
	"strings"

	"github.com/platelog/platelog/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatAnalysis renders a meal analysis as Markdown.
func (f *MarkdownFormatter) FormatAnalysis(analysis *core.MealAnalysis) (string, error) {
	if analysis == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Meal\n\n")
	writeMarkdownItems(&sb, analysis.Items, analysis.Totals)
	return sb.String(), nil
}

// FormatEntry renders a stored entry as Markdown.
func (f *MarkdownFormatter) FormatEntry(entry *core.Entry) (string, error) {
	if entry == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(entryHeading(entry))))
	writeMarkdownItems(&sb, entry.Items, entry.Totals)
	return sb.String(), nil
}

func writeMarkdownItems(sb *strings.Builder, items []core.ResolvedItem, totals core.NutrientNumbers) {
	sb.WriteString("| # | Item | Matched product | g | " + strings.Join(nutrientHeaders, " | ") + " |\n")
	sb.WriteString("|---|------|-----------------|---|" + strings.Repeat("---|", len(nutrientHeaders)) + "\n")

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i,
			escapeMarkdownCell(item.Name),
			escapeMarkdownCell(matchedName(item)),
			formatGrams(item.Grams),
			strings.Join(nutrientCells(item.Nutrients), " | "),
		))
	}

	sb.WriteString(fmt.Sprintf("| | **Total** | | | %s |\n", strings.Join(nutrientCells(totals), " | ")))
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
