package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/platelog/platelog/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatAnalysis renders a meal analysis as a table with a totals footer.
func (f *TableFormatter) FormatAnalysis(analysis *core.MealAnalysis) (string, error) {
	if analysis == nil {
		return "", nil
	}
	return renderItemTable("", analysis.Items, analysis.Totals), nil
}

// FormatEntry renders a stored entry as a titled table.
func (f *TableFormatter) FormatEntry(entry *core.Entry) (string, error) {
	if entry == nil {
		return "", nil
	}
	return renderItemTable(entryHeading(entry), entry.Items, entry.Totals), nil
}

func renderItemTable(title string, items []core.ResolvedItem, totals core.NutrientNumbers) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}

	header := table.Row{"#", "Item", "Matched product", "Code", "g"}
	for _, name := range nutrientHeaders {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, item := range items {
		row := table.Row{i, item.Name, matchedName(item), matchedCode(item), formatGrams(item.Grams)}
		for _, cell := range nutrientCells(item.Nutrients) {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}

	footer := table.Row{"", "Total", "", "", ""}
	for _, cell := range nutrientCells(totals) {
		footer = append(footer, cell)
	}
	t.AppendFooter(footer)

	configs := make([]table.ColumnConfig, 0, len(nutrientHeaders)+1)
	for col := 5; col <= 5+len(nutrientHeaders); col++ {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(configs)

	return t.Render()
}
