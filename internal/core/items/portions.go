package items

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platelog/platelog/internal/core"
)

//go:embed portions.yaml
var defaultPortionsYAML []byte

// countUnit is the table key used when an amount has no unit.
const countUnit = "count"

// PortionTable maps a canonical unit to grams per unit.
type PortionTable struct {
	Units map[string]float64 `yaml:"units"`
}

// DefaultPortionTable returns the built-in unit weights.
func DefaultPortionTable() (*PortionTable, error) {
	return LoadPortionTable(defaultPortionsYAML)
}

// LoadPortionTable decodes a YAML portion table.
func LoadPortionTable(data []byte) (*PortionTable, error) {
	var table PortionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode portion table: %w", err)
	}

	normalized := make(map[string]float64, len(table.Units))
	for unit, grams := range table.Units {
		key := strings.ToLower(strings.TrimSpace(unit))
		if key == "" {
			continue
		}
		if grams <= 0 || math.IsNaN(grams) || math.IsInf(grams, 0) {
			return nil, fmt.Errorf("portion table: unit %q must weigh more than 0 g", unit)
		}
		normalized[key] = grams
	}
	table.Units = normalized
	return &table, nil
}

// Estimate converts a parsed quantity to grams. It reports false when the
// item carries no amount or the unit is not in the table.
func (t *PortionTable) Estimate(item core.ParsedItem) (float64, bool) {
	if t == nil || item.Amount <= 0 {
		return 0, false
	}

	unit := item.Unit
	if unit == "" {
		unit = countUnit
	}
	perUnit, ok := t.Units[unit]
	if !ok {
		return 0, false
	}
	return item.Amount * perUnit, true
}
