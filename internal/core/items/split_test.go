package items

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/core"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		input string
		want  []string
	}{
		{"2 eggs, 1 cup rice, butter", []string{"eggs", "rice", "butter"}},
		{"", []string{}},
		{"   ", []string{}},
		{" , ,", []string{}},
		{"100g chicken breast", []string{"chicken breast"}},
		{"200 ML milk", []string{"milk"}},
		{"3 Pieces toast, 2 slices cheese", []string{"toast", "cheese"}},
		{"1 kg potatoes", []string{"potatoes"}},
		{"2 grapes", []string{"grapes"}},
		{"2 cupcakes", []string{"cupcakes"}},
		{"coke zero 330", []string{"coke zero 330"}},
		{"7up", []string{"up"}},
		{"2eggs", []string{"eggs"}},
		{"3x eggs", []string{"x eggs"}},
		{"250gchicken", []string{"gchicken"}},
		{"100g, 2cups rice", []string{"rice"}},
		{"1.5 cups oats", []string{"oats"}},
		{"2 2 eggs", []string{"2 eggs"}},
		{"Greek Yogurt", []string{"Greek Yogurt"}},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, Split(tc.input))
		})
	}
}

func TestSplitDropsBareQuantities(t *testing.T) {
	require.Equal(t, []string{"apple"}, Split("2, apple, 100 g"))
}

func TestParseKeepsQuantity(t *testing.T) {
	parsed := Parse("2 eggs, 1 cup rice, 250 grams yogurt, butter")
	require.Equal(t, []core.ParsedItem{
		{Name: "eggs", QuantityText: "2", Amount: 2},
		{Name: "rice", QuantityText: "1 cup", Amount: 1, Unit: "cup"},
		{Name: "yogurt", QuantityText: "250 grams", Amount: 250, Unit: "g"},
		{Name: "butter"},
	}, parsed)
}

func TestPortionTableEstimate(t *testing.T) {
	table, err := DefaultPortionTable()
	require.NoError(t, err)

	grams, ok := table.Estimate(core.ParsedItem{Name: "rice", Amount: 1, Unit: "cup"})
	require.True(t, ok)
	require.InDelta(t, 240.0, grams, 1e-9)

	grams, ok = table.Estimate(core.ParsedItem{Name: "eggs", Amount: 2})
	require.True(t, ok)
	require.InDelta(t, 100.0, grams, 1e-9)

	_, ok = table.Estimate(core.ParsedItem{Name: "butter"})
	require.False(t, ok)

	_, ok = table.Estimate(core.ParsedItem{Name: "tea", Amount: 1, Unit: "mug"})
	require.False(t, ok)
}

func TestLoadPortionTableRejectsNonPositive(t *testing.T) {
	_, err := LoadPortionTable([]byte("units:\n  cup: 0\n"))
	require.Error(t, err)

	table, err := LoadPortionTable([]byte("units:\n  CUP: 200\n"))
	require.NoError(t, err)
	require.Equal(t, 200.0, table.Units["cup"])
}
