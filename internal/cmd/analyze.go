package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <meal description>",
	Short: "Estimate nutrients for a meal",
	Long: `Split a free-text meal description into items, look each one up in
Open Food Facts and print per-item and total nutrients.

Items are separated by commas. Each item gets the default portion unless
--grams overrides it by position (0-based):

  platelog analyze "2 eggs, 1 slice toast" --grams 1=35 --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	addOutputFlags(analyzeCmd, "table, json, markdown")
	analyzeCmd.Flags().StringArray("grams", nil, "Portion override as index=grams (repeatable)")
	analyzeCmd.Flags().Bool("save", false, "Store the meal in the history")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	rawGrams, err := cmd.Flags().GetStringArray("grams")
	if err != nil {
		return err
	}
	overrides, err := parseGramsFlags(rawGrams)
	if err != nil {
		return err
	}
	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}
	outPath, err := resolveOutputPath(cmd, sanitizeFilename(text)+".analysis", format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	_, db, resolver, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	startedAt := time.Now()
	analysis, err := resolver.Resolve(ctx, text, overrides)
	if err != nil {
		return err
	}
	logThroughput(len(analysis.Items), startedAt)

	if save {
		id, err := db.SaveEntry(ctx, text, analysis.Items, nil)
		if err != nil {
			return fmt.Errorf("save entry: %w", err)
		}
		observability.CLILogger.Info("Meal saved", zap.Int64("id", id))
	}

	rendered, err := output.NewFormatter(format).FormatAnalysis(analysis)
	if err != nil {
		return err
	}
	return writeRendered(outPath, rendered)
}

// parseGramsFlags turns "index=grams" pairs into resolver overrides. Range
// and sign checks are left to the resolver so every caller gets the same
// validation.
func parseGramsFlags(values []string) (map[int]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}

	overrides := make(map[int]float64, len(values))
	for _, value := range values {
		key, raw, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --grams %q: expected index=grams", value)
		}
		index, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("invalid --grams %q: index must be an integer", value)
		}
		grams, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --grams %q: grams must be a number", value)
		}
		if _, dup := overrides[index]; dup {
			return nil, errors.New("duplicate --grams for item " + strconv.Itoa(index))
		}
		overrides[index] = grams
	}
	return overrides, nil
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 || observability.CLILogger == nil {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	observability.CLILogger.Debug(
		"Meal resolved",
		zap.Int("items", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("items_per_sec", float64(count)/elapsed.Seconds()),
	)
}
