package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platelog/platelog/internal/core/store"
	"github.com/platelog/platelog/internal/output"
)

// rateLimitResetResult is what reset reports, in JSON or as one line.
type rateLimitResetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

func (r rateLimitResetResult) String() string {
	if r.DryRun {
		return fmt.Sprintf("Would delete %d rate limit entr(ies)", r.Matched)
	}
	return fmt.Sprintf("Deleted %d/%d rate limit entr(ies)", r.Deleted, r.Matched)
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored lookup budgets and backoffs",
	Long: `Delete stored budget state so lookups to a host may proceed at once,
for example after a long Retry-After backoff from Open Food Facts.

  platelog rate-limit reset --endpoint world.openfoodfacts.org
  platelog rate-limit reset --all --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := rateLimitFormat(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		all, _ := flags.GetBool("all")
		endpoint, _ := flags.GetString("endpoint")
		prefix, _ := flags.GetString("prefix")
		yes, _ := flags.GetBool("yes")
		dryRun, _ := flags.GetBool("dry-run")

		query := store.RateLimitQuery{
			All:      all,
			Endpoint: strings.TrimSpace(endpoint),
			Prefix:   strings.TrimSpace(prefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !yes && !dryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		outPath, err := resolveOutputPath(cmd, "rate-limit.reset", format)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result := rateLimitResetResult{DryRun: dryRun}
		if result.Matched, err = db.CountRateLimits(cmd.Context(), query); err != nil {
			return err
		}
		if !dryRun {
			if result.Deleted, err = db.ResetRateLimits(cmd.Context(), query); err != nil {
				return err
			}
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			return writeJSONTo(sink.writer, result)
		}
		_, err = fmt.Fprintln(sink.writer, result.String())
		return err
	},
}

func init() {
	addOutputFlags(rateLimitResetCmd, "table, json")
	rateLimitResetCmd.Flags().Bool("all", false, "Reset every host")
	rateLimitResetCmd.Flags().String("endpoint", "", "Reset one host (exact match)")
	rateLimitResetCmd.Flags().String("prefix", "", "Reset hosts starting with this prefix")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm a reset of every host")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Report what would be deleted")
}
