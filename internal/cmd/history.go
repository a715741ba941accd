package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platelog/platelog/internal/core/store"
	"github.com/platelog/platelog/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently logged meals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		if limit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		outPath, err := resolveOutputPath(cmd, "history", format)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListEntries(cmd.Context(), limit)
		if err != nil {
			return err
		}

		rendered, err := output.FormatEntryList(format, entries)
		if err != nil {
			return err
		}
		return writeRendered(outPath, rendered)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", store.DefaultListLimit, "Number of meals to show")
	addOutputFlags(historyCmd, "table, json, markdown")
}
