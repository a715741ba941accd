package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/platelog/platelog/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one logged meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("entry id must be an integer: %s", args[0])
		}
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entry, err := db.GetEntry(cmd.Context(), id)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("entry %d not found", id)
		}

		rendered, err := output.NewFormatter(format).FormatEntry(entry)
		if err != nil {
			return err
		}
		return writeRendered("", rendered)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().String("output", string(output.FormatTable), "Output format: table, json, markdown")
}
