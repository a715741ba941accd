package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/platelog/platelog/internal/core/store"
	"github.com/platelog/platelog/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the lookup request budget per host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := rateLimitFormat(cmd)
		if err != nil {
			return err
		}
		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		outPath, err := resolveOutputPath(cmd, "rate-limit.list", format)
		if err != nil {
			return err
		}

		query := store.RateLimitQuery{Prefix: strings.TrimSpace(prefix)}
		query.All = query.Prefix == ""

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			return writeJSONTo(sink.writer, entries)
		}
		_, err = fmt.Fprint(sink.writer, ascii.DrawBox(rateLimitSummary(entries), 0))
		return err
	},
}

func init() {
	addOutputFlags(rateLimitListCmd, "table, json")
	rateLimitListCmd.Flags().String("prefix", "", "Only hosts starting with this prefix")
}

// rateLimitFormat accepts the table and json formats only.
func rateLimitFormat(cmd *cobra.Command) (output.Format, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return format, nil
}

func rateLimitSummary(entries []store.RateLimitEntry) string {
	lines := []string{"Lookup request budget", ""}
	if len(entries) == 0 {
		return strings.Join(append(lines, "(no lookups recorded)"), "\n")
	}

	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s: requests=%d window_start=%s backoff_until=%s",
			entry.Endpoint, entry.State.RequestCount,
			formatOptionalTime(&entry.State.WindowStart), formatOptionalTime(entry.State.BackoffUntil)))
	}
	return strings.Join(lines, "\n")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func writeJSONTo(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}
