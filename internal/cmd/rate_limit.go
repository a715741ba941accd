package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or reset the stored lookup request budget",
	Long: `Product searches are budgeted per endpoint host (for example
world.openfoodfacts.org). The window counters and any backoff set after an
HTTP 429 are kept in the store; these commands show or clear them.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
