package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. --extended adds the commit, build date, Go toolchain and the Crucible/Gofulmen versions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extended, _ := cmd.Flags().GetBool("extended")
		return writeVersion(cmd.OutOrStdout(), binaryName(), extended)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
}

func binaryName() string {
	if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
		return identity.BinaryName
	}
	return "platelog"
}

func writeVersion(w io.Writer, name string, extended bool) error {
	lines := []string{fmt.Sprintf("%s %s", name, versionInfo.Version)}
	if extended {
		stack := crucible.GetVersion()
		lines = append(lines,
			"Commit: "+versionInfo.Commit,
			"Built: "+versionInfo.BuildDate,
			"Go: "+runtime.Version(),
			"",
			"Gofulmen: "+stack.Gofulmen,
			"Crucible: "+stack.Crucible,
		)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
