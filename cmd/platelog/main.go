// Command platelog logs free-text meals and estimates their nutrients.
package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/platelog/platelog/internal/cmd"
	"github.com/platelog/platelog/internal/server/handlers"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "platelog failed", err)
	}
}
