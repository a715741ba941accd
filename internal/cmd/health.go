package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/config"
	errwrap "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/observability"
)

// selfCheck is one offline startup requirement.
type selfCheck struct {
	name string
	run  func() error
}

func selfChecks(ctx context.Context) []selfCheck {
	var cfg *config.Config
	return []selfCheck{
		{"version information", func() error {
			if versionInfo.Version == "" {
				return fmt.Errorf("version is empty")
			}
			return nil
		}},
		{"configuration", func() error {
			loaded, err := config.Load(ctx)
			cfg = loaded
			return err
		}},
		{"portion table", func() error {
			_, err := loadPortions(cfg.Portions)
			return err
		}},
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that platelog can start",
	Long: `Run offline startup checks: build metadata, configuration and the
portion table. Exits non-zero on the first failure. Use "doctor" for the
store and network checks.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized",
				errwrap.NewConfigInvalidError("logger not initialized"))
			return
		}

		for _, check := range selfChecks(cmd.Context()) {
			if err := check.run(); err != nil {
				ExitWithCode(logger, foundry.ExitConfigInvalid, "Health check failed: "+check.name,
					errwrap.WrapConfigInvalid(cmd.Context(), err, check.name))
				return
			}
			logger.Debug("Health check passed", zap.String("check", check.name))
			logger.Info("✅ " + check.name)
		}
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
