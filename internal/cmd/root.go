package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/appid"
	"github.com/platelog/platelog/internal/config"
	"github.com/platelog/platelog/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// appIdentity comes from the embedded .fulmen/app.yaml.
	appIdentity *appidentity.Identity

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records build metadata injected through ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity, or nil before initConfig.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	// applyIdentity overwrites these once the identity is loaded.
	Use:   filepath.Base(os.Args[0]),
	Short: "Log meals and estimate their nutrients",
	Long: `Log free-text meal descriptions and estimate nutrients per item
from the Open Food Facts product database.`,
	SilenceUsage: true,
}

// Execute runs the root command. main calls it once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout; serve installs the
	// real telemetry system later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Help text is rendered before OnInitialize runs.
	if identity, err := appid.Get(context.Background()); err == nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// applyIdentity copies identity metadata onto the root command's help.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nDescribe a meal in plain text and get per-item nutrient estimates.",
			identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// configSearchPaths lists the directories searched for config.yaml, most
// specific first. The bool reports whether XDG resolution failed and the
// home dotfile should be used instead.
func configSearchPaths(identity *appidentity.Identity) ([]string, bool) {
	dir := gfconfig.GetAppConfigDir(identity.ConfigName)
	if dir == "" {
		return nil, true
	}
	paths := []string{dir}
	if identity.BinaryName != "" && identity.BinaryName != identity.ConfigName {
		if legacy := gfconfig.GetAppConfigDir(identity.BinaryName); legacy != "" {
			paths = append(paths, legacy)
		}
	}
	return append(paths, "./config"), false
}

func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	applyIdentity(identity)

	observability.InitCLILogger(appIdentity.BinaryName, verbose)
	logger := observability.CLILogger

	switch paths, useHome := configSearchPaths(appIdentity); {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	case useHome:
		logger.Debug("Could not resolve XDG config directory, falling back to home directory")
		home, err := os.UserHomeDir()
		if err != nil {
			ExitWithCode(logger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName("." + appIdentity.ConfigName)
		viper.SetConfigType("yaml")
	default:
		for _, path := range paths {
			viper.AddConfigPath(path)
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(appIdentity.EnvPrefix)
	viper.AutomaticEnv()
	if err := config.BindEnv(viper.GetViper(), appIdentity.EnvPrefix); err != nil {
		logger.Warn("Failed to bind environment variables", zap.Error(err))
	}

	// A missing config file is fine; defaults and env cover everything.
	err = viper.ReadInConfig()
	switch err.(type) {
	case nil:
		logger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	case viper.ConfigFileNotFoundError:
		logger.Debug("No config file found, using defaults and environment variables")
	default:
		logger.Warn("Error reading config file", zap.Error(err))
	}

	config.SetDefaults(viper.GetViper())
}
