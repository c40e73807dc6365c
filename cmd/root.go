// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for hextract.
// It wires the session provider, the command gateway, the batch scheduler and
// the response classifier into cobra subcommands, and renders progress and
// reports with pterm.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hextract/cli/internal/config"
	"hextract/cli/internal/logging"
)

var (
	cfgFile     string
	verbose     bool
	logLevel    string
	showVersion bool

	// Populated by PersistentPreRunE for every subcommand.
	appCfg   = config.Default()
	appViper *viper.Viper
	appLog   = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hextract",
	Short: "Extract HE help documentation from a cryptic terminal session",
	Long: `hextract borrows the session of a logged-in reservation desktop tab, sends the
HE help commands of a catalog one by one under strict pacing, classifies every
response and writes a structured report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		log, err := logging.New(level, verbose, cfg.LogFile)
		if err != nil {
			return err
		}
		appCfg, appViper, appLog = cfg, v, log
		appLog.Debug("configuration loaded", zap.String("file", v.ConfigFileUsed()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLog.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.PresentRunError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config.toml (default: XDG config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
