// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hextract/cli/internal/config"
	"hextract/cli/internal/logging"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.toml with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.Path(); err != nil {
				return err
			}
		}
		if err := config.WriteDefaults(path, configForce); err != nil {
			return err
		}
		pterm.Success.Println("Configuration written to " + path)
		return nil
	},
}

// configShowCmd prints the effective configuration with secrets masked.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (secrets masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Marshal(maskedConfig(appCfg))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if appViper != nil && appViper.ConfigFileUsed() != "" {
			fmt.Fprintf(out, "# file: %s\n", appViper.ConfigFileUsed())
		}
		_, err = out.Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func maskedConfig(c config.Config) config.Config {
	c.Session.ID = logging.MaskID(c.Session.ID)
	c.Session.ContextID = logging.MaskID(c.Session.ContextID)
	c.Archive.DSN = logging.Mask(c.Archive.DSN)
	return c
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}
