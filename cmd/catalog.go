// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hextract/cli/internal/catalog"
	"hextract/cli/internal/model"
	"hextract/cli/internal/scheduler"
)

var (
	catalogFile      string
	catalogJSON      bool
	catalogBatchSize int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect command catalogs",
}

// catalogListCmd prints the catalog in dispatch order.
var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog commands in dispatch order",
	Long: `The list command shows the commands extract would send, sorted by priority,
with the batch each one lands in. Without --file the configured catalog is
used, or the built-in one when none is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appCfg.Catalog
		if catalogFile != "" {
			path = catalogFile
		}
		var specs []model.CommandSpec
		if path == "" {
			specs = catalog.Fallback()
		} else {
			var err error
			if specs, err = catalog.Load(path); err != nil {
				return err
			}
		}

		size := catalogBatchSize
		if size <= 0 {
			size = appCfg.Run.BatchSize
		}
		plan := scheduler.Plan(specs, size)

		out := cmd.OutOrStdout()
		if catalogJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(planRows(plan)).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, table)
		fmt.Fprintf(out, "%d commands in %d batches\n", len(specs), len(plan))
		return nil
	},
}

// catalogValidateCmd checks a catalog file against the schema.
var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := catalog.Load(args[0])
		if err != nil {
			return err
		}
		counts := map[model.Priority]int{}
		critical := 0
		for _, s := range specs {
			counts[s.Priority]++
			if s.Critical {
				critical++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands (high %d, medium %d, low %d, critical %d)\n",
			args[0], len(specs), counts[model.PriorityHigh], counts[model.PriorityMedium], counts[model.PriorityLow], critical)
		return nil
	},
}

func planRows(plan [][]model.CommandSpec) [][]string {
	rows := [][]string{{"#", "Batch", "Priority", "Category", "Command", "Critical"}}
	n := 0
	for b, batch := range plan {
		for _, s := range batch {
			n++
			crit := ""
			if s.Critical {
				crit = "yes"
			}
			rows = append(rows, []string{
				fmt.Sprint(n), fmt.Sprint(b + 1), string(s.Priority), s.Category, s.Command, crit,
			})
		}
	}
	return rows
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogValidateCmd)
	catalogListCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "Catalog file (.json, .yaml)")
	catalogListCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print the batch plan as JSON")
	catalogListCmd.Flags().IntVar(&catalogBatchSize, "batch-size", 0, "Batch size (default: configured run.batch_size)")
}
