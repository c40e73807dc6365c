// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hextract/cli/internal/classifier"
	"hextract/cli/internal/progress"
)

var (
	parseCommand string
	parseJSON    bool
)

// parseCmd classifies a captured response offline.
var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Classify and structure a saved cryptic response",
	Long: `The parse command runs the response classifier on a response captured earlier,
without a session. Pass - to read from standard input.`,
	Example: `  hextract parse he-an.txt --command "HE AN"
  pbpaste | hextract parse - --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		parsed := classifier.Parse(string(raw), parseCommand)
		out := cmd.OutOrStdout()
		if parseJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(parsed)
		}
		_, err = fmt.Fprintln(out, progress.ParsedSummary(parsed))
		return err
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseCommand, "command", "", "Command that produced the response")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the parsed response as JSON")
}
