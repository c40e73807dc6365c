// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hextract/cli/internal/classifier"
	"hextract/cli/internal/gateway"
	"hextract/cli/internal/logging"
	"hextract/cli/internal/model"
	"hextract/cli/internal/progress"
)

var (
	sendJSON      bool
	sendNoBrowser bool
)

// sendCmd dispatches one command with the current session.
var sendCmd = &cobra.Command{
	Use:   "send [command]",
	Short: "Send a single cryptic command and print the response",
	Long: `The send command acquires a session exactly like extract does and sends one
command. Without arguments it sends the connection test command (HE HELP).`,
	Example: `  hextract send HE AN
  hextract send "HE FXP" --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.TrimSpace(strings.Join(args, " "))
		if command == "" {
			command = gateway.ConnectionTestCommand
		}

		p := wirePipeline(cmd.Context(), appCfg, appLog, wireOptions{noBrowser: sendNoBrowser})
		defer p.Close()

		creds, err := p.provider.Acquire(cmd.Context())
		if err != nil {
			return err
		}
		appLog.Debug("sending command", zap.String("command", command), zap.String("session_source", creds.Source))

		res := p.gateway.SendCommand(cmd.Context(), creds, command)
		if res.Success {
			parsed := classifier.Parse(res.ResponseText, command)
			res.Parsed = &parsed
		}

		out := cmd.OutOrStdout()
		if sendJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		if !res.Success {
			pterm.Error.Println(logging.PresentError(command, fmt.Errorf("%s", res.Error)))
			return fmt.Errorf("%s failed after %d attempt(s)", command, res.Attempts)
		}
		printResponse(cmd, res)
		return nil
	},
}

func printResponse(cmd *cobra.Command, res model.CommandResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, progress.ResultLine(res))
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimRight(res.ResponseText, "\n"))
	if res.Parsed != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, progress.ParsedSummary(*res.Parsed))
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendJSON, "json", false, "Print the full result as JSON")
	sendCmd.Flags().BoolVar(&sendNoBrowser, "no-browser", false, "Do not attach to Chrome")
}
