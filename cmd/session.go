// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hextract/cli/internal/keychain"
	"hextract/cli/internal/logging"
	"hextract/cli/internal/session"
)

var (
	sessionTest      bool
	sessionNoBrowser bool
	sessionClearAll  bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or forget the terminal session",
}

// sessionShowCmd runs the credential chain once and shows what it found.
var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Acquire the current session and show it (masked)",
	Long: `The show command runs the same acquisition chain as extract: config overrides,
the browser tab (captured request, DOM, scripts, storage) and the keychain.
Identifiers are masked. With --test a connection test command is sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := wirePipeline(cmd.Context(), appCfg, appLog, wireOptions{noBrowser: sessionNoBrowser})
		defer p.Close()

		creds, err := p.provider.Acquire(cmd.Context())
		if err != nil {
			return err
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Session")).
			WithPadding(1).
			Println(describeCredentials(creds, time.Now()))

		if !sessionTest {
			return nil
		}
		res := p.gateway.TestConnection(cmd.Context(), creds)
		if !res.Success {
			pterm.Error.Println(logging.PresentError("connection test", fmt.Errorf("%s", res.Error)))
			return fmt.Errorf("connection test failed after %d attempt(s)", res.Attempts)
		}
		pterm.Success.Printfln("Connection test passed in %s (%s)", res.Duration.Round(time.Millisecond), res.ResponseType)
		return nil
	},
}

// sessionClearCmd forgets persisted credentials.
var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the session saved in the OS keychain",
	Long: `The clear command removes the last good session from the OS keychain so the
next run reads a fresh one from the browser. With --all the archive DSN is
removed as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			return err
		}
		if sessionClearAll {
			if err := km.ClearAll(); err != nil {
				return err
			}
			pterm.Success.Println("Saved session and archive DSN removed")
			return nil
		}
		store := session.SecretBackedStore{Secrets: km, IsNotFound: keychain.IsNotFound}
		if err := store.ClearCredentials(); err != nil {
			return err
		}
		pterm.Success.Println("Saved session removed")
		return nil
	},
}

func describeCredentials(c session.Credentials, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source:      %s\n", c.Source)
	fmt.Fprintf(&b, "Session ID:  %s\n", logging.MaskID(c.SessionID))
	fmt.Fprintf(&b, "Context ID:  %s\n", logging.MaskID(c.ContextID))
	fmt.Fprintf(&b, "User:        %s\n", c.UserID)
	fmt.Fprintf(&b, "Office:      %s (%s, %s)\n", c.OfficeID, c.Organization, c.GDSCode)
	if len(c.Cookies) > 0 {
		fmt.Fprintf(&b, "Cookies:     %d\n", len(c.Cookies))
	}
	if !c.AcquiredAt.IsZero() {
		fmt.Fprintf(&b, "Acquired:    %s ago", now.Sub(c.AcquiredAt).Round(time.Second))
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
	sessionShowCmd.Flags().BoolVar(&sessionTest, "test", false, "Send a connection test command")
	sessionShowCmd.Flags().BoolVar(&sessionNoBrowser, "no-browser", false, "Do not attach to Chrome")
	sessionClearCmd.Flags().BoolVar(&sessionClearAll, "all", false, "Also remove the archive DSN")
}
