// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	apperrors "hextract/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatRunError explains an error that ended an extraction run.
func FormatRunError(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder

	title, hint := "Extraction Halted", "→ Re-run 'hextract extract' once the problem is fixed"
	switch apperrors.KindOf(err) {
	case apperrors.SessionAcquisition:
		title = "No Session Found"
		b.WriteString("Credentials could not be read from the browser or the keychain.\n")
		b.WriteString("Check that:\n")
		b.WriteString("  • Chrome is running with --remote-debugging-port\n")
		b.WriteString("  • You are logged in and the cryptic terminal tab is open\n")
		b.WriteString("  • At least one command was entered in that tab\n")
		hint = "→ Run 'hextract session show' to test acquisition"
	case apperrors.SessionExpired:
		title = "Session Expired"
		b.WriteString("The server rejected the session and re-acquisition did not help.\n")
		hint = "→ Log in again in the browser, then run 'hextract session clear'"
	case apperrors.CriticalCommand:
		title = "Critical Command Failed"
		b.WriteString("A command marked critical failed and errors are not being skipped.\n")
		hint = "→ Pass --skip-errors or fix the failing command"
	case apperrors.InvalidCatalog:
		title = "Invalid Catalog"
		b.WriteString("The command catalog does not match the expected structure.\n")
		hint = "→ Run 'hextract catalog validate <file>' for details"
	case apperrors.Network, apperrors.CommandTimeout:
		title = "Connection Problem"
		b.WriteString("The cryptic endpoint could not be reached reliably.\n")
	default:
		b.WriteString("The run ended unexpectedly.\n")
	}

	head := pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title) + "\n\n"
	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint(hint))
	b.WriteString("\n\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	return head + b.String()
}

// PresentRunError prints FormatRunError surrounded by blank lines.
func PresentRunError(err error) {
	fmt.Println()
	fmt.Println(FormatRunError(err))
	fmt.Println()
}
