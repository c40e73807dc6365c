// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides small helpers for terminal detection and line clearing.
package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// IsInteractive reports whether stdout is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or 80 when it cannot be determined.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// LinesFor returns how many rows text of the given length occupies at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	n := (textLength + width - 1) / width
	if n < 1 {
		n = 1
	}
	return n
}

// ClearPreviousLines clears an echoed input line of textLength characters,
// including the empty line left by Enter.
func ClearPreviousLines(textLength int) {
	linesToClear := LinesFor(textLength, Width()) + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Print("\r\x1b[2K") // clear entire line
		if i < linesToClear-1 {
			fmt.Print("\x1b[1A") // up one line
		}
	}
}
