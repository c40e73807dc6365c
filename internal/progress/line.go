// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// LineState holds the live-area rendering state: the spinner frame, the widest
// line seen so far and the last rendered content.
type LineState struct {
	mu       sync.Mutex
	frame    int
	maxLen   int
	rendered string
}

// Tick advances the spinner and returns the new frame index.
func (ls *LineState) Tick() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.frame++
	return ls.frame
}

// Frame returns the current spinner frame index.
func (ls *LineState) Frame() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.frame
}

// Pad right-pads line to the widest line seen so shorter updates do not leave
// residue on screen.
func (ls *LineState) Pad(line string) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	n := utf8.RuneCountInString(line)
	if n > ls.maxLen {
		ls.maxLen = n
	}
	if pad := ls.maxLen - n; pad > 0 {
		return line + strings.Repeat(" ", pad)
	}
	return line
}

// Changed stores content and reports whether it differs from the last call.
func (ls *LineState) Changed(content string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if content == ls.rendered {
		return false
	}
	ls.rendered = content
	return true
}

// Reset clears widths and cached output for a new run.
func (ls *LineState) Reset() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.maxLen = 0
	ls.rendered = ""
}
