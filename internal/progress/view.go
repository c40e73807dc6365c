// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"fmt"
	"strings"
	"time"

	"hextract/cli/internal/model"
	"hextract/cli/internal/scheduler"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Bar draws a fixed-width progress bar.
func Bar(done, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// View renders the live area lines for a run.
func View(st scheduler.State, last *model.CommandResult, frame int) []string {
	stats := st.Statistics
	pct := 0
	if st.Total > 0 {
		pct = stats.Processed * 100 / st.Total
	}

	lead := frames[frame%len(frames)] + " Extracting"
	if st.Status == scheduler.StatusPaused {
		lead = "⏸ Paused    "
	}
	lines := []string{
		fmt.Sprintf("%s  batch %d/%d  %s %d/%d  %d%%",
			lead, st.CurrentBatch, st.TotalBatches, Bar(stats.Processed, st.Total, 20), stats.Processed, st.Total, pct),
		fmt.Sprintf("  ✓ %d ok  ✗ %d failed  success %.2f%%  elapsed %s  eta %s",
			stats.Successful, stats.Failed, stats.SuccessRate, round(stats.Elapsed), round(stats.EstimatedTimeRemaining)),
	}
	if last != nil {
		lines = append(lines, "  last: "+ResultLine(*last))
	}
	return lines
}

// ResultLine describes one result on a single line.
func ResultLine(r model.CommandResult) string {
	attempts := "attempt"
	if r.Attempts != 1 {
		attempts = "attempts"
	}
	if r.Success {
		kind := string(r.ResponseType)
		if r.Parsed != nil {
			kind = string(r.Parsed.ResponseType)
		}
		return fmt.Sprintf("%s ✓ %s (%d %s, %s)", r.Command, kind, r.Attempts, attempts, round(r.Duration))
	}
	return fmt.Sprintf("%s ✗ %s (%d %s)", r.Command, r.ErrorKind, r.Attempts, attempts)
}

func round(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(100 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
