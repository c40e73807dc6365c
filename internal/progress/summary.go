// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"hextract/cli/internal/model"
	"hextract/cli/internal/scheduler"
)

// SummaryTitle names the outcome of a run.
func SummaryTitle(status scheduler.Status) string {
	switch status {
	case scheduler.StatusCompleted:
		return "Extraction Completed"
	case scheduler.StatusError:
		return "Extraction Failed"
	default:
		return "Extraction Stopped"
	}
}

// SummaryDetails is the body of the completion box.
func SummaryDetails(rep *scheduler.Report) string {
	s := rep.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Duration: %s\n", round(s.Duration))
	fmt.Fprintf(&b, "Processed: %d/%d\n", s.ProcessedCommands, s.TotalCommands)
	fmt.Fprintf(&b, "Successful: %d\n", s.SuccessfulCommands)
	fmt.Fprintf(&b, "Failed: %d\n", s.FailedCommands)
	fmt.Fprintf(&b, "Success rate: %.2f%%\n", s.SuccessRate)
	if s.ProcessedCommands > 0 {
		fmt.Fprintf(&b, "Average per command: %s\n", round(s.AverageTimePerCommand))
	}
	fmt.Fprintf(&b, "Run: %s", rep.RunID)
	if rep.Halt != "" {
		fmt.Fprintf(&b, "\n\nReason: %s", rep.Halt)
	}
	return b.String()
}

// PrintReport shows the completion box and the per-category table.
func PrintReport(rep *scheduler.Report) {
	color := pterm.FgYellow
	switch rep.Status {
	case scheduler.StatusCompleted:
		color = pterm.FgGreen
	case scheduler.StatusError:
		color = pterm.FgRed
	}
	title := pterm.NewStyle(color, pterm.Bold).Sprint(SummaryTitle(rep.Status))
	box := pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(SummaryDetails(rep))
	pterm.Println(box)

	if len(rep.CategoryBreakdown) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(CategoryRows(rep)).Render()
	}
}

// CategoryRows builds the category table, header first, categories sorted.
func CategoryRows(rep *scheduler.Report) [][]string {
	names := make([]string, 0, len(rep.CategoryBreakdown))
	for name := range rep.CategoryBreakdown {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := [][]string{{"Category", "Total", "OK", "Failed", "Rate"}}
	for _, name := range names {
		c := rep.CategoryBreakdown[name]
		label := name
		if label == "" {
			label = "(none)"
		}
		rows = append(rows, []string{
			label,
			fmt.Sprint(c.Total),
			fmt.Sprint(c.Successful),
			fmt.Sprint(c.Failed),
			fmt.Sprintf("%.1f%%", c.SuccessRate),
		})
	}
	return rows
}

// ParsedSummary prints a classified response in readable form.
func ParsedSummary(p model.ParsedResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command:     %s\n", p.Command)
	fmt.Fprintf(&b, "Type:        %s\n", p.ResponseType)
	if p.Title != "" {
		fmt.Fprintf(&b, "Title:       %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Sections:    %d\n", len(p.Sections))
	fmt.Fprintf(&b, "Tasks:       %d\n", len(p.Tasks))
	fmt.Fprintf(&b, "Examples:    %d\n", len(p.Examples))
	if len(p.References) > 0 {
		fmt.Fprintf(&b, "References:  %s\n", strings.Join(p.References, ", "))
	}
	if len(p.SeeAlso) > 0 {
		fmt.Fprintf(&b, "See also:    %s\n", strings.Join(p.SeeAlso, ", "))
	}
	fmt.Fprintf(&b, "Complexity:  %d/10\n", p.Metadata.Complexity)
	fmt.Fprintf(&b, "Quality:     %d/10", p.Metadata.Quality)
	return b.String()
}
