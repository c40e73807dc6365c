// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"hextract/cli/internal/model"
)

// extractTitle returns the title and the index of the line it was found on (-1 if none).
func extractTitle(cleaned string, lines []string) (string, int) {
	for _, re := range []*regexp.Regexp{reTitleDated, reTitleNumbered, reTitleCaps} {
		m := re.FindStringSubmatchIndex(cleaned)
		if m == nil {
			continue
		}
		if title := strings.TrimSpace(cleaned[m[2]:m[3]]); len(title) >= 3 {
			return title, strings.Count(cleaned[:m[0]], "\n")
		}
	}
	first := lines[0]
	if n := utf8.RuneCountInString(first); n > 10 && n < 100 && reTitleFallback.MatchString(first) {
		return first, 0
	}
	return "", -1
}

func extractDescription(lines []string, titleLine int) string {
	start := titleLine + 1
	for i := start; i < len(lines) && i < start+10; i++ {
		line := lines[i]
		n := utf8.RuneCountInString(line)
		if n < 20 || n > 200 {
			continue
		}
		if isTableRule(line) || mentionsTableHeader(line) || isSectionHeader(line) {
			continue
		}
		return line
	}
	return ""
}

func isSectionHeader(line string) bool {
	if len(strings.Fields(line)) > maxHeadingWords {
		return false
	}
	for _, re := range sectionRules {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func isTableRule(line string) bool { return reTableRule.MatchString(line) }

func mentionsTableHeader(line string) bool {
	return strings.Contains(line, "TASK") || strings.Contains(line, "FORMAT") || strings.Contains(line, "REFERENCE")
}

func isTableHeader(line string) bool {
	return strings.Contains(line, "TASK") && strings.Contains(line, "FORMAT") && strings.Contains(line, "REFERENCE")
}

func isNavigationMarker(line string) bool {
	return strings.Contains(line, ">") || reNavMarker.MatchString(line)
}

func extractSections(lines []string) []model.Section {
	sections := []model.Section{}
	var current *model.Section
	for i, line := range lines {
		if isSectionHeader(line) {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &model.Section{Title: strings.TrimSuffix(line, ":"), Content: []string{}, StartLine: i}
			continue
		}
		if current != nil && line != "" {
			current.Content = append(current.Content, line)
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// extractTasks reads fixed-column rows that follow a TASK/FORMAT/REFERENCE header.
func extractTasks(lines []string) []model.Task {
	tasks := []model.Task{}
	inTable := false
	for _, line := range lines {
		if !inTable {
			inTable = isTableHeader(line)
			continue
		}
		if line == "" || isTableRule(line) {
			continue
		}
		if parts := reColumnGap.Split(line, -1); len(parts) >= 2 {
			t := model.Task{Task: parts[0], Format: parts[1], Line: line}
			if len(parts) > 2 {
				t.Reference = strings.Join(parts[2:], " ")
			}
			tasks = append(tasks, t)
		}
		// A row carrying the navigation marker is the last one of the table.
		if isNavigationMarker(line) {
			break
		}
	}
	return tasks
}

func extractExamples(lines []string) []model.Example {
	examples := []model.Example{}
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if n < 6 || n > 99 || reOnlyRef.MatchString(line) {
			continue
		}
		for _, re := range examplePatterns {
			if re.MatchString(line) {
				examples = append(examples, model.Example{Command: line, Type: exampleType(line)})
				break
			}
		}
	}
	return examples
}

func exampleType(cmd string) model.ExampleType {
	switch {
	case strings.Contains(cmd, "*"):
		return model.ExampleRoundTrip
	case reAvailability.MatchString(cmd):
		return model.ExampleAvailability
	case strings.Contains(cmd, "/"):
		return model.ExampleRoute
	default:
		return model.ExampleGeneral
	}
}

func extractReferences(cleaned string) []string {
	return dedupe(reReference.FindAllString(cleaned, -1))
}

func extractSyntax(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if n > 10 && n < 150 && reOptional.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func extractNotes(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		lower := strings.ToLower(line)
		if reNotePrefix.MatchString(line) ||
			strings.Contains(lower, "please enter:") ||
			strings.Contains(lower, "for an explanation") {
			out = append(out, line)
		}
	}
	return out
}

func extractWarnings(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		if reWarnPrefix.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func extractSeeAlso(lines []string) []string {
	var items []string
	for _, line := range lines {
		m := reSeeAlso.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, item := range strings.Split(m[1], ",") {
			if item = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(item), ".")); item != "" {
				items = append(items, item)
			}
		}
	}
	return dedupe(items)
}

// dedupe keeps the first occurrence of each value and never returns nil.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
