// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package classifier turns raw cryptic terminal responses into structured records.
// Parse is pure and deterministic: the same input always yields the same output,
// so results can be re-derived from archived response text at any time.
package classifier

import (
	"regexp"
	"strings"

	"hextract/cli/internal/model"
)

var (
	reControl   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	reWideSpace = regexp.MustCompile(` {2,}`)
	reBlankRun  = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips control characters and unifies line endings and spacing.
// Runs of two or more spaces are kept as exactly two spaces because they
// separate the columns of task tables.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reControl.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\t", "  ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimSuffix(line, ">"))
		lines[i] = reWideSpace.ReplaceAllString(line, "  ")
	}
	s = strings.Join(lines, "\n")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Parse classifies and structures a raw response for the given command.
func Parse(raw, command string) model.ParsedResponse {
	cleaned := Normalize(raw)
	out := model.ParsedResponse{
		Command:      command,
		ResponseType: model.ResponseEmpty,
		CleanedText:  cleaned,
		Sections:     []model.Section{},
		Tasks:        []model.Task{},
		Examples:     []model.Example{},
		References:   []string{},
		Syntax:       []string{},
		Notes:        []string{},
		Warnings:     []string{},
		SeeAlso:      []string{},
		Analysis:     model.Analysis{TechnicalLevel: levelMinimal},
	}
	if cleaned == "" {
		return out
	}

	lines := strings.Split(cleaned, "\n")
	out.ResponseType = Classify(cleaned)

	title, titleLine := extractTitle(cleaned, lines)
	out.Title = title
	out.Description = extractDescription(lines, titleLine)
	out.Sections = extractSections(lines)
	out.Tasks = extractTasks(lines)
	out.Examples = extractExamples(lines)
	out.References = extractReferences(cleaned)
	out.Syntax = extractSyntax(lines)
	out.Notes = extractNotes(lines)
	out.Warnings = extractWarnings(lines)
	out.SeeAlso = extractSeeAlso(lines)
	out.Analysis = analyze(cleaned, lines)
	out.Metadata = model.Metadata{
		Length:     len([]rune(cleaned)),
		WordCount:  len(strings.Fields(cleaned)),
		LineCount:  len(lines),
		Complexity: complexity(cleaned, lines),
		Quality:    quality(out),
	}
	return out
}

// Classify returns the first response type whose rule matches the cleaned text.
func Classify(cleaned string) model.ResponseType {
	if strings.TrimSpace(cleaned) == "" {
		return model.ResponseEmpty
	}
	for _, r := range typeRules {
		if r.re.MatchString(cleaned) {
			return r.label
		}
	}
	return model.ResponseUnknown
}
