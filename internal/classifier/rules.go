// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package classifier

import (
	"regexp"

	"hextract/cli/internal/model"
)

type typeRule struct {
	re    *regexp.Regexp
	label model.ResponseType
}

// typeRules is evaluated top to bottom; the first match wins.
var typeRules = []typeRule{
	{regexp.MustCompile(`(?is)TASK.*FORMAT.*REFERENCE.*\bMS\d+|FOR AN EXPLANATION.*\bMS\d+`), model.ResponseHelpDocumentation},
	{regexp.MustCompile(`(?is)TASK\s+FORMAT\s+REFERENCE.*-{4,}`), model.ResponseCommandList},
	{regexp.MustCompile(`(?i)COMMAND NOT RECOGNI[SZ]ED|INVALID ENTRY|NOT AUTHORI[SZ]ED`), model.ResponseErrorMessage},
	{regexp.MustCompile(`(?i)\b(LIMITED|PARTIAL|BASIC)\b`), model.ResponsePartialHelp},
	{regexp.MustCompile(`(?i)\b(SYSTEM|STATUS|CONNECTION)\b`), model.ResponseSystemMessage},
}

// Title heuristics, in priority order. Each captures the title in group 1.
var (
	reTitleDated    = regexp.MustCompile(`(?m)^([A-Z][A-Z /&-]*?) +\d+ +EN +\d{2}[A-Z]{3}\d{2} +\d{4}Z?$`)
	reTitleNumbered = regexp.MustCompile(`(?m)^([A-Z][A-Z /&-]*[A-Z]) +\d+\b`)
	reTitleCaps     = regexp.MustCompile(`(?m)^([A-Z][A-Z /&-]{10,})$`)
	reTitleFallback = regexp.MustCompile(`^[A-Z][A-Z0-9 &/().,'-]+$`)
)

// Cryptic output is entirely upper case, so a bare caps line only counts as a
// heading when it is short.
var sectionRules = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z][A-Z /&-]{2,}:$`),
	regexp.MustCompile(`^[A-Z][A-Z &/-]{4,29}$`),
}

const maxHeadingWords = 4

var (
	reTableRule  = regexp.MustCompile(`^-{4,}`)
	reColumnGap  = regexp.MustCompile(` {2,}`)
	reNavMarker  = regexp.MustCompile(`^(MD|MU|MT|MB)$`)
	reReference  = regexp.MustCompile(`\bMS\d+\b`)
	reOnlyRef    = regexp.MustCompile(`^MS\d+$`)
	reOptional   = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	reSeeAlso    = regexp.MustCompile(`(?i)\bSEE\s+ALSO\s*:?\s*(.+)$`)
	reNotePrefix = regexp.MustCompile(`(?i)^(NOTE|NOTES|N\.B\.)\s*:`)
	reWarnPrefix = regexp.MustCompile(`(?i)^(WARNING|CAUTION|IMPORTANT)\b`)
)

// examplePatterns recognise sample command entries.
var examplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}\d+[A-Z]{3}[A-Z0-9/*]+`),
	regexp.MustCompile(`^[A-Z]{2}/[A-Z0-9]+`),
	regexp.MustCompile(`^\*[A-Z0-9]+`),
	regexp.MustCompile(`^[A-Z]{2,4}\d+[A-Z0-9/*]*$`),
}

var reAvailability = regexp.MustCompile(`^[A-Z]{2}\d+`)

// Scoring tokens.
var (
	reCapsToken   = regexp.MustCompile(`[A-Z]{2,}`)
	reNumberToken = regexp.MustCompile(`\d+`)
	reSymbolToken = regexp.MustCompile(`[\[\]{}/*]`)
	reTechWord    = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	reCodeToken   = regexp.MustCompile(`[A-Z]{2}\d+`)
	reBracket     = regexp.MustCompile(`[\[\]{}]`)
)
