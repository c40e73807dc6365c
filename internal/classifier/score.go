// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package classifier

import (
	"math"
	"strings"
	"unicode"

	"hextract/cli/internal/model"
)

const maxScore = 10

const (
	levelMinimal      = "minimal"
	levelBasic        = "basic"
	levelIntermediate = "intermediate"
	levelAdvanced     = "advanced"
)

// complexity is a weighted sum of size and token counts, rounded and capped at 10.
func complexity(cleaned string, lines []string) int {
	length := float64(len([]rune(cleaned)))
	score := math.Min(length/100, 5)
	score += float64(len(lines)) / 5
	score += float64(len(reCapsToken.FindAllStringIndex(cleaned, -1))) / 10
	score += float64(len(reNumberToken.FindAllStringIndex(cleaned, -1))) / 10
	score += float64(len(reSymbolToken.FindAllStringIndex(cleaned, -1))) / 5
	return min(int(math.Round(score)), maxScore)
}

// quality awards a bonus for each kind of structure that was extracted.
func quality(p model.ParsedResponse) int {
	q := 0
	if p.Title != "" {
		q += 2
	}
	if len(p.Examples) > 0 {
		q += 2
	}
	if len(p.References) > 0 {
		q++
	}
	if len(p.Syntax) > 0 {
		q++
	}
	if len(p.Tasks) > 0 {
		q += 2
	}
	if len(p.Notes) > 0 {
		q++
	}
	if p.Analysis.HasFormatInformation {
		q++
	}
	return min(q, maxScore)
}

func analyze(cleaned string, lines []string) model.Analysis {
	return model.Analysis{
		HasFormatInformation: strings.Contains(cleaned, "FORMAT"),
		TechnicalLevel:       technicalLevel(cleaned, lines),
		ContentDensity:       contentDensity(cleaned),
		InformationRatio:     informationRatio(cleaned),
	}
}

func technicalLevel(cleaned string, lines []string) string {
	score := 0
	if reCodeToken.MatchString(cleaned) {
		score += 2
	}
	if reReference.MatchString(cleaned) {
		score++
	}
	if reBracket.MatchString(cleaned) {
		score++
	}
	if strings.Contains(cleaned, "FORMAT") {
		score++
	}
	if strings.Contains(cleaned, "REFERENCE") {
		score++
	}
	if len([]rune(cleaned)) > 500 {
		score++
	}
	if len(lines) > 10 {
		score++
	}
	switch {
	case score >= 6:
		return levelAdvanced
	case score >= 4:
		return levelIntermediate
	case score >= 2:
		return levelBasic
	default:
		return levelMinimal
	}
}

// contentDensity is the share of non-whitespace characters, rounded to two decimals.
func contentDensity(cleaned string) float64 {
	total, meaningful := 0, 0
	for _, r := range cleaned {
		total++
		if !unicode.IsSpace(r) {
			meaningful++
		}
	}
	if total == 0 {
		return 0
	}
	return round2(float64(meaningful) / float64(total))
}

// informationRatio relates technical tokens to the word count.
func informationRatio(cleaned string) float64 {
	words := len(strings.Fields(cleaned))
	if words == 0 {
		return 0
	}
	tokens := len(reTechWord.FindAllStringIndex(cleaned, -1)) +
		len(reNumberToken.FindAllStringIndex(cleaned, -1)) +
		len(reSymbolToken.FindAllStringIndex(cleaned, -1))
	return round2(float64(tokens) / float64(words))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
