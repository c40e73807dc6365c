// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

// ParsedResponse is the structured form of a cryptic help response.
type ParsedResponse struct {
	Command      string       `json:"command"`
	ResponseType ResponseType `json:"responseType"`
	CleanedText  string       `json:"cleanedText"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Sections     []Section    `json:"sections"`
	Tasks        []Task       `json:"tasks"`
	Examples     []Example    `json:"examples"`
	References   []string     `json:"references"`
	Syntax       []string     `json:"syntax"`
	Notes        []string     `json:"notes"`
	Warnings     []string     `json:"warnings"`
	SeeAlso      []string     `json:"seeAlso"`
	Analysis     Analysis     `json:"analysis"`
	Metadata     Metadata     `json:"metadata"`
}

// Section is a heading-delimited block of lines.
type Section struct {
	Title     string   `json:"title"`
	Content   []string `json:"content"`
	StartLine int      `json:"startLine"`
}

// Task is one row of a TASK / FORMAT / REFERENCE table.
type Task struct {
	Task      string `json:"task"`
	Format    string `json:"format"`
	Reference string `json:"reference"`
	Line      string `json:"line"`
}

// ExampleType is the coarse kind of a command example.
type ExampleType string

const (
	ExampleRoundTrip    ExampleType = "round_trip"
	ExampleAvailability ExampleType = "availability"
	ExampleRoute        ExampleType = "route"
	ExampleGeneral      ExampleType = "general"
)

// Example is a command line recognised as sample input.
type Example struct {
	Command string      `json:"command"`
	Type    ExampleType `json:"type"`
}

// Analysis summarises how information-dense a response is.
type Analysis struct {
	HasFormatInformation bool    `json:"hasFormatInformation"`
	TechnicalLevel       string  `json:"technicalLevel"`
	ContentDensity       float64 `json:"contentDensity"`
	InformationRatio     float64 `json:"informationRatio"`
}

// Metadata holds size counters and the 0-10 scores.
type Metadata struct {
	Length     int `json:"length"`
	WordCount  int `json:"wordCount"`
	LineCount  int `json:"lineCount"`
	Complexity int `json:"complexity"`
	Quality    int `json:"quality"`
}
