// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the data structures shared by the extraction pipeline.
// Catalog entries, dispatch results and parsed responses flow between the
// gateway, the classifier and the scheduler using these types, so none of those
// packages needs to import another just for its data.
package model

import (
	"time"

	apperrors "hextract/cli/internal/errors"
)

// Priority is the coarse dispatch tier of a command.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting; higher ranks are dispatched first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether p is one of the known tiers.
func (p Priority) IsValid() bool { return p.Rank() > 0 }

// Priorities lists the tiers in dispatch order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ResponseType is the coarse or fine classification of a cryptic response.
type ResponseType string

const (
	ResponseError             ResponseType = "error"
	ResponseErrorMessage      ResponseType = "error_message"
	ResponseHelpDocumentation ResponseType = "help_documentation"
	ResponseCommandList       ResponseType = "command_list"
	ResponsePartialHelp       ResponseType = "partial_help"
	ResponseSystemMessage     ResponseType = "system_message"
	ResponseUnknown           ResponseType = "unknown"
	ResponseEmpty             ResponseType = "empty"
)

// CommandSpec is one catalog entry. It is immutable once loaded.
type CommandSpec struct {
	Command  string   `json:"command" yaml:"command"`
	Category string   `json:"category" yaml:"category"`
	Priority Priority `json:"priority" yaml:"priority"`
	// Critical marks a command whose failure aborts the run unless errors are skippable.
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty"`
}

// CommandResult is the outcome of dispatching a single command.
type CommandResult struct {
	Command      string          `json:"command"`
	Success      bool            `json:"success"`
	ResponseText string          `json:"responseText,omitempty"`
	ResponseType ResponseType    `json:"responseType,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorKind    apperrors.Kind  `json:"errorKind,omitempty"`
	Critical     bool            `json:"critical,omitempty"`
	Category     string          `json:"category,omitempty"`
	Priority     Priority        `json:"priority,omitempty"`
	BatchIndex   int             `json:"batchIndex"`
	GlobalIndex  int             `json:"globalIndex"`
	Attempts     int             `json:"attempts"`
	Duration     time.Duration   `json:"duration"`
	Timestamp    time.Time       `json:"timestamp"`
	Parsed       *ParsedResponse `json:"parsed,omitempty"`
}
