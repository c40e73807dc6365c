// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import (
	"time"

	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/model"
)

// Report is the final (or partial) outcome of a run.
type Report struct {
	RunID             string                           `json:"runId"`
	Status            Status                           `json:"status"`
	StartTime         time.Time                        `json:"startTime"`
	EndTime           time.Time                        `json:"endTime"`
	Settings          Settings                         `json:"settings"`
	Summary           Summary                          `json:"summary"`
	Results           []model.CommandResult            `json:"results"`
	Errors            []ErrorEntry                     `json:"errors"`
	CategoryBreakdown map[string]CategoryStats         `json:"categoryBreakdown"`
	PriorityBreakdown map[model.Priority]PriorityStats `json:"priorityBreakdown"`
	// Halt is set when the run ended in StatusError.
	Halt string `json:"halt,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	TotalCommands         int           `json:"totalCommands"`
	ProcessedCommands     int           `json:"processedCommands"`
	SuccessfulCommands    int           `json:"successfulCommands"`
	FailedCommands        int           `json:"failedCommands"`
	SuccessRate           float64       `json:"successRate"`
	Duration              time.Duration `json:"duration"`
	AverageTimePerCommand time.Duration `json:"averageTimePerCommand"`
}

// ErrorEntry is one non-fatal failure.
type ErrorEntry struct {
	Command   string         `json:"command"`
	Kind      apperrors.Kind `json:"kind"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

type CategoryStats struct {
	Total       int      `json:"total"`
	Successful  int      `json:"successful"`
	Failed      int      `json:"failed"`
	SuccessRate float64  `json:"successRate"`
	Commands    []string `json:"commands"`
}

type PriorityStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

func buildReport(runID string, status Status, start, end time.Time, settings Settings, total int, results []model.CommandResult, halt error) *Report {
	r := &Report{
		RunID:             runID,
		Status:            status,
		StartTime:         start,
		EndTime:           end,
		Settings:          settings,
		Results:           append([]model.CommandResult(nil), results...),
		Errors:            []ErrorEntry{},
		CategoryBreakdown: map[string]CategoryStats{},
		PriorityBreakdown: map[model.Priority]PriorityStats{},
	}
	if r.Results == nil {
		r.Results = []model.CommandResult{}
	}
	if halt != nil {
		r.Halt = halt.Error()
	}

	successful := 0
	for _, res := range results {
		cat := r.CategoryBreakdown[res.Category]
		prio := r.PriorityBreakdown[res.Priority]
		cat.Total++
		prio.Total++
		cat.Commands = append(cat.Commands, res.Command)
		if res.Success {
			successful++
			cat.Successful++
			prio.Successful++
		} else {
			cat.Failed++
			prio.Failed++
			r.Errors = append(r.Errors, ErrorEntry{
				Command:   res.Command,
				Kind:      res.ErrorKind,
				Message:   res.Error,
				Timestamp: res.Timestamp,
			})
		}
		r.CategoryBreakdown[res.Category] = cat
		r.PriorityBreakdown[res.Priority] = prio
	}
	for name, cat := range r.CategoryBreakdown {
		cat.SuccessRate = percent(cat.Successful, cat.Total)
		r.CategoryBreakdown[name] = cat
	}

	st := computeStats(len(results), successful, total, end.Sub(start))
	r.Summary = Summary{
		TotalCommands:         total,
		ProcessedCommands:     st.Processed,
		SuccessfulCommands:    st.Successful,
		FailedCommands:        st.Failed,
		SuccessRate:           st.SuccessRate,
		Duration:              st.Elapsed,
		AverageTimePerCommand: st.AverageTimePerCommand,
	}
	return r
}
