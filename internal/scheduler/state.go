// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import "time"

// Status is the run state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Active reports whether a run is in progress.
func (s Status) Active() bool { return s == StatusRunning || s == StatusPaused }

// Statistics are recomputed after every command.
type Statistics struct {
	Processed              int           `json:"processed"`
	Successful             int           `json:"successful"`
	Failed                 int           `json:"failed"`
	SuccessRate            float64       `json:"successRate"`
	Elapsed                time.Duration `json:"elapsed"`
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining"`
	AverageTimePerCommand  time.Duration `json:"averageTimePerCommand"`
}

// State is a snapshot of the scheduler.
type State struct {
	Status       Status     `json:"status"`
	RunID        string     `json:"runId,omitempty"`
	CurrentIndex int        `json:"currentIndex"`
	Total        int        `json:"total"`
	CurrentBatch int        `json:"currentBatch"`
	TotalBatches int        `json:"totalBatches"`
	Statistics   Statistics `json:"statistics"`
	Settings     Settings   `json:"settings"`
}

func computeStats(processed, successful, total int, elapsed time.Duration) Statistics {
	st := Statistics{
		Processed:  processed,
		Successful: successful,
		Failed:     processed - successful,
		Elapsed:    elapsed,
	}
	if processed > 0 {
		st.SuccessRate = percent(successful, processed)
		st.AverageTimePerCommand = elapsed / time.Duration(processed)
		if remaining := total - processed; remaining > 0 {
			st.EstimatedTimeRemaining = st.AverageTimePerCommand * time.Duration(remaining)
		}
	}
	return st
}

// percent rounds to two decimals.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part*10000/whole) / 100
}
