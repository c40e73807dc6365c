// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import "hextract/cli/internal/model"

// EventType enumerates scheduler event kinds.
type EventType string

const (
	// EventBatchStarted is emitted before the first command of a batch.
	EventBatchStarted EventType = "batch_started"
	// EventProgress follows every recorded result.
	EventProgress EventType = "progress"
	// EventPaused and EventResumed bracket a pause at a checkpoint.
	EventPaused  EventType = "paused"
	EventResumed EventType = "resumed"
	// EventSessionRefreshed reports a mid-run credential re-acquisition.
	EventSessionRefreshed EventType = "session_refreshed"
	// EventCompleted, EventStopped and EventError are terminal and carry the report.
	EventCompleted EventType = "completed"
	EventStopped   EventType = "stopped"
	EventError     EventType = "error"
)

// Event is a generic container for scheduler notifications.
// Only a subset of fields is set depending on Type.
type Event struct {
	Type  EventType
	State State

	// Batch progress, 1-based.
	BatchIndex int
	BatchTotal int
	Batch      []model.CommandSpec

	Result *model.CommandResult
	Report *Report
	Err    error
}

// Handler receives events. All events of a run are delivered from the run
// goroutine, in order.
type Handler func(Event)
