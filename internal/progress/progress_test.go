// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/model"
	"hextract/cli/internal/scheduler"
)

func TestBar(t *testing.T) {
	assert.Equal(t, "[----------]", Bar(0, 10, 10))
	assert.Equal(t, "[#####-----]", Bar(5, 10, 10))
	assert.Equal(t, "[##########]", Bar(12, 10, 10))
	assert.Equal(t, "[----]", Bar(3, 0, 4))
}

func TestLineState_Pad(t *testing.T) {
	var ls LineState
	assert.Equal(t, "abcdef", ls.Pad("abcdef"))
	assert.Equal(t, "ab    ", ls.Pad("ab"))
	assert.True(t, ls.Changed("x"))
	assert.False(t, ls.Changed("x"))
	ls.Reset()
	assert.Equal(t, "ab", ls.Pad("ab"))
	assert.True(t, ls.Changed("x"))
}

func TestView(t *testing.T) {
	st := scheduler.State{
		Status:       scheduler.StatusRunning,
		Total:        10,
		CurrentBatch: 1,
		TotalBatches: 2,
		Statistics:   scheduler.Statistics{Processed: 5, Successful: 4, Failed: 1, SuccessRate: 80},
	}
	last := model.CommandResult{Command: "HE AN", ErrorKind: apperrors.Network, Attempts: 3}

	lines := View(st, &last, 0)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "batch 1/2")
	assert.Contains(t, lines[0], "5/10  50%")
	assert.Contains(t, lines[1], "success 80.00%")
	assert.Equal(t, "  last: HE AN ✗ network (3 attempts)", lines[2])

	st.Status = scheduler.StatusPaused
	assert.True(t, strings.HasPrefix(View(st, nil, 3)[0], "⏸ Paused"))
	assert.Len(t, View(st, nil, 3), 2)
}

func TestResultLine_Success(t *testing.T) {
	r := model.CommandResult{
		Command:  "HE SS",
		Success:  true,
		Attempts: 1,
		Duration: 1234 * time.Millisecond,
		Parsed:   &model.ParsedResponse{ResponseType: model.ResponseHelpDocumentation},
	}
	assert.Equal(t, "HE SS ✓ help_documentation (1 attempt, 1.2s)", ResultLine(r))
}

func TestRenderer_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(false, &buf, "")
	r.Start()

	res := model.CommandResult{Command: "HE AN", Success: true, ResponseType: model.ResponseUnknown, Attempts: 1}
	st := scheduler.State{Total: 2, Statistics: scheduler.Statistics{Processed: 1}}
	r.Handle(scheduler.Event{Type: scheduler.EventBatchStarted, BatchIndex: 1, BatchTotal: 2, Batch: make([]model.CommandSpec, 1)})
	r.Handle(scheduler.Event{Type: scheduler.EventProgress, State: st, Result: &res})
	r.Handle(scheduler.Event{Type: scheduler.EventPaused})
	r.Handle(scheduler.Event{Type: scheduler.EventCompleted})
	r.Stop()

	assert.Equal(t, "batch 1/2: 1 command(s)\n[1/2] HE AN ✓ unknown (1 attempt, 0s)\npaused\n", buf.String())
}

func TestSummary(t *testing.T) {
	rep := &scheduler.Report{
		RunID:  "run-1",
		Status: scheduler.StatusError,
		Summary: scheduler.Summary{
			TotalCommands:         3,
			ProcessedCommands:     1,
			FailedCommands:        1,
			Duration:              2 * time.Second,
			AverageTimePerCommand: 2 * time.Second,
		},
		CategoryBreakdown: map[string]scheduler.CategoryStats{
			"b": {Total: 1, Failed: 1},
			"a": {Total: 2, Successful: 2, SuccessRate: 100},
		},
		Halt: "critical_command: HE AN failed",
	}
	assert.Equal(t, "Extraction Failed", SummaryTitle(rep.Status))
	assert.Equal(t, "Extraction Stopped", SummaryTitle(scheduler.StatusIdle))

	details := SummaryDetails(rep)
	assert.Contains(t, details, "Processed: 1/3")
	assert.Contains(t, details, "Reason: critical_command: HE AN failed")

	rows := CategoryRows(rep)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "2", "2", "0", "100.0%"}, rows[1])
	assert.Equal(t, "b", rows[2][0])
}
