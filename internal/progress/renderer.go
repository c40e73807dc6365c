// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package progress renders scheduler events to the terminal. On a TTY it keeps
// a live area with a spinner; otherwise it prints one line per event.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"hextract/cli/internal/model"
	"hextract/cli/internal/scheduler"
)

const spinInterval = 120 * time.Millisecond

// Renderer turns scheduler events into terminal output.
type Renderer struct {
	interactive bool
	out         io.Writer
	hint        string

	mu    sync.Mutex
	area  *pterm.AreaPrinter
	lines LineState
	state scheduler.State
	last  *model.CommandResult

	spinStop chan struct{}
	spinWG   sync.WaitGroup
}

// NewRenderer creates a renderer. hint is shown under the live area.
func NewRenderer(interactive bool, out io.Writer, hint string) *Renderer {
	return &Renderer{interactive: interactive, out: out, hint: hint}
}

// Start opens the live area when interactive.
func (r *Renderer) Start() {
	if !r.interactive {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.area != nil {
		return
	}
	r.lines.Reset()
	cursor.Hide()
	r.area, _ = pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	r.spinStop = make(chan struct{})
	r.spinWG.Add(1)
	go func(stop <-chan struct{}) {
		defer r.spinWG.Done()
		t := time.NewTicker(spinInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.lines.Tick()
				r.redraw()
			case <-stop:
				return
			}
		}
	}(r.spinStop)
}

// Stop closes the live area and restores the cursor.
func (r *Renderer) Stop() {
	r.mu.Lock()
	if r.area == nil {
		r.mu.Unlock()
		return
	}
	close(r.spinStop)
	r.mu.Unlock()
	r.spinWG.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.area.Stop()
	r.area = nil
	cursor.Show()
}

// Handle consumes one scheduler event.
func (r *Renderer) Handle(ev scheduler.Event) {
	r.mu.Lock()
	r.state = ev.State
	if ev.Result != nil {
		res := *ev.Result
		r.last = &res
	}
	r.mu.Unlock()

	if r.interactive {
		r.redraw()
		return
	}
	if line := plainLine(ev); line != "" {
		fmt.Fprintln(r.out, line)
	}
}

func (r *Renderer) redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.area == nil {
		return
	}
	lines := View(r.state, r.last, r.lines.Frame())
	if r.hint != "" {
		lines = append(lines, pterm.NewStyle(pterm.FgGray).Sprint("  "+r.hint))
	}
	for i, l := range lines {
		lines[i] = r.lines.Pad(l)
	}
	text := strings.Join(lines, "\n")
	if !r.lines.Changed(text) {
		return
	}
	r.area.Update(text)
}

func plainLine(ev scheduler.Event) string {
	st := ev.State
	switch ev.Type {
	case scheduler.EventBatchStarted:
		return fmt.Sprintf("batch %d/%d: %d command(s)", ev.BatchIndex, ev.BatchTotal, len(ev.Batch))
	case scheduler.EventProgress:
		if ev.Result == nil {
			return ""
		}
		return fmt.Sprintf("[%d/%d] %s", st.Statistics.Processed, st.Total, ResultLine(*ev.Result))
	case scheduler.EventPaused:
		return "paused"
	case scheduler.EventResumed:
		return "resumed"
	case scheduler.EventSessionRefreshed:
		return "session refreshed"
	}
	return ""
}
