// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package scheduler runs a command catalog through the gateway one command at a
// time. Commands are sorted by priority, cut into batches and spaced by
// configurable delays. A run can be paused, resumed and stopped at checkpoints
// placed before every batch and every command; an in-flight request is never
// interrupted by either.
//
// Pausing blocks the run goroutine on a gate channel that Resume closes, so a
// paused run consumes no CPU. Stopping keeps every result recorded so far and
// leaves the scheduler idle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hextract/cli/internal/classifier"
	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/model"
	"hextract/cli/internal/session"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("scheduler: a run is already in progress")

// Gateway dispatches a single command. It reports failures in the result.
type Gateway interface {
	SendCommand(ctx context.Context, creds session.Credentials, command string) model.CommandResult
}

// RetryTuner is implemented by gateways whose retry policy can change at runtime.
type RetryTuner interface {
	SetRetryPolicy(maxRetries int, delay time.Duration)
}

// CredentialSource hands out session credentials.
type CredentialSource interface {
	Acquire(ctx context.Context) (session.Credentials, error)
	IsValid(c session.Credentials) bool
	Invalidate()
}

// Options configure a Scheduler.
type Options struct {
	Logger  *zap.Logger
	OnEvent Handler
	Now     func() time.Time
}

// Scheduler owns one run at a time.
type Scheduler struct {
	gw      Gateway
	creds   CredentialSource
	log     *zap.Logger
	onEvent Handler
	now     func() time.Time

	mu         sync.Mutex
	gen        uint64
	status     Status
	settings   Settings
	batchSize  int
	runID      string
	total      int
	batches    int
	curIndex   int
	curBatch   int
	results    []model.CommandResult
	successful int
	startTime  time.Time
	endTime    time.Time
	gate       chan struct{}
	stop       chan struct{}
	stopping   bool
	done       chan struct{}
	runErr     error
	report     *Report
}

// New creates an idle scheduler.
func New(gw Gateway, creds CredentialSource, opts Options) *Scheduler {
	s := &Scheduler{
		gw:       gw,
		creds:    creds,
		log:      opts.Logger,
		onEvent:  opts.OnEvent,
		now:      opts.Now,
		status:   StatusIdle,
		settings: DefaultSettings(),
		done:     make(chan struct{}),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	close(s.done)
	return s
}

// Start begins a run over catalog in a new goroutine. It fails with
// ErrAlreadyRunning while another run is running or paused.
func (s *Scheduler) Start(ctx context.Context, catalog []model.CommandSpec, settings Settings) error {
	settings = settings.normalized()
	plan := Plan(catalog, settings.BatchSize)

	s.mu.Lock()
	if s.status.Active() {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	// A stopped run may still be finishing its in-flight command; bumping the
	// generation detaches it from the state below.
	s.gen++
	s.status = StatusRunning
	s.settings = settings
	s.batchSize = settings.BatchSize
	s.runID = uuid.NewString()
	s.total = len(catalog)
	s.batches = len(plan)
	s.curIndex, s.curBatch = 0, 0
	s.results = nil
	s.successful = 0
	s.startTime = s.now()
	s.endTime = time.Time{}
	s.gate = nil
	s.stop = make(chan struct{})
	s.stopping = false
	s.done = make(chan struct{})
	s.runErr = nil
	s.report = nil
	gen, stop, done, runID := s.gen, s.stop, s.done, s.runID
	s.mu.Unlock()

	s.tuneRetries(settings)
	s.log.Info("run started",
		zap.String("run_id", runID), zap.Int("commands", len(catalog)), zap.Int("batches", len(plan)))

	go s.run(ctx, gen, plan, stop, done)
	return nil
}

// Pause suspends the run at its next checkpoint.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}
	s.status = StatusPaused
	s.gate = make(chan struct{})
}

// Resume releases a paused run.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPaused {
		return
	}
	s.status = StatusRunning
	close(s.gate)
	s.gate = nil
}

// Stop ends the run. The status becomes idle at once; a command already in
// flight completes and is recorded, and nothing further is dispatched.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Active() {
		return
	}
	s.status = StatusIdle
	s.stopping = true
	close(s.stop)
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// UpdateSettings merges patch into the current settings. Delays, timeout and
// skip-on-error take effect from the next command; batch size from the next
// run, so the running plan keeps reporting the size it was cut with.
func (s *Scheduler) UpdateSettings(patch SettingsPatch) Settings {
	s.mu.Lock()
	s.settings = patch.Apply(s.settings)
	updated := s.settings
	s.mu.Unlock()
	if patch.touchesRetry() {
		s.tuneRetries(updated)
	}
	s.log.Debug("settings updated", zap.Any("settings", updated))
	return updated
}

// Status returns a snapshot of the run state.
func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Results returns a copy of the results recorded so far.
func (s *Scheduler) Results() []model.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CommandResult(nil), s.results...)
}

// Report returns the final report once the run has ended, or a live snapshot
// while it is active.
func (s *Scheduler) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report != nil {
		return s.report
	}
	end := s.endTime
	if end.IsZero() {
		end = s.now()
	}
	return buildReport(s.runID, s.status, s.startTime, end, s.runSettingsLocked(), s.total, s.results, nil)
}

// Done is closed when the current run has finished.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Wait blocks until the current run finishes and returns the error that
// halted it, if any.
func (s *Scheduler) Wait() error {
	<-s.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

func (s *Scheduler) run(ctx context.Context, gen uint64, plan [][]model.CommandSpec, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	var (
		creds     session.Credentials
		haveCreds bool
		global    int
	)
	for bi, batch := range plan {
		if bi > 0 && !s.delay(ctx, stop, s.currentSettings().DelayBetweenBatches) {
			s.finish(gen, StatusIdle, ctx.Err())
			return
		}
		if !s.checkpoint(ctx, gen, stop) {
			s.finish(gen, StatusIdle, ctx.Err())
			return
		}
		s.mu.Lock()
		if s.gen == gen {
			s.curBatch = bi + 1
		}
		s.mu.Unlock()
		s.emit(gen, Event{Type: EventBatchStarted, BatchIndex: bi + 1, BatchTotal: len(plan), Batch: batch})

		for ci, spec := range batch {
			if ci > 0 && !s.delay(ctx, stop, s.currentSettings().DelayBetweenCommands) {
				s.finish(gen, StatusIdle, ctx.Err())
				return
			}
			if !s.checkpoint(ctx, gen, stop) {
				s.finish(gen, StatusIdle, ctx.Err())
				return
			}

			if !haveCreds || !s.creds.IsValid(creds) {
				fresh, err := s.creds.Acquire(ctx)
				if err != nil {
					s.finish(gen, StatusError, sessionErr(err))
					return
				}
				if haveCreds {
					s.emit(gen, Event{Type: EventSessionRefreshed})
				}
				creds, haveCreds = fresh, true
			}

			res, err := s.dispatch(ctx, gen, &creds, spec)
			res.BatchIndex, res.GlobalIndex = bi, global
			global++
			s.record(gen, res)
			s.emit(gen, Event{Type: EventProgress, BatchIndex: bi + 1, BatchTotal: len(plan), Result: &res})

			if err != nil {
				s.finish(gen, StatusError, err)
				return
			}
			if !res.Success && res.Critical && !s.currentSettings().SkipOnError {
				s.finish(gen, StatusError, apperrors.New(apperrors.CriticalCommand,
					fmt.Sprintf("critical command %s failed: %s", res.Command, res.Error)))
				return
			}
		}
	}
	s.finish(gen, StatusCompleted, nil)
}

// dispatch sends one command, re-acquiring the session once if the server
// rejects it. The returned error is non-nil only when re-acquisition fails.
func (s *Scheduler) dispatch(ctx context.Context, gen uint64, creds *session.Credentials, spec model.CommandSpec) (model.CommandResult, error) {
	res := s.send(ctx, *creds, spec.Command)
	if !res.Success && res.ErrorKind == apperrors.SessionExpired {
		s.log.Info("session rejected, re-acquiring", zap.String("command", spec.Command))
		s.creds.Invalidate()
		fresh, err := s.creds.Acquire(ctx)
		if err != nil {
			return s.annotate(res, spec), sessionErr(err)
		}
		*creds = fresh
		s.emit(gen, Event{Type: EventSessionRefreshed})
		attempts := res.Attempts
		res = s.send(ctx, fresh, spec.Command)
		res.Attempts += attempts
	}
	return s.annotate(res, spec), nil
}

func (s *Scheduler) send(ctx context.Context, creds session.Credentials, command string) model.CommandResult {
	cmdCtx, cancel := context.WithTimeout(ctx, s.currentSettings().TimeoutPerCommand)
	defer cancel()
	return s.gw.SendCommand(cmdCtx, creds, command)
}

func (s *Scheduler) annotate(res model.CommandResult, spec model.CommandSpec) model.CommandResult {
	res.Command = spec.Command
	res.Category = spec.Category
	res.Priority = spec.Priority
	res.Critical = spec.Critical
	if res.Timestamp.IsZero() {
		res.Timestamp = s.now()
	}
	if res.Success {
		parsed := classifier.Parse(res.ResponseText, spec.Command)
		res.Parsed = &parsed
	}
	return res
}

// record appends res to the run identified by gen. Results of a run that has
// been replaced by a newer Start are dropped.
func (s *Scheduler) record(gen uint64, res model.CommandResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.log.Debug("dropping result of a replaced run", zap.String("command", res.Command))
		return
	}
	s.results = append(s.results, res)
	s.curIndex = len(s.results)
	if res.Success {
		s.successful++
	}
}

// checkpoint returns false when the run must end. A paused run blocks here
// until Resume, Stop or context cancellation.
func (s *Scheduler) checkpoint(ctx context.Context, gen uint64, stop <-chan struct{}) bool {
	paused := false
	for {
		select {
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		default:
		}
		s.mu.Lock()
		gate := s.gate
		s.mu.Unlock()
		if gate == nil {
			if paused {
				s.emit(gen, Event{Type: EventResumed})
			}
			return true
		}
		if !paused {
			paused = true
			s.emit(gen, Event{Type: EventPaused})
		}
		select {
		case <-gate:
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// delay waits d unless the run is stopped first.
func (s *Scheduler) delay(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Scheduler) finish(gen uint64, status Status, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Debug("replaced run exited", zap.String("status", string(status)))
		return
	}
	if s.stopping || status == StatusIdle {
		status = StatusIdle
		if err != nil && apperrors.KindOf(err) == "" {
			// Context cancellation is a stop, not a failure.
			err = nil
		}
	}
	s.status = status
	s.endTime = s.now()
	s.runErr = err
	s.gate = nil
	s.report = buildReport(s.runID, status, s.startTime, s.endTime, s.runSettingsLocked(), s.total, s.results, err)
	rep := s.report
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", rep.RunID),
		zap.String("status", string(status)),
		zap.Int("processed", rep.Summary.ProcessedCommands),
		zap.Int("failed", rep.Summary.FailedCommands),
	}
	switch status {
	case StatusCompleted:
		s.log.Info("run completed", fields...)
		s.emit(gen, Event{Type: EventCompleted, Report: rep})
	case StatusError:
		s.log.Error("run halted", append(fields, zap.Error(err))...)
		s.emit(gen, Event{Type: EventError, Report: rep, Err: err})
	default:
		s.log.Info("run stopped", fields...)
		s.emit(gen, Event{Type: EventStopped, Report: rep})
	}
}

// emit delivers ev unless the run identified by gen has been replaced.
func (s *Scheduler) emit(gen uint64, ev Event) {
	if s.onEvent == nil {
		return
	}
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	ev.State = s.stateLocked()
	s.mu.Unlock()
	s.onEvent(ev)
}

func (s *Scheduler) currentSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Scheduler) tuneRetries(settings Settings) {
	t, ok := s.gw.(RetryTuner)
	if !ok || settings.MaxRetries <= 0 {
		return
	}
	t.SetRetryPolicy(settings.MaxRetries, settings.RetryDelay)
}

// runSettingsLocked is the pending settings with the batch size the current
// plan was cut with.
func (s *Scheduler) runSettingsLocked() Settings {
	settings := s.settings
	if s.batchSize > 0 {
		settings.BatchSize = s.batchSize
	}
	return settings
}

func (s *Scheduler) stateLocked() State {
	elapsed := time.Duration(0)
	if !s.startTime.IsZero() {
		end := s.endTime
		if end.IsZero() {
			end = s.now()
		}
		elapsed = end.Sub(s.startTime)
	}
	return State{
		Status:       s.status,
		RunID:        s.runID,
		CurrentIndex: s.curIndex,
		Total:        s.total,
		CurrentBatch: s.curBatch,
		TotalBatches: s.batches,
		Statistics:   computeStats(len(s.results), s.successful, s.total, elapsed),
		Settings:     s.runSettingsLocked(),
	}
}

func sessionErr(err error) error {
	if apperrors.IsKind(err, apperrors.SessionAcquisition) {
		return err
	}
	return apperrors.Wrap(apperrors.SessionAcquisition, "re-acquire session", err)
}
