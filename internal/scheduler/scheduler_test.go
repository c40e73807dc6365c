// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/gateway"
	"hextract/cli/internal/model"
	"hextract/cli/internal/session"
)

type fakeGateway struct {
	mu       sync.Mutex
	calls    []string
	sessions []string
	respond  func(ctx context.Context, cmd string, call int) model.CommandResult

	maxRetries int
	retryDelay time.Duration
}

func (g *fakeGateway) SendCommand(ctx context.Context, creds session.Credentials, cmd string) model.CommandResult {
	g.mu.Lock()
	g.calls = append(g.calls, cmd)
	g.sessions = append(g.sessions, creds.SessionID)
	call := len(g.calls)
	fn := g.respond
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, cmd, call)
	}
	return okResult(cmd)
}

func (g *fakeGateway) SetRetryPolicy(maxRetries int, delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxRetries, g.retryDelay = maxRetries, delay
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) Sessions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sessions...)
}

func okResult(cmd string) model.CommandResult {
	return model.CommandResult{
		Command:      cmd,
		Success:      true,
		ResponseText: "/HE " + cmd + "\nNOTE: SEE MS106 FOR FORMAT",
		ResponseType: model.ResponseUnknown,
		Attempts:     1,
	}
}

func failResult(cmd string, kind apperrors.Kind) model.CommandResult {
	return model.CommandResult{Command: cmd, Error: string(kind) + ": boom", ErrorKind: kind, Attempts: 1}
}

type fakeCreds struct {
	acquired    atomic.Int32
	invalidated atomic.Int32
	checks      atomic.Int32
	err         error

	// firstValidChecks, when positive, makes the first session ("s1") report
	// invalid after that many IsValid calls.
	firstValidChecks int32
}

func (f *fakeCreds) Acquire(context.Context) (session.Credentials, error) {
	n := f.acquired.Add(1)
	if f.err != nil {
		return session.Credentials{}, f.err
	}
	return session.Credentials{SessionID: fmt.Sprintf("s%d", n), AcquiredAt: time.Now()}, nil
}

func (f *fakeCreds) IsValid(c session.Credentials) bool {
	n := f.checks.Add(1)
	if f.firstValidChecks > 0 && c.SessionID == "s1" && n > f.firstValidChecks {
		return false
	}
	return c.SessionID != ""
}

func (f *fakeCreds) Invalidate() { f.invalidated.Add(1) }

type recorder struct {
	ch chan Event
}

func newRecorder() *recorder { return &recorder{ch: make(chan Event, 512)} }

func (r *recorder) handle(ev Event) { r.ch <- ev }

// next waits for the next event of type t, skipping others.
func (r *recorder) next(t *testing.T, typ EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
			return Event{}
		}
	}
}

// drain returns every buffered event. Call after Wait.
func (r *recorder) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-r.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func count(evs []Event, typ EventType) int {
	n := 0
	for _, ev := range evs {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func catalogOf(n int) []model.CommandSpec {
	specs := make([]model.CommandSpec, n)
	for i := range specs {
		specs[i] = model.CommandSpec{Command: fmt.Sprintf("HE C%02d", i), Category: "test", Priority: model.PriorityMedium}
	}
	return specs
}

func fastSettings(batch int) Settings {
	s := DefaultSettings()
	s.BatchSize = batch
	s.DelayBetweenCommands = 0
	s.DelayBetweenBatches = 0
	return s
}

func commandsOf(results []model.CommandResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Command
	}
	return out
}

func TestPlan_Batches(t *testing.T) {
	batches := Plan(catalogOf(23), 5)
	require.Len(t, batches, 5)
	for i := 0; i < 4; i++ {
		assert.Len(t, batches[i], 5)
	}
	assert.Len(t, batches[4], 3)

	assert.Len(t, Plan(catalogOf(3), 0), 1, "zero size uses the default")
	assert.Empty(t, Plan(nil, 5))
}

func TestSortByPriority(t *testing.T) {
	in := []model.CommandSpec{
		{Command: "L1", Priority: model.PriorityLow},
		{Command: "H1", Priority: model.PriorityHigh},
		{Command: "M1", Priority: model.PriorityMedium},
		{Command: "H2", Priority: model.PriorityHigh},
	}
	out := SortByPriority(in)
	assert.Equal(t, []string{"H1", "H2", "M1", "L1"}, []string{out[0].Command, out[1].Command, out[2].Command, out[3].Command})
	assert.Equal(t, "L1", in[0].Command, "input is not reordered")
}

func TestRun_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := &fakeGateway{}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})

	catalog := []model.CommandSpec{
		{Command: "HE HELP", Category: "general", Priority: model.PriorityLow},
		{Command: "HE AN", Category: "availability", Priority: model.PriorityHigh},
	}
	require.NoError(t, s.Start(context.Background(), catalog, fastSettings(1)))
	require.NoError(t, s.Wait())

	rep := s.Report()
	assert.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 2, rep.Summary.TotalCommands)
	assert.Equal(t, 2, rep.Summary.ProcessedCommands)
	assert.Equal(t, 2, rep.Summary.SuccessfulCommands)
	assert.Equal(t, float64(100), rep.Summary.SuccessRate)
	assert.Equal(t, []string{"HE AN", "HE HELP"}, commandsOf(rep.Results))
	assert.Empty(t, rep.Errors)
	assert.NotEmpty(t, rep.RunID)

	assert.Equal(t, 1, rep.PriorityBreakdown[model.PriorityHigh].Total)
	assert.Equal(t, 1, rep.PriorityBreakdown[model.PriorityLow].Successful)
	assert.Equal(t, []string{"HE AN"}, rep.CategoryBreakdown["availability"].Commands)

	first := rep.Results[0]
	assert.Equal(t, 0, first.BatchIndex)
	assert.Equal(t, 0, first.GlobalIndex)
	assert.Equal(t, 1, rep.Results[1].BatchIndex)
	require.NotNil(t, first.Parsed, "successful results are classified")
	assert.Equal(t, []string{"MS106"}, first.Parsed.References)

	evs := rec.drain()
	assert.Equal(t, 2, count(evs, EventBatchStarted))
	assert.Equal(t, 2, count(evs, EventProgress))
	assert.Equal(t, 1, count(evs, EventCompleted))
	assert.Equal(t, EventCompleted, evs[len(evs)-1].Type)
	assert.Same(t, rep, evs[len(evs)-1].Report)
}

func TestRun_TwentyThreeCommands(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	s := New(&fakeGateway{}, &fakeCreds{}, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(23), fastSettings(5)))
	require.NoError(t, s.Wait())

	evs := rec.drain()
	var sizes []int
	for _, ev := range evs {
		if ev.Type == EventBatchStarted {
			sizes = append(sizes, len(ev.Batch))
			assert.Equal(t, 5, ev.BatchTotal)
		}
	}
	assert.Equal(t, []int{5, 5, 5, 5, 3}, sizes)

	st := s.Status()
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 23, st.Statistics.Processed)
	assert.Equal(t, 23, st.CurrentIndex)
	assert.Equal(t, 5, st.TotalBatches)
	assert.Equal(t, 23, s.Report().Summary.ProcessedCommands)
}

func TestRun_PriorityOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := &fakeGateway{}
	s := New(gw, &fakeCreds{}, Options{})
	catalog := []model.CommandSpec{
		{Command: "LOW", Priority: model.PriorityLow},
		{Command: "HIGH", Priority: model.PriorityHigh},
		{Command: "MEDIUM", Priority: model.PriorityMedium},
	}
	require.NoError(t, s.Start(context.Background(), catalog, fastSettings(5)))
	require.NoError(t, s.Wait())
	assert.Equal(t, []string{"HIGH", "MEDIUM", "LOW"}, gw.Calls())
}

func TestPauseResume_SameResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	baseline := New(&fakeGateway{}, &fakeCreds{}, Options{})
	require.NoError(t, baseline.Start(context.Background(), catalogOf(12), fastSettings(4)))
	require.NoError(t, baseline.Wait())

	reached := make(chan struct{})
	proceed := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, call int) model.CommandResult {
		if call == 6 {
			close(reached)
			<-proceed
		}
		return okResult(cmd)
	}}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(12), fastSettings(4)))

	<-reached
	s.Pause()
	assert.Equal(t, StatusPaused, s.Status().Status)
	close(proceed)

	rec.next(t, EventPaused)
	assert.Len(t, gw.Calls(), 6, "nothing is dispatched while paused")
	assert.Len(t, s.Results(), 6, "the in-flight command is recorded")

	s.Resume()
	rec.next(t, EventResumed)
	require.NoError(t, s.Wait())

	assert.Equal(t, StatusCompleted, s.Status().Status)
	assert.Equal(t, commandsOf(baseline.Results()), commandsOf(s.Results()))
}

func TestStop_AfterK(t *testing.T) {
	defer goleak.VerifyNone(t)

	const k = 3
	called := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, _ int) model.CommandResult {
		called <- struct{}{}
		<-release
		return okResult(cmd)
	}}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(10), fastSettings(5)))

	for i := 0; i < k; i++ {
		<-called
		if i == k-1 {
			s.Stop()
			assert.Equal(t, StatusIdle, s.Status().Status, "stop is immediate")
		}
		release <- struct{}{}
	}
	require.NoError(t, s.Wait())

	assert.Len(t, s.Results(), k)
	assert.Len(t, gw.Calls(), k)
	rep := s.Report()
	assert.Equal(t, StatusIdle, rep.Status)
	assert.Equal(t, k, rep.Summary.ProcessedCommands)
	assert.Equal(t, 10, rep.Summary.TotalCommands)

	evs := rec.drain()
	assert.Equal(t, 1, count(evs, EventStopped))
	assert.Zero(t, count(evs, EventCompleted))
}

func TestStop_WhilePaused(t *testing.T) {
	defer goleak.VerifyNone(t)

	reached := make(chan struct{})
	proceed := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, call int) model.CommandResult {
		if call == 1 {
			close(reached)
			<-proceed
		}
		return okResult(cmd)
	}}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(4), fastSettings(2)))

	<-reached
	s.Pause()
	close(proceed)
	rec.next(t, EventPaused)

	s.Stop()
	require.NoError(t, s.Wait())
	assert.Equal(t, StatusIdle, s.Status().Status)
	assert.Len(t, s.Results(), 1)
}

func TestStop_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, call int) model.CommandResult {
		if call == 2 {
			cancel()
		}
		return okResult(cmd)
	}}
	s := New(gw, &fakeCreds{}, Options{})
	require.NoError(t, s.Start(ctx, catalogOf(5), fastSettings(5)))
	require.NoError(t, s.Wait())
	assert.Equal(t, StatusIdle, s.Status().Status)
	assert.Len(t, s.Results(), 2)
}

func TestStart_AlreadyRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, _ int) model.CommandResult {
		<-release
		return okResult(cmd)
	}}
	s := New(gw, &fakeCreds{}, Options{})
	require.NoError(t, s.Start(context.Background(), catalogOf(1), fastSettings(1)))
	assert.ErrorIs(t, s.Start(context.Background(), catalogOf(1), fastSettings(1)), ErrAlreadyRunning)
	close(release)
	require.NoError(t, s.Wait())

	require.NoError(t, s.Start(context.Background(), catalogOf(2), fastSettings(1)), "a finished scheduler can start again")
	require.NoError(t, s.Wait())
	assert.Len(t, s.Results(), 2)
}

func TestStart_AfterStopDetachesStoppedRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	oldCalled := make(chan struct{})
	releaseOld := make(chan struct{})
	releaseNew := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, _ int) model.CommandResult {
		switch cmd {
		case "OLD":
			close(oldCalled)
			<-releaseOld
		case "HE C01":
			<-releaseNew
		}
		return okResult(cmd)
	}}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})

	require.NoError(t, s.Start(context.Background(), []model.CommandSpec{{Command: "OLD"}}, fastSettings(1)))
	<-oldCalled
	oldDone := s.Done()
	s.Stop()

	require.NoError(t, s.Start(context.Background(), catalogOf(3), fastSettings(5)))
	close(releaseOld)
	<-oldDone

	assert.Equal(t, StatusRunning, s.Status().Status, "the stopped run does not finish the new one")
	assert.NotContains(t, commandsOf(s.Results()), "OLD")
	assert.ErrorIs(t, s.Start(context.Background(), catalogOf(1), fastSettings(1)), ErrAlreadyRunning)

	s.Pause()
	assert.Equal(t, StatusPaused, s.Status().Status)
	s.Resume()

	close(releaseNew)
	require.NoError(t, s.Wait())

	rep := s.Report()
	assert.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, []string{"HE C00", "HE C01", "HE C02"}, commandsOf(rep.Results))
	assert.Equal(t, 3, rep.Summary.TotalCommands)
	assert.Equal(t, 3, rep.Summary.ProcessedCommands)

	evs := rec.drain()
	assert.Zero(t, count(evs, EventStopped), "events of the replaced run are dropped")
	assert.Equal(t, 1, count(evs, EventCompleted))
	for _, ev := range evs {
		if ev.Result != nil {
			assert.NotEqual(t, "OLD", ev.Result.Command)
		}
	}
}

func TestFailures(t *testing.T) {
	catalog := []model.CommandSpec{
		{Command: "HE AN", Priority: model.PriorityHigh, Critical: true},
		{Command: "HE SS", Priority: model.PriorityMedium},
		{Command: "HE FXP", Priority: model.PriorityMedium},
	}
	failAN := func(_ context.Context, cmd string, _ int) model.CommandResult {
		if cmd == "HE AN" {
			return failResult(cmd, apperrors.Network)
		}
		return okResult(cmd)
	}

	t.Run("critical halts when errors are not skipped", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		gw := &fakeGateway{respond: failAN}
		rec := newRecorder()
		s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})
		settings := fastSettings(5)
		settings.SkipOnError = false
		require.NoError(t, s.Start(context.Background(), catalog, settings))

		err := s.Wait()
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.CriticalCommand))
		assert.Equal(t, StatusError, s.Status().Status)
		assert.Equal(t, []string{"HE AN"}, gw.Calls())

		rep := s.Report()
		require.Len(t, rep.Results, 1, "partial results are kept")
		assert.True(t, rep.Results[0].Critical)
		assert.NotEmpty(t, rep.Halt)
		ev := rec.next(t, EventError)
		assert.Equal(t, err, ev.Err)
	})

	t.Run("critical is recorded when errors are skipped", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		s := New(&fakeGateway{respond: failAN}, &fakeCreds{}, Options{})
		require.NoError(t, s.Start(context.Background(), catalog, fastSettings(5)))
		require.NoError(t, s.Wait())

		rep := s.Report()
		assert.Equal(t, StatusCompleted, rep.Status)
		assert.Equal(t, 1, rep.Summary.FailedCommands)
		require.Len(t, rep.Errors, 1)
		assert.Equal(t, apperrors.Network, rep.Errors[0].Kind)
		assert.Equal(t, "HE AN", rep.Errors[0].Command)
	})

	t.Run("non-critical failure never halts", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		plain := []model.CommandSpec{{Command: "HE AN"}, {Command: "HE SS"}}
		s := New(&fakeGateway{respond: failAN}, &fakeCreds{}, Options{})
		settings := fastSettings(5)
		settings.SkipOnError = false
		require.NoError(t, s.Start(context.Background(), plain, settings))
		require.NoError(t, s.Wait())
		assert.Equal(t, StatusCompleted, s.Status().Status)
		assert.Len(t, s.Results(), 2)
		assert.Nil(t, s.Results()[0].Parsed)
	})
}

func TestSessionExpired_ReacquiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := &fakeGateway{respond: func(_ context.Context, cmd string, call int) model.CommandResult {
		if call == 1 {
			return failResult(cmd, apperrors.SessionExpired)
		}
		return okResult(cmd)
	}}
	creds := &fakeCreds{}
	rec := newRecorder()
	s := New(gw, creds, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(2), fastSettings(5)))
	require.NoError(t, s.Wait())

	assert.Equal(t, int32(2), creds.acquired.Load())
	assert.Equal(t, int32(1), creds.invalidated.Load())
	results := s.Results()
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Equal(t, []string{"HE C00", "HE C00", "HE C01"}, gw.Calls())
	assert.Equal(t, 1, count(rec.drain(), EventSessionRefreshed))
}

func TestRun_ReacquiresWhenCredentialsGoStale(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := &fakeGateway{}
	creds := &fakeCreds{firstValidChecks: 1}
	rec := newRecorder()
	s := New(gw, creds, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(4), fastSettings(5)))
	require.NoError(t, s.Wait())

	assert.Equal(t, int32(2), creds.acquired.Load(), "one initial and one refreshed acquisition")
	assert.Zero(t, creds.invalidated.Load())
	assert.Equal(t, []string{"s1", "s1", "s2", "s2"}, gw.Sessions())
	assert.Len(t, s.Results(), 4)

	evs := rec.drain()
	require.Equal(t, 1, count(evs, EventSessionRefreshed))
	var order []EventType
	for _, ev := range evs {
		if ev.Type == EventSessionRefreshed || ev.Type == EventProgress {
			order = append(order, ev.Type)
		}
	}
	assert.Equal(t, []EventType{EventProgress, EventProgress, EventSessionRefreshed, EventProgress, EventProgress}, order)
}

func TestSessionAcquisitionFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := &fakeGateway{}
	creds := &fakeCreds{err: apperrors.New(apperrors.SessionAcquisition, "no strategy produced credentials")}
	s := New(gw, creds, Options{})
	require.NoError(t, s.Start(context.Background(), catalogOf(3), fastSettings(5)))

	err := s.Wait()
	assert.True(t, apperrors.IsKind(err, apperrors.SessionAcquisition))
	assert.Equal(t, StatusError, s.Status().Status)
	assert.Empty(t, gw.Calls())
}

func TestUpdateSettings(t *testing.T) {
	gw := &fakeGateway{}
	s := New(gw, &fakeCreds{}, Options{})

	delay := 250 * time.Millisecond
	retries := 5
	updated := s.UpdateSettings(SettingsPatch{DelayBetweenCommands: &delay, MaxRetries: &retries})
	assert.Equal(t, delay, updated.DelayBetweenCommands)
	assert.Equal(t, DefaultBatchSize, updated.BatchSize)
	assert.Equal(t, updated, s.Status().Settings)
	assert.Equal(t, 5, gw.maxRetries, "retry changes reach the gateway")

	zero := 0
	assert.Equal(t, DefaultBatchSize, s.UpdateSettings(SettingsPatch{BatchSize: &zero}).BatchSize)
}

func TestUpdateSettings_BatchSizeWaitsForNextRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	reached := make(chan struct{})
	proceed := make(chan struct{})
	gw := &fakeGateway{respond: func(_ context.Context, cmd string, call int) model.CommandResult {
		if call == 1 {
			close(reached)
			<-proceed
		}
		return okResult(cmd)
	}}
	rec := newRecorder()
	s := New(gw, &fakeCreds{}, Options{OnEvent: rec.handle})
	require.NoError(t, s.Start(context.Background(), catalogOf(4), fastSettings(2)))

	<-reached
	size := 3
	pending := s.UpdateSettings(SettingsPatch{BatchSize: &size})
	assert.Equal(t, 3, pending.BatchSize)
	assert.Equal(t, 2, s.Status().Settings.BatchSize, "the running plan keeps its batch size")
	close(proceed)
	require.NoError(t, s.Wait())

	assert.Equal(t, 2, s.Report().Settings.BatchSize)
	assert.Equal(t, 2, count(rec.drain(), EventBatchStarted))
}

func TestDiff(t *testing.T) {
	from := DefaultSettings()
	to := from
	assert.True(t, Diff(from, to).IsEmpty())

	to.SkipOnError = false
	to.DelayBetweenBatches = 5 * time.Second
	p := Diff(from, to)
	require.NotNil(t, p.SkipOnError)
	require.NotNil(t, p.DelayBetweenBatches)
	assert.Nil(t, p.BatchSize)
	assert.Equal(t, to, p.Apply(from))
}

func TestRun_CommandTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	gw := gateway.New(gateway.Options{
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		HTTPClient: &http.Client{Transport: tr},
	})
	s := New(gw, &fakeCreds{}, Options{})
	settings := fastSettings(1)
	settings.TimeoutPerCommand = 50 * time.Millisecond
	settings.MaxRetries = 3
	settings.RetryDelay = time.Millisecond
	require.NoError(t, s.Start(context.Background(), catalogOf(1), settings))
	require.NoError(t, s.Wait())

	results := s.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, apperrors.CommandTimeout, results[0].ErrorKind)
	assert.LessOrEqual(t, results[0].Attempts, 3)
	assert.GreaterOrEqual(t, results[0].Attempts, 1)
}
