// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hextract/cli/internal/errors"
)

type fakeStrategy struct {
	name  string
	creds Credentials
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(ctx context.Context) (Credentials, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.creds, f.err
}

type memStore struct {
	mu    sync.Mutex
	saved *Credentials
}

func (m *memStore) SaveCredentials(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &c
	return nil
}

func (m *memStore) LoadCredentials() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return Credentials{}, ErrNotStored
	}
	return *m.saved, nil
}

func (m *memStore) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = nil
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock { return &clock{now: time.Date(2025, 3, 12, 15, 45, 0, 0, time.UTC)} }

func TestAcquireFirstPlausibleCandidateWins(t *testing.T) {
	clk := newClock()
	empty := &fakeStrategy{name: "intercepted"}
	broken := &fakeStrategy{name: "dom", err: errors.New("page detached")}
	winner := &fakeStrategy{name: "script", creds: Credentials{SessionID: "S1", OfficeID: "PARAF0100"}}
	later := &fakeStrategy{name: "storage", creds: Credentials{SessionID: "S2", ContextID: "C2"}}

	p := NewProvider([]Strategy{empty, broken, winner, later}, Options{Now: clk.Now})
	c, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "S1", c.SessionID)
	assert.Empty(t, c.ContextID, "candidates are never merged")
	assert.Equal(t, "script", c.Source)
	assert.Equal(t, "PARAF0100", c.OfficeID)
	assert.Equal(t, "SV", c.Organization)
	assert.Equal(t, "AMADEUS", c.GDSCode)
	assert.Equal(t, "UNKNOWN", c.UserID)
	assert.Equal(t, "SITE_JCPCRYPTIC_PROHIBITED_COMMANDS_LIST_1", c.ProhibitedListID)
	assert.Equal(t, clk.Now(), c.AcquiredAt)
	assert.Equal(t, int32(0), later.calls.Load())
}

func TestAcquireRejectsCandidatesWithoutIdentifiers(t *testing.T) {
	p := NewProvider([]Strategy{
		&fakeStrategy{name: "dom", creds: Credentials{UserID: "AGENT1", OfficeID: "RUHSV0401"}},
		&fakeStrategy{name: "storage", creds: Credentials{Organization: "SV"}},
	}, Options{})

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.SessionAcquisition))
	assert.Contains(t, err.Error(), "dom, storage")
}

func TestAcquireCachesUntilInvalidated(t *testing.T) {
	s := &fakeStrategy{name: "static", creds: Credentials{ContextID: "CTX"}}
	store := &memStore{}
	p := NewProvider([]Strategy{s}, Options{Store: store})

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), s.calls.Load())

	saved, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "CTX", saved.ContextID)

	p.Invalidate()
	_, ok := p.Current()
	assert.False(t, ok)
	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotStored)

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestFreshnessWindow(t *testing.T) {
	clk := newClock()
	s := &fakeStrategy{name: "static", creds: Credentials{SessionID: "S"}}
	p := NewProvider([]Strategy{s}, Options{Now: clk.Now})

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsValid(c))

	clk.Advance(59 * time.Minute)
	assert.True(t, p.IsValid(c))

	clk.Advance(2 * time.Minute)
	assert.False(t, p.IsValid(c))

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestIsValidRequiresIdentifier(t *testing.T) {
	clk := newClock()
	p := NewProvider(nil, Options{Now: clk.Now})
	assert.False(t, p.IsValid(Credentials{UserID: "U", AcquiredAt: clk.Now()}))
	assert.False(t, p.IsValid(Credentials{SessionID: "S"}))
	assert.True(t, p.IsValid(Credentials{ContextID: "C", AcquiredAt: clk.Now()}))
}

func TestStaleStoredCandidateIsSkipped(t *testing.T) {
	clk := newClock()
	store := &memStore{}
	require.NoError(t, store.SaveCredentials(Credentials{SessionID: "OLD", AcquiredAt: clk.Now().Add(-2 * time.Hour)}))

	fresh := &fakeStrategy{name: "static", creds: Credentials{SessionID: "NEW"}}
	p := NewProvider([]Strategy{StoredStrategy{Store: store}, fresh}, Options{Now: clk.Now})

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NEW", c.SessionID)
}

func TestConcurrentAcquireRunsChainOnce(t *testing.T) {
	s := &fakeStrategy{name: "slow", creds: Credentials{SessionID: "S"}, gate: make(chan struct{})}
	p := NewProvider([]Strategy{s}, Options{})

	var wg sync.WaitGroup
	results := make([]Credentials, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Acquire(context.Background())
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	assert.Equal(t, int32(1), s.calls.Load())
	for _, c := range results {
		assert.Equal(t, "S", c.SessionID)
	}
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProvider([]Strategy{&fakeStrategy{name: "static", creds: Credentials{SessionID: "S"}}}, Options{})
	_, err := p.Acquire(ctx)
	assert.True(t, apperrors.IsKind(err, apperrors.SessionAcquisition))
	assert.ErrorIs(t, err, context.Canceled)
}
