// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "hextract/cli/internal/errors"
)

// Strategy extracts candidate credentials from one source.
// A zero Credentials value with a nil error means the source had nothing.
type Strategy interface {
	Name() string
	Extract(ctx context.Context) (Credentials, error)
}

// Options configures a Provider.
type Options struct {
	TTL      time.Duration
	Defaults Defaults
	// Store, when set, receives the last good credentials after every acquisition.
	Store  Store
	Logger *zap.Logger
	Now    func() time.Time
}

// Provider is the single owner of the current credentials.
type Provider struct {
	strategies []Strategy
	ttl        time.Duration
	defaults   Defaults
	store      Store
	log        *zap.Logger
	now        func() time.Time

	mu      sync.RWMutex
	current *Credentials

	flight singleflight.Group
}

// NewProvider builds a Provider that tries strategies in the given order.
func NewProvider(strategies []Strategy, opts Options) *Provider {
	p := &Provider{
		strategies: strategies,
		ttl:        opts.TTL,
		defaults:   opts.Defaults,
		store:      opts.Store,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if p.ttl <= 0 {
		p.ttl = DefaultTTL
	}
	if p.defaults == (Defaults{}) {
		p.defaults = DefaultDefaults()
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Acquire returns the cached credentials while they are valid; otherwise it runs
// the strategy chain. Concurrent callers share a single chain run.
func (p *Provider) Acquire(ctx context.Context) (Credentials, error) {
	if c, ok := p.Current(); ok && p.IsValid(c) {
		return c, nil
	}
	v, err, _ := p.flight.Do("acquire", func() (interface{}, error) {
		if c, ok := p.Current(); ok && p.IsValid(c) {
			return c, nil
		}
		c, err := p.runChain(ctx)
		if err != nil {
			return Credentials{}, err
		}
		p.mu.Lock()
		p.current = &c
		p.mu.Unlock()
		p.persist(c)
		return c, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

// IsValid checks identifier presence and the freshness window.
func (p *Provider) IsValid(c Credentials) bool {
	if !c.Plausible() || c.AcquiredAt.IsZero() {
		return false
	}
	return p.now().Sub(c.AcquiredAt) < p.ttl
}

// Invalidate drops the cached and persisted credentials so the next Acquire
// re-runs every strategy.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	if p.store != nil {
		if err := p.store.ClearCredentials(); err != nil {
			p.log.Debug("clear persisted credentials", zap.Error(err))
		}
	}
}

// Current returns the cached credentials without validating them.
func (p *Provider) Current() (Credentials, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Credentials{}, false
	}
	return *p.current, true
}

func (p *Provider) runChain(ctx context.Context) (Credentials, error) {
	var (
		tried []string
		errs  []error
	)
	for _, s := range p.strategies {
		if err := ctx.Err(); err != nil {
			return Credentials{}, apperrors.Wrap(apperrors.SessionAcquisition, "acquisition cancelled", err)
		}
		tried = append(tried, s.Name())
		c, err := s.Extract(ctx)
		if err != nil {
			p.log.Debug("session strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if !c.Plausible() {
			p.log.Debug("session strategy yielded no identifiers", zap.String("strategy", s.Name()))
			continue
		}
		if !c.AcquiredAt.IsZero() && p.now().Sub(c.AcquiredAt) >= p.ttl {
			p.log.Debug("session strategy yielded stale credentials",
				zap.String("strategy", s.Name()), zap.Time("acquired_at", c.AcquiredAt))
			continue
		}
		if c.AcquiredAt.IsZero() {
			c.AcquiredAt = p.now()
		}
		c.Source = s.Name()
		c = p.defaults.apply(c)
		p.log.Info("session acquired", zap.String("strategy", s.Name()), zap.String("office_id", c.OfficeID))
		return c, nil
	}
	msg := "no strategy yielded a session id or context id"
	if len(tried) > 0 {
		msg += " (tried " + strings.Join(tried, ", ") + ")"
	}
	return Credentials{}, apperrors.Wrap(apperrors.SessionAcquisition, msg, errors.Join(errs...))
}

func (p *Provider) persist(c Credentials) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveCredentials(c); err != nil {
		p.log.Warn("persist credentials", zap.Error(err))
	}
}
