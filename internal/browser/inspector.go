// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package browser attaches to the user's Chrome over the DevTools protocol and
// exposes the page the session strategies read from: captured cryptic request
// bodies, script evaluation and cookies.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"hextract/cli/internal/session"
)

// DefaultMaxCaptured bounds the captured request buffer.
const DefaultMaxCaptured = 50

// ErrNoPage is returned when the browser has no open tab to inspect.
var ErrNoPage = errors.New("browser: no open page to inspect")

// Options configure Attach.
type Options struct {
	// DebuggerURL is the remote debugging endpoint of a running Chrome, e.g.
	// http://127.0.0.1:9222. When empty a new browser is launched.
	DebuggerURL string
	Headless    bool
	// StartURL is opened in a launched browser.
	StartURL string
	// PageMatch selects the tab whose URL contains it; the first tab otherwise.
	PageMatch string
	// CaptureMatch filters captured requests by URL substring.
	CaptureMatch string
	MaxCaptured  int
	Logger       *zap.Logger
}

// Inspector implements session.Page on top of a rod page.
type Inspector struct {
	browser  *rod.Browser
	page     *rod.Page
	launched bool
	log      *zap.Logger
	buf      *captureBuffer
	stop     context.CancelFunc
	done     chan struct{}
	pageURL  string
}

var _ session.Page = (*Inspector)(nil)

// Attach connects to Chrome, picks a page and starts capturing outgoing
// request bodies that match opts.CaptureMatch.
func Attach(ctx context.Context, opts Options) (*Inspector, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	controlURL, launched := "", false
	if opts.DebuggerURL != "" {
		u, err := launcher.ResolveURL(opts.DebuggerURL)
		if err != nil {
			return nil, fmt.Errorf("resolve debugger url: %w", err)
		}
		controlURL = u
	} else {
		u, err := launcher.New().Headless(opts.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL, launched = u, true
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	// Detach from the caller's context; Close ends the session.
	b = b.Context(context.Background())

	page, pageURL, err := pickPage(b, opts, launched)
	if err != nil {
		if launched {
			_ = b.Close()
		}
		return nil, err
	}

	size := opts.MaxCaptured
	if size <= 0 {
		size = DefaultMaxCaptured
	}
	captureCtx, cancel := context.WithCancel(context.Background())
	in := &Inspector{
		browser:  b,
		page:     page,
		launched: launched,
		log:      log,
		buf:      newCaptureBuffer(size),
		stop:     cancel,
		done:     make(chan struct{}),
		pageURL:  pageURL,
	}

	match := opts.CaptureMatch
	wait := page.Context(captureCtx).EachEvent(func(ev *proto.NetworkRequestWillBeSent) {
		if ev.Request == nil || ev.Request.PostData == "" {
			return
		}
		if match != "" && !strings.Contains(ev.Request.URL, match) {
			return
		}
		in.buf.add(session.CapturedRequest{URL: ev.Request.URL, Body: ev.Request.PostData, At: time.Now()})
		log.Debug("captured request", zap.String("url", ev.Request.URL))
	})
	go func() {
		defer close(in.done)
		wait()
	}()

	log.Info("attached to browser", zap.String("page", pageURL), zap.Bool("launched", launched))
	return in, nil
}

func pickPage(b *rod.Browser, opts Options, launched bool) (*rod.Page, string, error) {
	if launched {
		url := opts.StartURL
		if url == "" {
			url = "about:blank"
		}
		p, err := b.Page(proto.TargetCreateTarget{URL: url})
		if err != nil {
			return nil, "", fmt.Errorf("open page: %w", err)
		}
		return p, url, nil
	}

	pages, err := b.Pages()
	if err != nil {
		return nil, "", fmt.Errorf("list pages: %w", err)
	}
	var (
		first    *rod.Page
		firstURL string
	)
	for _, p := range pages {
		info, err := p.Info()
		if err != nil || info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		if first == nil {
			first, firstURL = p, info.URL
		}
		if opts.PageMatch != "" && strings.Contains(info.URL, opts.PageMatch) {
			return p, info.URL, nil
		}
	}
	if first == nil {
		return nil, "", ErrNoPage
	}
	return first, firstURL, nil
}

// PageURL is the URL of the inspected tab at attach time.
func (in *Inspector) PageURL() string { return in.pageURL }

// CapturedRequests returns the captured bodies, oldest first.
func (in *Inspector) CapturedRequests() []session.CapturedRequest { return in.buf.snapshot() }

// WaitForCapture blocks until at least one request has been captured or d elapses.
func (in *Inspector) WaitForCapture(ctx context.Context, d time.Duration) bool {
	return in.buf.wait(ctx, d)
}

// Evaluate runs js in the page and decodes the JSON result into out.
func (in *Inspector) Evaluate(ctx context.Context, js string, out any) error {
	if in.page == nil {
		return ErrNoPage
	}
	res, err := in.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Cookies returns the cookies visible to the inspected page.
func (in *Inspector) Cookies(ctx context.Context) ([]session.Cookie, error) {
	if in.page == nil {
		return nil, ErrNoPage
	}
	cookies, err := in.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, session.Cookie{Name: c.Name, Value: c.Value})
	}
	return out, nil
}

// Close stops capturing. A launched browser is shut down; an attached one is
// left running.
func (in *Inspector) Close() error {
	in.stop()
	<-in.done
	if in.launched {
		return in.browser.Close()
	}
	return nil
}

// captureBuffer keeps the newest max captured requests.
type captureBuffer struct {
	mu     sync.Mutex
	items  []session.CapturedRequest
	max    int
	notify chan struct{}
}

func newCaptureBuffer(size int) *captureBuffer {
	return &captureBuffer{max: size, notify: make(chan struct{})}
}

func (b *captureBuffer) add(r session.CapturedRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, r)
	if over := len(b.items) - b.max; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
	select {
	case <-b.notify:
	default:
		close(b.notify)
	}
}

func (b *captureBuffer) snapshot() []session.CapturedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]session.CapturedRequest(nil), b.items...)
}

func (b *captureBuffer) wait(ctx context.Context, d time.Duration) bool {
	b.mu.Lock()
	n, notify := len(b.items), b.notify
	b.mu.Unlock()
	if n > 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-notify:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}
