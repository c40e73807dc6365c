// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// CapturedRequest is an outgoing request body observed in the user's browser.
type CapturedRequest struct {
	URL  string
	Body string
	At   time.Time
}

// Page is the browser access needed by the page strategies.
type Page interface {
	CapturedRequests() []CapturedRequest
	// Evaluate runs a JS function expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, js string, out any) error
	Cookies(ctx context.Context) ([]Cookie, error)
}

// Pair is one name/value probe result, kept in page order.
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PageStrategies returns the browser strategies in acquisition order.
func PageStrategies(page Page, endpointMatch string) []Strategy {
	return []Strategy{
		InterceptedStrategy{Page: page, Match: endpointMatch},
		probeStrategy{name: "dom", page: page, js: domProbeJS},
		probeStrategy{name: "script", page: page, js: scriptProbeJS},
		probeStrategy{name: "storage", page: page, js: storageProbeJS},
	}
}

// InterceptedStrategy reads the newest captured cryptic request body.
type InterceptedStrategy struct {
	Page  Page
	Match string
}

func (InterceptedStrategy) Name() string { return "intercepted" }

type interceptedBody struct {
	JSessionID   string `json:"jSessionId"`
	SessionID    string `json:"sessionId"`
	ContextID    string `json:"contextId"`
	UserID       string `json:"userId"`
	Organization string `json:"organization"`
	OfficeID     string `json:"officeId"`
	GDS          string `json:"gds"`
}

func (s InterceptedStrategy) Extract(ctx context.Context) (Credentials, error) {
	reqs := s.Page.CapturedRequests()
	for i := len(reqs) - 1; i >= 0; i-- {
		r := reqs[i]
		if s.Match != "" && !strings.Contains(r.URL, s.Match) {
			continue
		}
		var body interceptedBody
		if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
			continue
		}
		c := Credentials{
			SessionID:    firstNonEmpty(body.JSessionID, body.SessionID),
			ContextID:    body.ContextID,
			UserID:       body.UserID,
			Organization: body.Organization,
			OfficeID:     body.OfficeID,
			GDSCode:      body.GDS,
		}
		if c.Plausible() {
			return withCookies(ctx, s.Page, c), nil
		}
	}
	return Credentials{}, nil
}

// probeStrategy evaluates a JS probe returning name/value pairs.
type probeStrategy struct {
	name string
	page Page
	js   string
}

func (s probeStrategy) Name() string { return s.name }

func (s probeStrategy) Extract(ctx context.Context) (Credentials, error) {
	var pairs []Pair
	if err := s.page.Evaluate(ctx, s.js, &pairs); err != nil {
		return Credentials{}, err
	}
	c := FromPairs(pairs)
	if !c.Plausible() {
		return Credentials{}, nil
	}
	return withCookies(ctx, s.page, c), nil
}

// FromPairs maps probe results onto credential fields by keyword.
// Later pairs override earlier ones.
func FromPairs(pairs []Pair) Credentials {
	var c Credentials
	for _, p := range pairs {
		if p.Value == "" {
			continue
		}
		name := strings.ToLower(p.Name)
		switch {
		case strings.Contains(name, "session"):
			c.SessionID = p.Value
		case strings.Contains(name, "context"):
			c.ContextID = p.Value
		case strings.Contains(name, "user"):
			c.UserID = p.Value
		case strings.Contains(name, "office"):
			c.OfficeID = p.Value
		case strings.Contains(name, "org"):
			c.Organization = p.Value
		case strings.Contains(name, "gds"):
			c.GDSCode = p.Value
		}
	}
	return c
}

func withCookies(ctx context.Context, page Page, c Credentials) Credentials {
	if cookies, err := page.Cookies(ctx); err == nil {
		c.Cookies = cookies
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

const domProbeJS = `() => {
	const out = [];
	document.querySelectorAll('input[type="hidden"]').forEach(el => {
		const name = el.name || el.id || '';
		if (name) out.push({ name, value: String(el.value || '') });
	});
	document.querySelectorAll('meta[name*="session"], meta[name*="context"], meta[name*="user"]').forEach(el => {
		out.push({ name: el.name, value: String(el.content || '') });
	});
	const ds = document.body ? document.body.dataset : {};
	if (ds.sessionId) out.push({ name: 'sessionId', value: String(ds.sessionId) });
	if (ds.contextId) out.push({ name: 'contextId', value: String(ds.contextId) });
	return out;
}`

const scriptProbeJS = `() => {
	const out = [];
	const push = (name, value) => {
		if (typeof value === 'string' || typeof value === 'number') out.push({ name, value: String(value) });
	};
	['sessionId', 'jSessionId', 'contextId', 'userId', 'officeId', 'organization'].forEach(k => push(k, window[k]));
	['amadeusSessionData', 'lastAmadeusRequest', 'appConfig', 'sessionInfo'].forEach(root => {
		const obj = window[root];
		if (obj && typeof obj === 'object') {
			Object.keys(obj).forEach(k => push(k, obj[k]));
		}
	});
	return out;
}`

const storageProbeJS = `() => {
	const out = [];
	[window.localStorage, window.sessionStorage].forEach(store => {
		if (!store) return;
		for (let i = 0; i < store.length; i++) {
			const key = store.key(i);
			const value = store.getItem(key);
			if (value && value.length < 512) out.push({ name: key, value });
		}
	});
	return out;
}`
