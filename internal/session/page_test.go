// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	captured []CapturedRequest
	probes   map[string][]Pair
	cookies  []Cookie
	evalErr  error
}

func (f *fakePage) CapturedRequests() []CapturedRequest { return f.captured }

func (f *fakePage) Evaluate(ctx context.Context, js string, out any) error {
	if f.evalErr != nil {
		return f.evalErr
	}
	b, err := json.Marshal(f.probes[js])
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakePage) Cookies(ctx context.Context) ([]Cookie, error) { return f.cookies, nil }

func TestFromPairs(t *testing.T) {
	tests := []struct {
		name  string
		pairs []Pair
		want  Credentials
	}{
		{
			name:  "hidden inputs",
			pairs: []Pair{{"jSessionId", "J1"}, {"contextId", "C1"}, {"userId", "U1"}, {"officeId", "O1"}, {"orgCode", "SV"}},
			want:  Credentials{SessionID: "J1", ContextID: "C1", UserID: "U1", OfficeID: "O1", Organization: "SV"},
		},
		{
			name:  "later pairs override",
			pairs: []Pair{{"sessionId", "A"}, {"SESSION_TOKEN", "B"}},
			want:  Credentials{SessionID: "B"},
		},
		{
			name:  "empty values ignored",
			pairs: []Pair{{"sessionId", "A"}, {"sessionId", ""}},
			want:  Credentials{SessionID: "A"},
		},
		{
			name:  "unrelated keys",
			pairs: []Pair{{"theme", "dark"}},
			want:  Credentials{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPairs(tt.pairs))
		})
	}
}

func TestInterceptedStrategyUsesNewestMatchingBody(t *testing.T) {
	page := &fakePage{
		captured: []CapturedRequest{
			{URL: "https://host/cryptic/apfplus/modules/cryptic/cryptic", Body: `{"jSessionId":"OLD","contextId":"C0"}`},
			{URL: "https://host/cryptic/apfplus/modules/cryptic/cryptic", Body: `{"jSessionId":"NEW","contextId":"C1","officeId":"NCE1A0950","gds":"AMADEUS"}`},
			{URL: "https://host/analytics", Body: `{"sessionId":"NOISE"}`},
			{URL: "https://host/cryptic/apfplus/modules/cryptic/cryptic", Body: `not json`},
		},
		cookies: []Cookie{{Name: "JSESSIONID", Value: "abc"}},
	}
	c, err := InterceptedStrategy{Page: page, Match: "/cryptic/"}.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NEW", c.SessionID)
	assert.Equal(t, "C1", c.ContextID)
	assert.Equal(t, "NCE1A0950", c.OfficeID)
	assert.Equal(t, page.cookies, c.Cookies)
}

func TestPageStrategiesOrder(t *testing.T) {
	page := &fakePage{probes: map[string][]Pair{
		domProbeJS:     {{"userId", "ONLY_USER"}},
		scriptProbeJS:  {{"contextId", "FROM_SCRIPT"}},
		storageProbeJS: {{"sessionId", "FROM_STORAGE"}},
	}}
	p := NewProvider(PageStrategies(page, "/cryptic/"), Options{})
	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "script", c.Source)
	assert.Equal(t, "FROM_SCRIPT", c.ContextID)
	assert.Empty(t, c.SessionID)
}

func TestProbeErrorFallsThrough(t *testing.T) {
	page := &fakePage{evalErr: errors.New("target closed")}
	p := NewProvider(append(PageStrategies(page, ""), StaticStrategy{Credentials: Credentials{SessionID: "ENV"}}), Options{})
	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", c.Source)
}

type mapSecrets map[string][]byte

var errMissing = errors.New("missing")

func (m mapSecrets) SaveSecret(key string, data []byte) error {
	m[key] = data
	return nil
}

func (m mapSecrets) LoadSecret(key string) ([]byte, error) {
	b, ok := m[key]
	if !ok {
		return nil, errMissing
	}
	return b, nil
}

func (m mapSecrets) DeleteSecret(key string) error {
	if _, ok := m[key]; !ok {
		return errMissing
	}
	delete(m, key)
	return nil
}

func TestSecretBackedStore(t *testing.T) {
	store := SecretBackedStore{Secrets: mapSecrets{}, IsNotFound: func(err error) bool { return errors.Is(err, errMissing) }}

	_, err := store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotStored)

	in := Credentials{SessionID: "S", Cookies: []Cookie{{Name: "JSESSIONID", Value: "v"}}}
	require.NoError(t, store.SaveCredentials(in))
	out, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, in.SessionID, out.SessionID)
	assert.Equal(t, in.Cookies, out.Cookies)

	require.NoError(t, store.ClearCredentials())
	require.NoError(t, store.ClearCredentials())
}
