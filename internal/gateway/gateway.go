// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway sends cryptic commands to the reservation platform.
// Each SendCommand call performs one authenticated request with bounded
// retries, validates the response shape, and records the outcome in a bounded
// history. Failures are always returned inside the CommandResult.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/httperrors"
	"hextract/cli/internal/model"
	"hextract/cli/internal/session"
)

const (
	// DefaultBaseURL is the cryptic module endpoint of the UAT desktop.
	DefaultBaseURL = "https://uat10.resdesktop.altea.amadeus.com/cryptic/apfplus/modules/cryptic/cryptic"
	// DefaultQuery carries the fixed site, language and context parameters.
	DefaultQuery = "SITE=ASVBASVB&LANGUAGE=GB&OCTX=ARDW_PDT_WBP"

	DefaultMaxRetries     = 3
	DefaultRetryDelay     = time.Second
	DefaultRequestTimeout = 10 * time.Second

	// ConnectionTestCommand is sent by TestConnection.
	ConnectionTestCommand = "HE HELP"

	maxBodyBytes = 4 << 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	Query      string
	MaxRetries int
	RetryDelay time.Duration
	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration
	// RequestsPerMinute caps outgoing attempts; 0 disables the ceiling.
	RequestsPerMinute int
	HistorySize       int
	HTTPClient        *http.Client
	Logger            *zap.Logger
	Now               func() time.Time
}

// Client implements the command gateway over HTTP.
type Client struct {
	// endpoint is the full URL including the fixed query string
	endpoint string
	// client is the underlying HTTP client with a per-attempt timeout
	client *http.Client
	// limiter enforces the optional request ceiling
	limiter *rate.Limiter
	history *History
	log     *zap.Logger
	now     func() time.Time

	mu         sync.RWMutex
	maxRetries int
	retryDelay time.Duration
}

// New creates a gateway client.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	query := opts.Query
	if query == "" {
		query = DefaultQuery
	}
	c := &Client{
		endpoint:   base + "?" + strings.TrimPrefix(query, "?"),
		client:     opts.HTTPClient,
		history:    NewHistory(opts.HistorySize),
		log:        opts.Logger,
		now:        opts.Now,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
	if c.client == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// SetRetryPolicy changes the retry budget for subsequent calls.
func (c *Client) SetRetryPolicy(maxRetries int, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	if delay >= 0 {
		c.retryDelay = delay
	}
}

func (c *Client) retryPolicy() (int, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxRetries, c.retryDelay
}

// TestConnection sends the connection test command.
func (c *Client) TestConnection(ctx context.Context, creds session.Credentials) model.CommandResult {
	return c.SendCommand(ctx, creds, ConnectionTestCommand)
}

// SendCommand dispatches one command. It never returns an error: every failure
// is described by the returned result.
func (c *Client) SendCommand(ctx context.Context, creds session.Credentials, command string) model.CommandResult {
	start := c.now()
	maxRetries, delay := c.retryPolicy()

	var (
		shape    Shape
		lastErr  error
		attempts int
	)
	body, err := json.Marshal(newRequest(creds, command))
	if err != nil {
		lastErr = err
	}
	for lastErr == nil && attempts < maxRetries {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}
		attempts++
		shape, lastErr = c.post(ctx, creds, body)
		if lastErr == nil || !retryable(ctx, lastErr) {
			break
		}
		c.log.Debug("cryptic request failed",
			zap.String("command", command), zap.Int("attempt", attempts), zap.Error(lastErr))
		if attempts < maxRetries {
			if err := sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
			lastErr = nil
		}
	}

	res := model.CommandResult{Command: command, Attempts: attempts}
	switch s := shape.(type) {
	case ExpectedShape:
		if lastErr == nil {
			res.Success = true
			res.ResponseText = s.Response
			res.ResponseType = CoarseType(s.Response)
		}
	case UnexpectedShape:
		if lastErr == nil {
			lastErr = apperrors.New(apperrors.UnexpectedResponseShape, s.Reason)
		}
	}
	if !res.Success {
		if lastErr == nil {
			lastErr = errors.New("no attempt was made")
		}
		kind := classify(ctx, lastErr)
		res.ErrorKind = kind
		res.Error = apperrors.Wrap(kind, fmt.Sprintf("%s failed after %d attempt(s)", command, attempts), unwrapKind(lastErr)).Error()
	}
	res.Timestamp = c.now()
	res.Duration = res.Timestamp.Sub(start)

	c.history.Add(HistoryEntry{
		Command:   command,
		Success:   res.Success,
		ErrorKind: res.ErrorKind,
		Attempts:  res.Attempts,
		Duration:  res.Duration,
		Timestamp: res.Timestamp,
	})
	if res.Success {
		c.log.Debug("cryptic command ok", zap.String("command", command), zap.Int("attempts", attempts))
	} else {
		c.log.Warn("cryptic command failed", zap.String("command", command), zap.String("kind", string(res.ErrorKind)), zap.Int("attempts", attempts))
	}
	return res
}

// post performs a single attempt. A non-nil Shape is only returned with a nil error.
func (c *Client) post(ctx context.Context, creds session.Credentials, body []byte) (Shape, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	for _, ck := range creds.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.Wrap(apperrors.SessionExpired, "session rejected by server",
			&httperrors.StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &httperrors.StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return DecodeShape(data), nil
}

// History returns a copy of the diagnostic history, oldest first.
func (c *Client) History() []HistoryEntry { return c.history.Entries() }

// Stats summarises the diagnostic history.
func (c *Client) Stats() Stats { return statsOf(c.history.Entries()) }

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return apperrors.KindOf(err) != apperrors.SessionExpired
}

func classify(ctx context.Context, err error) apperrors.Kind {
	if k := apperrors.KindOf(err); k != "" {
		return k
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || httperrors.IsTimeout(err) {
		return apperrors.CommandTimeout
	}
	return apperrors.Network
}

// unwrapKind strips an outer *E so the wrapped message does not repeat the kind.
func unwrapKind(err error) error {
	var e *apperrors.E
	if errors.As(err, &e) {
		if e.Err != nil {
			return fmt.Errorf("%s: %w", e.Message, e.Err)
		}
		return errors.New(e.Message)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
