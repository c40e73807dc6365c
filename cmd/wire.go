// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"hextract/cli/internal/browser"
	"hextract/cli/internal/config"
	"hextract/cli/internal/gateway"
	"hextract/cli/internal/keychain"
	"hextract/cli/internal/logging"
	"hextract/cli/internal/session"
)

// pipeline bundles the collaborators shared by extract, send and session.
type pipeline struct {
	inspector *browser.Inspector
	provider  *session.Provider
	gateway   *gateway.Client
	store     session.Store
}

type wireOptions struct {
	noBrowser bool
}

// wirePipeline builds the credential chain and the gateway from cfg. The
// browser is optional: when it cannot be reached the static and keychain
// strategies still apply.
func wirePipeline(ctx context.Context, cfg config.Config, log *zap.Logger, opts wireOptions) *pipeline {
	p := &pipeline{}
	var strategies []session.Strategy

	static := session.Credentials{
		SessionID: strings.TrimSpace(cfg.Session.ID),
		ContextID: strings.TrimSpace(cfg.Session.ContextID),
		UserID:    strings.TrimSpace(cfg.Session.UserID),
	}
	if static.Plausible() {
		strategies = append(strategies, session.StaticStrategy{Label: "config", Credentials: static})
	}

	if !opts.noBrowser && !cfg.Browser.Disabled {
		in, err := browser.Attach(ctx, browser.Options{
			DebuggerURL:  cfg.Browser.DebuggerURL,
			Headless:     cfg.Browser.Headless,
			PageMatch:    cfg.Browser.PageMatch,
			CaptureMatch: cfg.Browser.CaptureMatch,
			Logger:       log.Named("browser"),
		})
		if err != nil {
			log.Warn("browser not available", zap.Error(err))
			pterm.Warning.Println("Browser not reachable: " + logging.Mask(err.Error()))
		} else {
			p.inspector = in
			if !static.Plausible() && cfg.Browser.CaptureWait > 0 && len(in.CapturedRequests()) == 0 {
				in.WaitForCapture(ctx, cfg.Browser.CaptureWait)
			}
			strategies = append(strategies, session.PageStrategies(in, cfg.Browser.CaptureMatch)...)
		}
	}

	if km, err := keychain.GetManager(); err == nil {
		p.store = session.SecretBackedStore{Secrets: km, IsNotFound: keychain.IsNotFound}
		strategies = append(strategies, session.StoredStrategy{Store: p.store})
	} else {
		log.Debug("keychain unavailable", zap.Error(err))
	}

	p.provider = session.NewProvider(strategies, session.Options{
		TTL:      cfg.Session.TTL,
		Defaults: cfg.Session.Defaults,
		Store:    p.store,
		Logger:   log.Named("session"),
	})
	p.gateway = gateway.New(gateway.Options{
		BaseURL:           cfg.Gateway.BaseURL,
		Query:             cfg.Gateway.Query,
		MaxRetries:        cfg.Run.MaxRetries,
		RetryDelay:        cfg.Run.RetryDelay,
		RequestTimeout:    cfg.Run.TimeoutPerCommand,
		RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
		HistorySize:       cfg.Gateway.HistorySize,
		Logger:            log.Named("gateway"),
	})
	return p
}

func (p *pipeline) Close() {
	if p.inspector != nil {
		_ = p.inspector.Close()
	}
}
