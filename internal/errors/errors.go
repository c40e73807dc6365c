// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Each error carries a machine-readable Kind so callers can branch on the failure
// class (session, network, shape, timeout, critical) without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// SessionAcquisition indicates that no strategy produced usable credentials.
	SessionAcquisition Kind = "session_acquisition"
	// SessionExpired indicates credentials were rejected or went stale mid-run.
	SessionExpired Kind = "session_expired"
	// Network indicates a transport failure or a non-success HTTP status.
	Network Kind = "network"
	// UnexpectedResponseShape indicates the response body did not match the expected schema.
	UnexpectedResponseShape Kind = "unexpected_response_shape"
	// CommandTimeout indicates the per-command deadline was exceeded.
	CommandTimeout Kind = "command_timeout"
	// CriticalCommand indicates a critical command failed while errors were not skippable.
	CriticalCommand Kind = "critical_command"
	// InvalidCatalog indicates the command catalog could not be loaded or validated.
	InvalidCatalog Kind = "invalid_catalog"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is an *E of the same kind.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return err != nil && stderrors.Is(err, &E{Kind: kind})
}
