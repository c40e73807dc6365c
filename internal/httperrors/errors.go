// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies transport failures and presents them to the user.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the coarse class of a transport failure.
type Category string

const (
	CategoryTimeout     Category = "timeout"
	CategoryDNS         Category = "dns"
	CategoryRefused     Category = "connection_refused"
	CategoryTLS         Category = "tls"
	CategoryServer      Category = "server"
	CategoryGeneric     Category = "generic"
)

// StatusError is a non-success HTTP status returned by the cryptic endpoint.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status) }

// Classify returns the category of err.
func Classify(err error) Category {
	switch {
	case IsTimeout(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(err):
		return CategoryTLS
	case isServerError(err):
		return CategoryServer
	default:
		return CategoryGeneric
	}
}

// FormatNetworkError shows a user-friendly explanation of err and returns it wrapped.
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(err, context)
	return fmt.Errorf("network error: %w", err)
}

func displayErrorMessage(err error, context string) {
	switch Classify(err) {
	case CategoryTimeout:
		pterm.Warning.Printf("Timed out while %s\n", context)
		pterm.Println("The reservation system took too long to answer. Raise batch.timeout_per_command or retry later.")
	case CategoryDNS:
		pterm.Error.Printf("Cannot resolve the cryptic endpoint while %s\n", context)
		pterm.Println("Check endpoint.base_url and your VPN or DNS settings.")
	case CategoryRefused:
		pterm.Error.Printf("Connection refused while %s\n", context)
		pterm.Println("The endpoint is not accepting connections. Check endpoint.base_url.")
	case CategoryTLS:
		pterm.Error.Printf("Secure connection failed while %s\n", context)
		pterm.Println("Verify proxy settings and the system clock.")
	case CategoryServer:
		pterm.Error.Printf("Server error while %s\n", context)
		pterm.Println("The reservation system reported an internal error. Try again in a few minutes.")
	default:
		pterm.Error.Printf("Cannot reach the reservation system while %s\n", context)
		details := err.Error()
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
	}
}

// IsTimeout reports whether err is a deadline or timeout failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate")
}

func isServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
