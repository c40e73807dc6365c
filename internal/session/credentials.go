// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session acquires and validates the ephemeral credentials that
// authenticate cryptic requests. Credentials are owned by a single Provider;
// other components ask it for credentials and request a refresh through
// Invalidate followed by Acquire instead of mutating them.
package session

import (
	"time"
)

// DefaultTTL is the freshness window of acquired credentials.
const DefaultTTL = time.Hour

// Cookie is a name/value pair sent alongside cryptic requests.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credentials identify a user's terminal session on the reservation platform.
type Credentials struct {
	SessionID        string    `json:"sessionId"`
	ContextID        string    `json:"contextId"`
	UserID           string    `json:"userId"`
	Organization     string    `json:"organization"`
	OfficeID         string    `json:"officeId"`
	GDSCode          string    `json:"gdsCode"`
	ProhibitedListID string    `json:"prohibitedListId"`
	AcquiredAt       time.Time `json:"acquiredAt"`
	// Source names the strategy that produced the credentials.
	Source  string   `json:"source,omitempty"`
	Cookies []Cookie `json:"cookies,omitempty"`
}

// Plausible reports whether the credentials carry at least one session identifier.
func (c Credentials) Plausible() bool {
	return c.SessionID != "" || c.ContextID != ""
}

// Defaults fills fields the page does not expose.
type Defaults struct {
	Organization     string `mapstructure:"organization"`
	OfficeID         string `mapstructure:"office_id"`
	GDSCode          string `mapstructure:"gds"`
	UserID           string `mapstructure:"user_id"`
	ProhibitedListID string `mapstructure:"prohibited_list"`
}

// DefaultDefaults returns the values used by the reference office.
func DefaultDefaults() Defaults {
	return Defaults{
		Organization:     "SV",
		OfficeID:         "RUHSV0401",
		GDSCode:          "AMADEUS",
		UserID:           "UNKNOWN",
		ProhibitedListID: "SITE_JCPCRYPTIC_PROHIBITED_COMMANDS_LIST_1",
	}
}

func (d Defaults) apply(c Credentials) Credentials {
	if c.Organization == "" {
		c.Organization = d.Organization
	}
	if c.OfficeID == "" {
		c.OfficeID = d.OfficeID
	}
	if c.GDSCode == "" {
		c.GDSCode = d.GDSCode
	}
	if c.UserID == "" {
		c.UserID = d.UserID
	}
	if c.ProhibitedListID == "" {
		c.ProhibitedListID = d.ProhibitedListID
	}
	return c
}
