// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"encoding/json"
	"strings"

	"hextract/cli/internal/model"
	"hextract/cli/internal/session"
)

type crypticRequest struct {
	JSessionID   string        `json:"jSessionId"`
	ContextID    string        `json:"contextId"`
	UserID       string        `json:"userId"`
	Organization string        `json:"organization"`
	OfficeID     string        `json:"officeId"`
	GDS          string        `json:"gds"`
	Tasks        []crypticTask `json:"tasks"`
}

type crypticTask struct {
	Type    string         `json:"type"`
	Command crypticCommand `json:"command"`
}

type crypticCommand struct {
	Command        string `json:"command"`
	ProhibitedList string `json:"prohibitedList"`
}

func newRequest(creds session.Credentials, command string) crypticRequest {
	return crypticRequest{
		JSessionID:   creds.SessionID,
		ContextID:    creds.ContextID,
		UserID:       creds.UserID,
		Organization: creds.Organization,
		OfficeID:     creds.OfficeID,
		GDS:          creds.GDSCode,
		Tasks: []crypticTask{{
			Type:    "CRY",
			Command: crypticCommand{Command: command, ProhibitedList: creds.ProhibitedListID},
		}},
	}
}

// Shape is the decoded response body: either ExpectedShape or UnexpectedShape.
type Shape interface{ isShape() }

// ExpectedShape is a body of the form {model:{output:{crypticResponse:{command,response}}}}.
type ExpectedShape struct {
	Command  string
	Response string
}

// UnexpectedShape is any other body.
type UnexpectedShape struct {
	Reason string
}

func (ExpectedShape) isShape() {}
func (UnexpectedShape) isShape() {}

// DecodeShape decodes a response body once into its tagged variant.
func DecodeShape(body []byte) Shape {
	var env struct {
		Model *struct {
			Output *struct {
				CrypticResponse *struct {
					Command  *string `json:"command"`
					Response *string `json:"response"`
				} `json:"crypticResponse"`
			} `json:"output"`
		} `json:"model"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return UnexpectedShape{Reason: "body is not the expected JSON object: " + err.Error()}
	}
	switch {
	case env.Model == nil:
		return UnexpectedShape{Reason: "missing model"}
	case env.Model.Output == nil:
		return UnexpectedShape{Reason: "missing model.output"}
	case env.Model.Output.CrypticResponse == nil:
		return UnexpectedShape{Reason: "missing model.output.crypticResponse"}
	case env.Model.Output.CrypticResponse.Response == nil:
		return UnexpectedShape{Reason: "missing model.output.crypticResponse.response"}
	}
	cr := env.Model.Output.CrypticResponse
	shape := ExpectedShape{Response: *cr.Response}
	if cr.Command != nil {
		shape.Command = *cr.Command
	}
	return shape
}

// CoarseType labels a response with ordered keyword heuristics. Full structural
// parsing is left to the classifier.
func CoarseType(text string) model.ResponseType {
	if strings.TrimSpace(text) == "" {
		return model.ResponseEmpty
	}
	lower := strings.ToLower(text)
	has := func(s string) bool { return strings.Contains(lower, s) }
	switch {
	case has("command not recognized") || has("invalid entry") || has("not authorized"):
		return model.ResponseError
	case has("format") && has("reference"), has("explanation") && has("ms106"):
		return model.ResponseHelpDocumentation
	case has("task") && has("----"):
		return model.ResponseCommandList
	default:
		return model.ResponseUnknown
	}
}
