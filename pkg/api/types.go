// Package api holds the request and response shapes of the francine HTTP
// API and a small client for it.
package api

import (
	"encoding/json"
	"time"
)

// Version is the API version spoken by this package.
const Version = "0.1.0"

// VersionHeader carries the client's API version on every request.
const VersionHeader = "X-Francine-API-Version"

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

// AskResponse is the single answer produced for an AskRequest.
type AskResponse struct {
	Text      string `json:"text"`
	Terminal  string `json:"terminal"`
	Attempts  int    `json:"attempts"`
	SessionID string `json:"session_id"`
}

// Tool is one entry of GET /tools.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Family      string          `json:"family,omitempty"`
	Blocking    bool            `json:"blocking,omitempty"`
}

// Clarification is a question the agent is waiting on.
type Clarification struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	AskedAt   time.Time `json:"asked_at"`
}

// ClarificationAnswer is the body of POST /clarifications/{id}.
type ClarificationAnswer struct {
	Answer string `json:"answer"`
}

// ScheduleRequest is the body of POST /schedule.
type ScheduleRequest struct {
	TimeOfDay string `json:"time_of_day"`
	Command   string `json:"command"`
}

// Job describes a scheduled job.
type Job struct {
	ID        string     `json:"id"`
	TimeOfDay string     `json:"time_of_day"`
	Command   string     `json:"command"`
	NextRun   time.Time  `json:"next_run"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}
