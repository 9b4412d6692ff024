package websocket

import "github.com/stemsi/eduportal-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Request is one client message. Fields beyond Action depend on the action.
type Request struct {
	Action Action `json:"action"`

	// autosave
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`

	// submit
	Answers    map[string]string `json:"answers,omitempty"`
	AutoSubmit bool              `json:"auto_submit,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

// SubmittedResponse carries the result of the attempt. AlreadySubmitted is
// set when an earlier submit closed it and Result is the stored one.
type SubmittedResponse struct {
	Event            Event                `json:"event"`
	AlreadySubmitted bool                 `json:"already_submitted"`
	Result           *model.AttemptResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
