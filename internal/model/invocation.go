package model

import "encoding/json"

// Synthetic status codes recorded when no HTTP status is available.
const (
	StatusCodeTransportError = 1000
	StatusCodeParseError     = 1001
	StatusCodeOtherError     = 500
)

// Invocation is one delivery attempt against a webhook, as persisted to the
// invocation-log table of the owning event's class.
type Invocation struct {
	EventID  string          `json:"event_id" db:"event_id"`
	Status   int             `json:"status" db:"status"`
	Request  json.RawMessage `json:"request" db:"request"`
	Response json.RawMessage `json:"response" db:"response"`
}

// InvocationRequest is the persisted request half of an invocation record.
type InvocationRequest struct {
	Body    json.RawMessage  `json:"body"`
	Headers []ResolvedHeader `json:"headers"`
}

// InvocationResponse is the persisted response half. Exactly one of the
// variants is populated, discriminated by Type.
type InvocationResponse struct {
	Type    string           `json:"type"` // "response", "client_error" or "error"
	Status  int              `json:"status,omitempty"`
	Body    string           `json:"body,omitempty"`
	Headers []ResolvedHeader `json:"headers,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Response variant discriminators.
const (
	ResponseTypeHTTP        = "response"
	ResponseTypeClientError = "client_error"
	ResponseTypeError       = "error"
)
