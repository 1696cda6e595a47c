package ahp

import (
	"encoding/json"
)

// Actions accepted by the broker context. Both names execute a call.
const (
	ActionExecuteCall = "executeCall"
	ActionExecuteAHP  = "executeAHP"
)

// Request is sent from the detection context to the broker context.
type Request struct {
	// ID correlates the request with its single response. The router
	// assigns one when empty.
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	URL    string `json:"url"`
}

// IsExecute reports whether the request asks for a tool call.
func (r Request) IsExecute() bool {
	return r.Action == ActionExecuteCall || r.Action == ActionExecuteAHP
}

// Response answers exactly one Request.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    Kind            `json:"kind,omitempty"`
}

// OK builds a successful response carrying payload.
func OK(id string, payload json.RawMessage) Response {
	return Response{ID: id, Success: true, Data: payload}
}

// Failed builds a failure response from err.
func Failed(id string, err error) Response {
	return Response{ID: id, Success: false, Error: Detail(err), Kind: KindOf(err)}
}

// Err converts a failure response back into an *Error; nil on success.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	kind := r.Kind
	if kind == "" {
		kind = KindInternal
	}
	return &Error{Kind: kind, Message: r.Error}
}
