// Package protocol defines the wire contract between a playground backend
// and the crewdeck client.
//
// Every stream frame is a single JSON envelope carrying a type discriminator
// plus the emitting agent, an opaque data payload, the session id, and a
// timestamp. The set of frame types is closed; anything else on the stream
// (keepalives, future control frames) is not an error and must simply be
// ignored by consumers.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Stream event types.
const (
	EventAgentResponse   = "agent_response"   // agent produced user-visible text
	EventAgentMessage    = "agent_message"    // agent-to-agent handoff via messaging tool
	EventToolCall        = "tool_call"        // agent invoked a tool
	EventThinking        = "thinking"         // agent began reasoning
	EventTurnStart       = "turn_start"       // agent turn started
	EventTurnEnd         = "turn_end"         // agent turn finished
	EventTaskUpdate      = "task_update"      // task created or updated
	EventError           = "error"            // session-level error
	EventSessionEnd      = "session_end"      // terminal: all agents finished
	EventProtocolMessage = "protocol_message" // inter-agent coordination frame
	EventSessionStart    = "session_start"    // informational, ignored by the UI
	EventToolResult      = "tool_result"      // informational, ignored by the UI
)

// Protocol message sub-kinds carried in EventProtocolMessage payloads.
const (
	ControlIdleNotification     = "idle_notification"
	ControlShutdownRequest      = "shutdown_request"
	ControlShutdownApproved     = "shutdown_approved"
	ControlTaskAssignment       = "task_assignment"
	ControlTaskCompleted        = "task_completed"
	ControlPlanApprovalRequest  = "plan_approval_request"
	ControlPlanApprovalResponse = "plan_approval_response"
)

// Event is the decoded stream envelope. Data stays raw; payload accessors
// decode it tolerantly so a missing or malformed field never fails a frame
// that already passed Decode.
type Event struct {
	Type      string          `json:"type"`
	Agent     string          `json:"agent,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Known reports whether t is part of the closed event-type set.
func Known(t string) bool {
	switch t {
	case EventAgentResponse, EventAgentMessage, EventToolCall, EventThinking,
		EventTurnStart, EventTurnEnd, EventTaskUpdate, EventError,
		EventSessionEnd, EventProtocolMessage, EventSessionStart, EventToolResult:
		return true
	}
	return false
}

// Decode parses one stream frame. It returns nil for anything that is not a
// JSON envelope with a recognized type: malformed frames, keepalives, and
// unknown control frames are all legitimate stream content that the caller
// must skip, never treat as fatal.
func Decode(data []byte) *Event {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil
	}
	if !Known(ev.Type) {
		return nil
	}
	return &ev
}

// Time parses the envelope timestamp, returning fallback when it is absent
// or not RFC 3339.
func (e *Event) Time(fallback time.Time) time.Time {
	if e.Timestamp == "" {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return fallback
	}
	return ts
}

// ResponseData is the payload of an agent_response frame.
type ResponseData struct {
	Content string `json:"content"`
}

// DirectMessageData is the payload of an agent_message frame.
type DirectMessageData struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	To      string `json:"to"`
	Summary string `json:"summary"`
}

// Body returns the message text, preferring the summary, then text, then
// content, mirroring how backends populate these fields inconsistently.
func (d DirectMessageData) Body() string {
	if d.Summary != "" {
		return d.Summary
	}
	if d.Text != "" {
		return d.Text
	}
	return d.Content
}

// ToolCallData is the payload of a tool_call frame.
type ToolCallData struct {
	Tool string `json:"tool"`
}

// TaskData is the payload of a task_update frame. Subject and Description
// are aliases across backend versions.
type TaskData struct {
	ID          FlexID `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
}

// Text returns the task description, whichever alias carries it.
func (d TaskData) Text() string {
	if d.Subject != "" {
		return d.Subject
	}
	return d.Description
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ControlData is the payload of a protocol_message frame.
type ControlData struct {
	ProtocolType string `json:"protocol_type"`
	From         string `json:"from"`
	Reason       string `json:"reason"`
	TaskID       FlexID `json:"task_id"`
	TaskSubject  string `json:"task_subject"`
	AssignedTo   string `json:"assigned_to"`
	RequestID    string `json:"request_id"`
	Approve      bool   `json:"approve"`
}

// ResponseData decodes the payload as an agent_response body. Missing or
// malformed fields yield zero values.
func (e *Event) ResponseData() ResponseData {
	var d ResponseData
	e.decodeData(&d)
	return d
}

// DirectMessageData decodes the payload as an agent_message body.
func (e *Event) DirectMessageData() DirectMessageData {
	var d DirectMessageData
	e.decodeData(&d)
	return d
}

// ToolCallData decodes the payload as a tool_call body.
func (e *Event) ToolCallData() ToolCallData {
	var d ToolCallData
	e.decodeData(&d)
	return d
}

// TaskData decodes the payload as a task_update body.
func (e *Event) TaskData() TaskData {
	var d TaskData
	e.decodeData(&d)
	return d
}

// ErrorData decodes the payload as an error body.
func (e *Event) ErrorData() ErrorData {
	var d ErrorData
	e.decodeData(&d)
	return d
}

// ControlData decodes the payload as a protocol_message body.
func (e *Event) ControlData() ControlData {
	var d ControlData
	e.decodeData(&d)
	return d
}

func (e *Event) decodeData(v any) {
	if len(e.Data) == 0 {
		return
	}
	// Best effort: a payload of the wrong shape leaves v zero-valued.
	_ = json.Unmarshal(e.Data, v)
}

// Encode marshals an envelope for transmission.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// MarshalData sets the envelope payload from a typed value.
func MarshalData(ev *Event, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev.Data = data
	return nil
}

// FlexID is an identifier that backends serialize as either a JSON string or
// a number. It always unmarshals without error so one odd field cannot sink
// a whole frame.
type FlexID string

// UnmarshalJSON accepts "42", 42, and null, mapping anything else to empty.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	*f = ""
	return nil
}

// MarshalJSON writes the id as a string.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(f))), nil
}

// String returns the id text.
func (f FlexID) String() string { return string(f) }
