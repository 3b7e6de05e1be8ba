// internal/types/message.go
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type discriminants pushed over the stream. Unknown values are
// accepted and logged generically, so this list is not a closed set.
const (
	TypeUserMessage           = "user_message"
	TypeAIMessage             = "ai_message"
	TypeThinking              = "thinking"
	TypeReasoning             = "reasoning"
	TypeDecision              = "decision"
	TypeConversational        = "conversational"
	TypeToolCall              = "tool_call"
	TypeToolExecuting         = "tool_executing"
	TypeToolComplete          = "tool_complete"
	TypeToolResult            = "tool_result"
	TypeProgress              = "progress"
	TypeError                 = "error"
	TypeUserInputRequest      = "user_input_request"
	TypeApprovalReceived      = "approval_received"
	TypeProcessPaused         = "process_paused"
	TypeInformational         = "informational"
	TypeInteractive           = "interactive"
	TypeConnectionEstablished = "connection_established"
	TypeWorkflowComplete      = "workflow_complete"
	TypeAdaptive              = "adaptive"
	TypeContextUpdate         = "context_update"
	TypeGUIUpdate             = "gui_update"
)

// Message is one decoded stream frame. Common fields are typed; every field
// of the original JSON object is also retained raw so that partial updates
// can be merged with exact field-presence semantics and unknown fields
// survive a round trip.
//
// Timestamp stays a string: the sidecar emits Python isoformat values that
// are not RFC 3339, and the store only ever displays them.
type Message struct {
	Type      string    `json:"type"`
	SessionID SessionID `json:"session_id,omitempty"`
	MessageID MessageID `json:"message_id,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	IsPartial bool      `json:"is_partial,omitempty"`

	Content     string         `json:"content,omitempty"`
	Text        string         `json:"message,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Step        string         `json:"step,omitempty"`
	Description string         `json:"description,omitempty"`
	CallID      string         `json:"call_id,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Success     *bool          `json:"success,omitempty"`
	ErrorText   string         `json:"error,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	Percent     *float64       `json:"percent,omitempty"`
	Status      string         `json:"status,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	UpdateType  string         `json:"update_type,omitempty"`
	Data        map[string]any `json:"data,omitempty"`

	raw map[string]json.RawMessage
}

// DecodeMessage parses one wire frame into a Message. A known field carrying
// the wrong JSON type decodes as its zero value, with the original bytes kept
// in the raw map; only a frame that is not a JSON object fails.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias Message
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		// A wrong-typed field is left at its zero value while the rest
		// of the frame decodes; the message still enters the log.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*m = Message(a)
	m.raw = raw
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.fields())
}

// fields returns the message as a raw field map, synthesizing it for
// messages constructed in code rather than decoded off the wire.
func (m Message) fields() map[string]json.RawMessage {
	if m.raw != nil {
		return m.raw
	}
	type alias Message
	data, err := json.Marshal(alias(m))
	if err != nil {
		return map[string]json.RawMessage{}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]json.RawMessage{}
	}
	return raw
}

// Has reports whether the named field was present on the wire frame
// (or is set on a message constructed in code).
func (m Message) Has(key string) bool {
	_, ok := m.fields()[key]
	return ok
}

// Merge overlays next onto m field by field: every field present in next
// replaces the corresponding field of m, fields absent from next are kept.
// Neither input is modified.
func (m Message) Merge(next Message) Message {
	merged := make(map[string]json.RawMessage)
	for k, v := range m.fields() {
		merged[k] = v
	}
	for k, v := range next.fields() {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return next
	}
	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		return next
	}
	return out
}

// UserMessage is the outbound frame sent when the user submits input.
// The server tolerates extra fields, so the shape is open-ended.
type UserMessage struct {
	Type          string         `json:"type"`
	Content       string         `json:"content"`
	ProjectID     string         `json:"project_id,omitempty"`
	FrontendState *FrontendState `json:"frontend_state,omitempty"`
}

// FrontendState mirrors the client-side context the sidecar reads back out
// of a user message.
type FrontendState struct {
	UserContext UserContext `json:"userContext"`
}

// NewUserMessage builds an outbound user_message frame.
func NewUserMessage(content string) UserMessage {
	return UserMessage{Type: TypeUserMessage, Content: content}
}
