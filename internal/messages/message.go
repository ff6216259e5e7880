package messages

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Standard role constants
const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleTool      = "tool"
)

// ErrorMarkerPrefix tags thinking parts that exist only to surface a local
// error notice in the host transcript. They are rendered to the user but
// never replayed to a backend.
const ErrorMarkerPrefix = "switchboard:error"

// IsErrorMarker reports whether a thinking-part ID marks an internal error notice.
func IsErrorMarker(id string) bool {
	return strings.HasPrefix(id, ErrorMarkerPrefix)
}

// ChatMessage represents a provider-agnostic chat message: a role plus an
// ordered sequence of content parts.
type ChatMessage struct {
	Role  string
	Parts []Part
}

// Part is one typed unit of message content. The set is closed; unknown
// kinds coming in from outside must be coerced through FallbackText.
type Part interface {
	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

// ThinkingPart is an opaque reasoning trace. ID is backend-specific and
// threads cached continuation state (signatures, pending reasoning text)
// across turns.
type ThinkingPart struct {
	Text string
	ID   string
}

// ToolCallPart is an assistant request to invoke a tool.
type ToolCallPart struct {
	CallID string
	Name   string
	Input  map[string]any
}

// ToolResultPart answers a ToolCallPart with the same CallID. Output is
// free-form (string, map, slice, nested parts); providers only accept text,
// so it is stringified on outbound translation.
type ToolResultPart struct {
	CallID string
	Name   string
	Output any
}

// DataPart carries binary content, used only for image input.
type DataPart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart()       {}
func (ThinkingPart) isPart()   {}
func (ToolCallPart) isPart()   {}
func (ToolResultPart) isPart() {}
func (DataPart) isPart()       {}

// NewUserText builds a single-text user message.
func NewUserText(text string) ChatMessage {
	return ChatMessage{Role: MessageRoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewSystemText builds a system message carrying one text part.
func NewSystemText(text string) ChatMessage {
	return ChatMessage{Role: MessageRoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// TextContent concatenates the message's text parts.
func (m ChatMessage) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the message's tool-call parts in order.
func (m ChatMessage) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m ChatMessage) HasToolCalls() bool {
	for _, p := range m.Parts {
		if _, ok := p.(ToolCallPart); ok {
			return true
		}
	}
	return false
}

// FallbackText renders a part of unknown or mixed kind to a best-effort
// string so message arrays stay non-empty and valid. Total over the union.
func FallbackText(p Part) string {
	switch v := p.(type) {
	case TextPart:
		return v.Text
	case ThinkingPart:
		return v.Text
	case ToolCallPart:
		b, err := json.Marshal(v.Input)
		if err != nil {
			return v.Name
		}
		return fmt.Sprintf("%s(%s)", v.Name, b)
	case ToolResultPart:
		b, err := json.Marshal(v.Output)
		if err != nil {
			return fmt.Sprintf("%v", v.Output)
		}
		return string(b)
	case DataPart:
		return fmt.Sprintf("[%s, %d bytes]", v.MIMEType, len(v.Data))
	default:
		return fmt.Sprintf("%v", p)
	}
}

// ValidatePairing checks the call/result invariant over a history: every
// assistant ToolCallPart must be answered by exactly one later ToolResultPart
// with the same CallID, and no result may arrive without a preceding call.
// Backends that enforce pairing reject histories violating this, so it is
// checked before translation rather than silently merged.
func ValidatePairing(history []ChatMessage) error {
	pending := make(map[string]string) // callID -> tool name
	for _, msg := range history {
		for _, p := range msg.Parts {
			switch v := p.(type) {
			case ToolCallPart:
				if msg.Role != MessageRoleAssistant {
					return fmt.Errorf("tool call %q in %s turn", v.CallID, msg.Role)
				}
				if _, dup := pending[v.CallID]; dup {
					return fmt.Errorf("duplicate tool call id %q", v.CallID)
				}
				pending[v.CallID] = v.Name
			case ToolResultPart:
				if _, ok := pending[v.CallID]; !ok {
					return fmt.Errorf("tool result %q has no matching call", v.CallID)
				}
				delete(pending, v.CallID)
			}
		}
	}
	if len(pending) > 0 {
		for id := range pending {
			return fmt.Errorf("tool call %q has no result", id)
		}
	}
	return nil
}
