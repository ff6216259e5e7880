package messages

import (
	"strings"
	"testing"
)

func TestIsErrorMarker(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"bare prefix", "switchboard:error", true},
		{"prefix with attempt", "switchboard:error:attempt-1", true},
		{"backend id", "rs_0123abcd", false},
		{"empty", "", false},
		{"prefix elsewhere", "x-switchboard:error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsErrorMarker(tt.id); got != tt.want {
				t.Errorf("IsErrorMarker(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestTextContent(t *testing.T) {
	msg := ChatMessage{
		Role: MessageRoleAssistant,
		Parts: []Part{
			TextPart{Text: "Hello"},
			ThinkingPart{Text: "hidden", ID: "t1"},
			TextPart{Text: " world"},
		},
	}
	if got := msg.TextContent(); got != "Hello world" {
		t.Errorf("TextContent() = %q, want %q", got, "Hello world")
	}
}

func TestToolCalls(t *testing.T) {
	msg := ChatMessage{
		Role: MessageRoleAssistant,
		Parts: []Part{
			TextPart{Text: "checking"},
			ToolCallPart{CallID: "c1", Name: "get_weather", Input: map[string]any{"location": "NYC"}},
			ToolCallPart{CallID: "c2", Name: "get_time", Input: map[string]any{}},
		},
	}
	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].CallID != "c1" || calls[1].CallID != "c2" {
		t.Errorf("tool calls out of order: %v", calls)
	}
	if !msg.HasToolCalls() {
		t.Error("HasToolCalls() = false, want true")
	}
}

func TestFallbackTextTotal(t *testing.T) {
	// Every member of the union must render to something non-panicking.
	parts := []Part{
		TextPart{Text: "plain"},
		ThinkingPart{Text: "trace", ID: "t1"},
		ToolCallPart{CallID: "c1", Name: "f", Input: map[string]any{"a": 1}},
		ToolResultPart{CallID: "c1", Output: map[string]any{"value": "ok"}},
		DataPart{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	}
	for _, p := range parts {
		if got := FallbackText(p); got == "" {
			t.Errorf("FallbackText(%T) returned empty string", p)
		}
	}

	if got := FallbackText(ToolCallPart{Name: "f", Input: map[string]any{"q": "x"}}); !strings.HasPrefix(got, "f(") {
		t.Errorf("tool call fallback = %q, want f(...)", got)
	}
}

func TestValidatePairing(t *testing.T) {
	call := func(id string) ChatMessage {
		return ChatMessage{Role: MessageRoleAssistant, Parts: []Part{
			ToolCallPart{CallID: id, Name: "get_weather", Input: map[string]any{}},
		}}
	}
	result := func(id string) ChatMessage {
		return ChatMessage{Role: MessageRoleTool, Parts: []Part{
			ToolResultPart{CallID: id, Output: "Sunny"},
		}}
	}

	tests := []struct {
		name    string
		history []ChatMessage
		wantErr bool
	}{
		{"paired", []ChatMessage{NewUserText("hi"), call("c1"), result("c1")}, false},
		{"unanswered call", []ChatMessage{call("c1")}, true},
		{"orphan result", []ChatMessage{result("c9")}, true},
		{"double result", []ChatMessage{call("c1"), result("c1"), result("c1")}, true},
		{"duplicate call id", []ChatMessage{call("c1"), call("c1")}, true},
		{"two pairs interleaved", []ChatMessage{call("c1"), call("c2"), result("c1"), result("c2")}, false},
		{"no tools", []ChatMessage{NewUserText("hi")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePairing(tt.history)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePairing() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
