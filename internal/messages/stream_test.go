package messages

import (
	"errors"
	"reflect"
	"testing"
)

func TestHostVisible(t *testing.T) {
	tests := []struct {
		name string
		part StreamPart
		want bool
	}{
		{"reasoning", ReasoningDelta{ID: "t1", Text: "hmm"}, true},
		{"text", TextDelta{Text: "hi"}, true},
		{"tool call", ToolCallEvent{CallID: "c1", Name: "f"}, true},
		{"usage", UsageEvent{InputTokens: 10, OutputTokens: 5}, false},
		{"response meta", ResponseMeta{ResponseID: "r1"}, false},
		{"stream error", StreamError{Err: errors.New("boom")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HostVisible(tt.part); got != tt.want {
				t.Errorf("HostVisible(%T) = %v, want %v", tt.part, got, tt.want)
			}
		})
	}
}

func TestAccumulatorCoalescesText(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(TextDelta{Text: "Hello"})
	acc.Add(TextDelta{Text: " "})
	acc.Add(TextDelta{Text: "world"})

	msg := acc.Message()
	want := []Part{TextPart{Text: "Hello world"}}
	if !reflect.DeepEqual(msg.Parts, want) {
		t.Errorf("accumulated parts = %v, want %v", msg.Parts, want)
	}
}

func TestAccumulatorReasoningThenText(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(ReasoningDelta{ID: "sig1", Text: "let me "})
	acc.Add(ReasoningDelta{ID: "sig1", Text: "think"})
	acc.Add(TextDelta{Text: "Answer"})

	msg := acc.Message()
	want := []Part{
		ThinkingPart{Text: "let me think", ID: "sig1"},
		TextPart{Text: "Answer"},
	}
	if !reflect.DeepEqual(msg.Parts, want) {
		t.Errorf("accumulated parts = %v, want %v", msg.Parts, want)
	}
}

func TestAccumulatorReasoningIDBreaksRun(t *testing.T) {
	// Deltas with a different ID open a fresh thinking part even when adjacent.
	acc := NewAccumulator()
	acc.Add(ReasoningDelta{ID: "a", Text: "one"})
	acc.Add(ReasoningDelta{ID: "b", Text: "two"})

	msg := acc.Message()
	if len(msg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d: %v", len(msg.Parts), msg.Parts)
	}
}

func TestAccumulatorToolCallBreaksRun(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(TextDelta{Text: "before"})
	acc.Add(ToolCallEvent{CallID: "c1", Name: "get_weather", Input: map[string]any{"location": "NYC"}})
	acc.Add(TextDelta{Text: "after"})

	msg := acc.Message()
	want := []Part{
		TextPart{Text: "before"},
		ToolCallPart{CallID: "c1", Name: "get_weather", Input: map[string]any{"location": "NYC"}},
		TextPart{Text: "after"},
	}
	if !reflect.DeepEqual(msg.Parts, want) {
		t.Errorf("accumulated parts = %v, want %v", msg.Parts, want)
	}
}

func TestAccumulatorIgnoresBookkeeping(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(UsageEvent{InputTokens: 100})
	acc.Add(TextDelta{Text: "hi"})
	acc.Add(ResponseMeta{ResponseID: "r1"})
	acc.Add(StreamError{Err: errors.New("late")})

	if acc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", acc.Len())
	}
}

func TestAccumulatorMessageCopies(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(TextDelta{Text: "one"})
	first := acc.Message()
	acc.Add(ToolCallEvent{CallID: "c1", Name: "f"})

	if len(first.Parts) != 1 {
		t.Errorf("snapshot grew with the accumulator: %v", first.Parts)
	}
}
