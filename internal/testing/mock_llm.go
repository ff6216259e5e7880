package testing

import (
	"context"
	"sync"

	"pkdindustries/switchboard/internal/llm"
	"pkdindustries/switchboard/internal/messages"
)

// MockLLM implements llm.LLM with scripted replies. Each call plays the next
// scripted message through the processor the way a live exchange would, then
// returns it; the last script repeats once the list runs out.
type MockLLM struct {
	Responses []messages.ChatMessage
	Err       error     // returned (after OnError) instead of a response
	Usage     llm.Usage // reported on every OnComplete

	mu       sync.Mutex
	requests []*llm.CompletionRequest
}

// Verify MockLLM implements llm.LLM
var _ llm.LLM = (*MockLLM)(nil)

func (m *MockLLM) ChatCompletionStream(ctx context.Context, req *llm.CompletionRequest, proc llm.EventProcessor) (messages.ChatMessage, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests) - 1
	m.mu.Unlock()

	if m.Err != nil {
		proc.OnError(m.Err)
		return messages.ChatMessage{}, m.Err
	}

	msg := messages.ChatMessage{Role: messages.MessageRoleAssistant}
	if len(m.Responses) > 0 {
		if call >= len(m.Responses) {
			call = len(m.Responses) - 1
		}
		msg = m.Responses[call]
	}

	first := true
	for _, p := range msg.Parts {
		switch v := p.(type) {
		case messages.ThinkingPart:
			proc.OnReasoning(messages.ReasoningDelta{ID: v.ID, Text: v.Text})
		case messages.TextPart:
			proc.OnContent(messages.TextDelta{Text: v.Text}, first)
			first = false
		case messages.ToolCallPart:
			proc.OnToolCall(v)
		}
	}
	proc.OnComplete(msg, m.Usage)
	return msg, nil
}

// Calls returns how many times the mock was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the captured requests in call order.
func (m *MockLLM) Requests() []*llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
