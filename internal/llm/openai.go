package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/tools"
)

// OpenAIVariant speaks the chat completions API, including any
// OpenAI-compatible endpoint reachable through a base URL override.
// Reasoning text is not signed like Anthropic's; instead the full text must
// be replayed on the next request, so streamed reasoning accumulates in the
// pending cache and is consumed exactly once by the outbound translation.
type OpenAIVariant struct {
	client    *openai.Client
	pending   *metastore.Namespace
	responses *metastore.Namespace
}

func NewOpenAIVariant(apiKey, baseURL string, caches *metastore.Registry) *OpenAIVariant {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIVariant{
		client: openai.NewClientWithConfig(cfg),
		pending: caches.Namespace(metastore.NamespaceReasoningPending, metastore.Options{
			Capacity: metastore.ReasoningPendingCapacity,
			Persist:  true,
		}),
		responses: caches.Namespace(metastore.NamespaceLastResponse, metastore.Options{Persist: true}),
	}
}

func (v *OpenAIVariant) Name() string { return "openai" }

func (v *OpenAIVariant) Hooks(*CompletionRequest) Hooks {
	return Hooks{
		GetProviderOptions: func(req *CompletionRequest) map[string]any {
			if !req.Thinking {
				return nil
			}
			return map[string]any{"reasoning_effort": "medium"}
		},
		ProcessReasoningDelta: func(delta messages.ReasoningDelta) {
			existing, _ := v.pending.Get(delta.ID)
			v.pending.Set(delta.ID, existing+delta.Text)
		},
		ProcessResponseMetadata: func(req *CompletionRequest, meta messages.ResponseMeta) {
			if meta.ResponseID != "" {
				v.responses.Set(req.Model, meta.ResponseID)
			}
		},
	}
}

func (v *OpenAIVariant) Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error) {
	r := v.buildRequest(req)

	var cancel context.CancelFunc
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	stream, err := v.client.CreateChatCompletionStream(ctx, r)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan messages.StreamPart)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		emit := func(p messages.StreamPart) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		type pendingCall struct {
			id, name string
			args     strings.Builder
		}
		var (
			calls      = map[int]*pendingCall{}
			usage      messages.UsageEvent
			responseID string
			reasonID   string
			finish     string
		)
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(messages.StreamError{Err: err})
				return
			}
			if resp.ID != "" {
				responseID = resp.ID
			}
			if resp.Usage != nil {
				usage.InputTokens = resp.Usage.PromptTokens
				usage.OutputTokens = resp.Usage.CompletionTokens
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.FinishReason != "" {
				finish = string(choice.FinishReason)
			}
			delta := choice.Delta
			if delta.ReasoningContent != "" {
				if reasonID == "" {
					reasonID = responseID
					if reasonID == "" {
						reasonID = "openai-reasoning"
					}
				}
				if !emit(messages.ReasoningDelta{ID: reasonID, Text: delta.ReasoningContent}) {
					return
				}
			}
			if delta.Content != "" {
				if !emit(messages.TextDelta{Text: delta.Content}) {
					return
				}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				pc := calls[idx]
				if pc == nil {
					pc = &pendingCall{}
					calls[idx] = pc
				}
				if tc.ID != "" {
					pc.id = tc.ID
				}
				if tc.Function.Name != "" {
					pc.name = tc.Function.Name
				}
				pc.args.WriteString(tc.Function.Arguments)
			}
		}

		// Argument fragments interleave across chunks; calls are complete
		// only once the stream ends, flushed in index order.
		idxs := make([]int, 0, len(calls))
		for i := range calls {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		for _, i := range idxs {
			pc := calls[i]
			id := pc.id
			if id == "" {
				id = fmt.Sprintf("call-%d", i)
			}
			input, ok := parseToolArgs(pc.args.String())
			if !ok {
				core.GetLogger().Warnw("dropping tool call with undecodable arguments",
					"tool", pc.name, "call_id", id)
				continue
			}
			call := messages.ToolCallEvent{
				CallID: id,
				Name:   pc.name,
				Input:  input,
			}
			if !emit(call) {
				return
			}
		}
		if !emit(usage) {
			return
		}
		emit(messages.ResponseMeta{ResponseID: responseID, StopReason: finish})
	}()
	return out, nil
}

func (v *OpenAIVariant) buildRequest(req *CompletionRequest) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model:               ModelName(req.Model),
		Messages:            toOpenAIMessages(req.Messages, v.pending),
		MaxCompletionTokens: req.MaxTokens,
		Stream:              true,
		StreamOptions:       &openai.StreamOptions{IncludeUsage: true},
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		if t == 0 {
			// The client omits zero-valued fields; the smallest positive
			// float is how an actual zero temperature goes on the wire.
			t = math.SmallestNonzeroFloat32
		}
		r.Temperature = t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		if p == 0 {
			p = math.SmallestNonzeroFloat32
		}
		r.TopP = p
	}
	if len(req.Tools) > 0 {
		r.Tools = ToOpenAITools(req.Tools)
	}
	if effort, ok := req.Options["reasoning_effort"].(string); ok {
		r.ReasoningEffort = effort
	}
	return r
}

// toOpenAIMessages translates host history into chat completion messages.
// Pending reasoning entries are consumed here, once, into the assistant
// message that follows them.
func toOpenAIMessages(history []messages.ChatMessage, pending *metastore.Namespace) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.TextContent(),
			})
		case messages.MessageRoleUser:
			out = append(out, openAIUserMessage(msg))
		case messages.MessageRoleAssistant:
			out = append(out, openAIAssistantMessage(msg, pending))
		case messages.MessageRoleTool:
			for _, part := range msg.Parts {
				if res, ok := part.(messages.ToolResultPart); ok {
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    tools.StringifyResult(res.Output),
						ToolCallID: res.CallID,
					})
				}
			}
		}
	}
	return out
}

func openAIUserMessage(msg messages.ChatMessage) openai.ChatCompletionMessage {
	m := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}

	// One text part rides as a bare string; anything richer becomes an
	// ordered multi-content array. An empty turn is an explicit "".
	if len(msg.Parts) == 1 {
		if p, ok := msg.Parts[0].(messages.TextPart); ok {
			m.Content = p.Text
			return m
		}
	}
	if len(msg.Parts) == 0 {
		m.Content = ""
		return m
	}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			m.MultiContent = append(m.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case messages.DataPart:
			url := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
			m.MultiContent = append(m.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
		default:
			m.MultiContent = append(m.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: messages.FallbackText(part),
			})
		}
	}
	return m
}

func openAIAssistantMessage(msg messages.ChatMessage, pending *metastore.Namespace) openai.ChatCompletionMessage {
	m := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	var text strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			text.WriteString(p.Text)
		case messages.ThinkingPart:
			if messages.IsErrorMarker(p.ID) {
				continue
			}
			if full, ok := pending.Take(p.ID); ok {
				m.ReasoningContent += full
			} else if p.Text != "" {
				m.ReasoningContent += p.Text
			}
		case messages.ToolCallPart:
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   p.CallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      p.Name,
					Arguments: marshalToolArgs(p.Input),
				},
			})
		default:
			text.WriteString(messages.FallbackText(part))
		}
	}
	m.Content = text.String()
	return m
}

// fromOpenAIMessages maps chat completion messages back to host format.
func fromOpenAIMessages(msgs []openai.ChatCompletionMessage) []messages.ChatMessage {
	var out []messages.ChatMessage
	for _, m := range msgs {
		switch m.Role {
		case openai.ChatMessageRoleSystem:
			out = append(out, messages.NewSystemText(m.Content))
		case openai.ChatMessageRoleUser:
			host := messages.ChatMessage{Role: messages.MessageRoleUser}
			if len(m.MultiContent) == 0 {
				host.Parts = []messages.Part{messages.TextPart{Text: m.Content}}
			} else {
				for _, part := range m.MultiContent {
					switch part.Type {
					case openai.ChatMessagePartTypeImageURL:
						if p, ok := dataURLPart(part.ImageURL); ok {
							host.Parts = append(host.Parts, p)
						} else {
							host.Parts = append(host.Parts, messages.TextPart{Text: part.ImageURL.URL})
						}
					default:
						host.Parts = append(host.Parts, messages.TextPart{Text: part.Text})
					}
				}
			}
			out = append(out, host)
		case openai.ChatMessageRoleAssistant:
			host := messages.ChatMessage{Role: messages.MessageRoleAssistant}
			if m.ReasoningContent != "" {
				host.Parts = append(host.Parts, messages.ThinkingPart{Text: m.ReasoningContent})
			}
			if m.Content != "" {
				host.Parts = append(host.Parts, messages.TextPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, ok := parseToolArgs(tc.Function.Arguments)
				if !ok {
					core.GetLogger().Warnw("dropping tool call with undecodable arguments",
						"tool", tc.Function.Name, "call_id", tc.ID)
					continue
				}
				host.Parts = append(host.Parts, messages.ToolCallPart{
					CallID: tc.ID,
					Name:   tc.Function.Name,
					Input:  input,
				})
			}
			out = append(out, host)
		case openai.ChatMessageRoleTool:
			out = append(out, messages.ChatMessage{
				Role: messages.MessageRoleTool,
				Parts: []messages.Part{
					messages.ToolResultPart{CallID: m.ToolCallID, Output: m.Content},
				},
			})
		}
	}
	return out
}

func dataURLPart(img *openai.ChatMessageImageURL) (messages.Part, bool) {
	if img == nil || !strings.HasPrefix(img.URL, "data:") {
		return nil, false
	}
	rest, ok := strings.CutPrefix(img.URL, "data:")
	if !ok {
		return nil, false
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return messages.DataPart{MIMEType: mime, Data: data}, true
}
