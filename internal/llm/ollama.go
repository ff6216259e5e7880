package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/tools"
)

// OllamaVariant speaks to a local or remote Ollama server. The native API
// never issues tool call IDs, so the stream synthesizes stable ones; it
// also keeps no cross-turn continuation state, which makes this the one
// variant with no cache bindings.
type OllamaVariant struct {
	client *ollamaapi.Client
}

// authTransport adds a bearer token for Ollama servers behind an
// authenticating proxy.
type authTransport struct {
	key  string
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	clone := r.Clone(r.Context())
	clone.Header.Set("Authorization", "Bearer "+t.key)
	return t.base.RoundTrip(clone)
}

func NewOllamaVariant(baseURL, apiKey string) *OllamaVariant {
	u, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		u = &url.URL{Scheme: "http", Host: "localhost:11434"}
	}
	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{
			Transport: &authTransport{key: apiKey, base: http.DefaultTransport},
		}
	}
	return &OllamaVariant{client: ollamaapi.NewClient(u, httpClient)}
}

func (v *OllamaVariant) Name() string { return "ollama" }

func (v *OllamaVariant) Hooks(*CompletionRequest) Hooks {
	return Hooks{
		GetProviderOptions: func(req *CompletionRequest) map[string]any {
			if !req.Thinking {
				return nil
			}
			return map[string]any{"think": true}
		},
	}
}

func (v *OllamaVariant) Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error) {
	chatReq := v.buildRequest(req)

	var cancel context.CancelFunc
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	out := make(chan messages.StreamPart)
	go func() {
		defer close(out)
		defer cancel()

		emit := func(p messages.StreamPart) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var (
			usage   messages.UsageEvent
			finish  string
			callIdx int
		)
		err := v.client.Chat(ctx, &chatReq, func(resp ollamaapi.ChatResponse) error {
			if resp.Message.Thinking != "" {
				if !emit(messages.ReasoningDelta{ID: "ollama-thinking", Text: resp.Message.Thinking}) {
					return ctx.Err()
				}
			}
			if resp.Message.Content != "" {
				if !emit(messages.TextDelta{Text: resp.Message.Content}) {
					return ctx.Err()
				}
			}
			for _, tc := range resp.Message.ToolCalls {
				call := messages.ToolCallEvent{
					CallID: fmt.Sprintf("ollama-%d", callIdx),
					Name:   tc.Function.Name,
					Input:  tc.Function.Arguments,
				}
				callIdx++
				if !emit(call) {
					return ctx.Err()
				}
			}
			if resp.Done {
				usage.InputTokens = resp.Metrics.PromptEvalCount
				usage.OutputTokens = resp.Metrics.EvalCount
				finish = resp.DoneReason
			}
			return nil
		})
		if err != nil {
			if ctx.Err() == nil {
				emit(messages.StreamError{Err: err})
			}
			return
		}
		if !emit(usage) {
			return
		}
		emit(messages.ResponseMeta{StopReason: finish})
	}()
	return out, nil
}

func (v *OllamaVariant) buildRequest(req *CompletionRequest) ollamaapi.ChatRequest {
	stream := true
	chatReq := ollamaapi.ChatRequest{
		Model:    ModelName(req.Model),
		Messages: toOllamaMessages(req.Messages),
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		chatReq.Options["top_p"] = *req.TopP
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ToOllamaTools(req.Tools)
	}
	if think, ok := req.Options["think"].(bool); ok && think {
		chatReq.Think = &ollamaapi.ThinkValue{Value: true}
	}
	return chatReq
}

func toOllamaMessages(history []messages.ChatMessage) []ollamaapi.Message {
	var out []ollamaapi.Message
	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleSystem:
			out = append(out, ollamaapi.Message{Role: "system", Content: msg.TextContent()})
		case messages.MessageRoleUser:
			m := ollamaapi.Message{Role: "user"}
			for _, part := range msg.Parts {
				switch p := part.(type) {
				case messages.TextPart:
					m.Content += p.Text
				case messages.DataPart:
					m.Images = append(m.Images, ollamaapi.ImageData(p.Data))
				default:
					m.Content += messages.FallbackText(part)
				}
			}
			out = append(out, m)
		case messages.MessageRoleAssistant:
			m := ollamaapi.Message{Role: "assistant"}
			for _, part := range msg.Parts {
				switch p := part.(type) {
				case messages.TextPart:
					m.Content += p.Text
				case messages.ThinkingPart:
					if !messages.IsErrorMarker(p.ID) {
						m.Thinking += p.Text
					}
				case messages.ToolCallPart:
					m.ToolCalls = append(m.ToolCalls, ollamaapi.ToolCall{
						Function: ollamaapi.ToolCallFunction{
							Name:      p.Name,
							Arguments: p.Input,
						},
					})
				default:
					m.Content += messages.FallbackText(part)
				}
			}
			if m.Content == "" && len(m.ToolCalls) == 0 {
				continue
			}
			out = append(out, m)
		case messages.MessageRoleTool:
			for _, part := range msg.Parts {
				if res, ok := part.(messages.ToolResultPart); ok {
					out = append(out, ollamaapi.Message{
						Role:    "tool",
						Content: tools.StringifyResult(res.Output),
					})
				}
			}
		}
	}
	return out
}
