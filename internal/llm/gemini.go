package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/tools"
)

// GeminiVariant speaks the Gemini API. Thought signatures ride function
// call parts; each one is cached against its callID and re-attached when
// the call replays in later history, without which multi-turn tool use
// degrades.
type GeminiVariant struct {
	client        *genai.Client
	continuations *metastore.Namespace
	responses     *metastore.Namespace
}

func NewGeminiVariant(apiKey string, caches *metastore.Registry) (*GeminiVariant, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiVariant{
		client:        client,
		continuations: caches.Namespace(metastore.NamespaceToolContinuation, metastore.Options{Persist: true}),
		responses:     caches.Namespace(metastore.NamespaceLastResponse, metastore.Options{Persist: true}),
	}, nil
}

func (v *GeminiVariant) Name() string { return "gemini" }

func (v *GeminiVariant) Hooks(*CompletionRequest) Hooks {
	return Hooks{
		GetProviderOptions: func(req *CompletionRequest) map[string]any {
			if !req.Thinking {
				return nil
			}
			return map[string]any{"include_thoughts": true}
		},
		ProcessToolCallMetadata: func(event messages.ToolCallEvent) {
			if sig, ok := event.Metadata["thought_signature"]; ok {
				v.continuations.Set(event.CallID, sig)
			}
		},
		ProcessResponseMetadata: func(req *CompletionRequest, meta messages.ResponseMeta) {
			if meta.ResponseID != "" {
				v.responses.Set(req.Model, meta.ResponseID)
			}
		},
	}
}

func (v *GeminiVariant) Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error) {
	contents, system := toGeminiContents(req.Messages, v.continuations)

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		config.TopP = &p
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = ToGeminiTools(req.Tools)
	}
	if include, ok := req.Options["include_thoughts"].(bool); ok && include {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

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
			usage      messages.UsageEvent
			responseID string
			reasonID   string
			finish     string
			callIdx    int
		)
		for resp, err := range v.client.Models.GenerateContentStream(ctx, ModelName(req.Model), contents, config) {
			if err != nil {
				emit(messages.StreamError{Err: err})
				return
			}
			if resp.ResponseID != "" {
				responseID = resp.ResponseID
			}
			if resp.UsageMetadata != nil {
				usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
				usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason != "" {
				finish = string(candidate.FinishReason)
			}
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				switch {
				case part.FunctionCall != nil:
					id := part.FunctionCall.ID
					if id == "" {
						id = fmt.Sprintf("%s-%d", part.FunctionCall.Name, callIdx)
					}
					callIdx++
					call := messages.ToolCallEvent{
						CallID: id,
						Name:   part.FunctionCall.Name,
						Input:  part.FunctionCall.Args,
					}
					if len(part.ThoughtSignature) > 0 {
						call.Metadata = map[string]string{
							"thought_signature": base64.StdEncoding.EncodeToString(part.ThoughtSignature),
						}
					}
					if !emit(call) {
						return
					}
				case part.Thought && part.Text != "":
					if reasonID == "" {
						reasonID = responseID
						if reasonID == "" {
							reasonID = "gemini-thought"
						}
					}
					if !emit(messages.ReasoningDelta{ID: reasonID, Text: part.Text}) {
						return
					}
				case part.Text != "":
					if !emit(messages.TextDelta{Text: part.Text}) {
						return
					}
				}
			}
		}
		if !emit(usage) {
			return
		}
		emit(messages.ResponseMeta{ResponseID: responseID, StopReason: finish})
	}()
	return out, nil
}

// toGeminiContents translates host history into Gemini contents. Tool
// responses need the original function name, so call IDs seen on assistant
// turns are threaded forward to the results that answer them.
func toGeminiContents(history []messages.ChatMessage, continuations *metastore.Namespace) ([]*genai.Content, string) {
	var out []*genai.Content
	var system string
	callNames := map[string]string{}
	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.TextContent()
		case messages.MessageRoleUser:
			out = append(out, geminiUserContent(msg))
		case messages.MessageRoleAssistant:
			if content := geminiAssistantContent(msg, continuations, callNames); content != nil {
				out = append(out, content)
			}
		case messages.MessageRoleTool:
			for _, part := range msg.Parts {
				res, ok := part.(messages.ToolResultPart)
				if !ok {
					continue
				}
				name := res.Name
				if name == "" {
					name = callNames[res.CallID]
				}
				response, ok := res.Output.(map[string]any)
				if !ok {
					response = map[string]any{"result": tools.StringifyResult(res.Output)}
				}
				out = append(out, &genai.Content{
					Role: genai.RoleUser,
					Parts: []*genai.Part{{
						FunctionResponse: &genai.FunctionResponse{
							ID:       res.CallID,
							Name:     name,
							Response: response,
						},
					}},
				})
			}
		}
	}
	return out, system
}

func geminiUserContent(msg messages.ChatMessage) *genai.Content {
	var parts []*genai.Part
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			parts = append(parts, genai.NewPartFromText(p.Text))
		case messages.DataPart:
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
		default:
			parts = append(parts, genai.NewPartFromText(messages.FallbackText(part)))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(""))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

func geminiAssistantContent(msg messages.ChatMessage, continuations *metastore.Namespace, callNames map[string]string) *genai.Content {
	var parts []*genai.Part
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			if p.Text != "" {
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		case messages.ThinkingPart:
			// Reasoning does not replay to Gemini as text; thought
			// signatures on the function calls carry the continuity.
		case messages.ToolCallPart:
			callNames[p.CallID] = p.Name
			fc := genai.NewPartFromFunctionCall(p.Name, p.Input)
			fc.FunctionCall.ID = p.CallID
			if sig, ok := continuations.Get(p.CallID); ok {
				if data, err := base64.StdEncoding.DecodeString(sig); err == nil {
					fc.ThoughtSignature = data
				}
			}
			parts = append(parts, fc)
		default:
			parts = append(parts, genai.NewPartFromText(messages.FallbackText(part)))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return genai.NewContentFromParts(parts, genai.RoleModel)
}
