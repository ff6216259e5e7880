package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/tools"
)

// AnthropicVariant speaks the Anthropic Messages API. Extended thinking
// blocks carry an integrity signature that must be replayed with the block,
// so signatures are cached per thinking ID and looked up again on every
// outbound translation.
type AnthropicVariant struct {
	client     anthropic.Client
	signatures *metastore.Namespace
	responses  *metastore.Namespace
}

func NewAnthropicVariant(apiKey string, sdkRetries int, caches *metastore.Registry) *AnthropicVariant {
	return &AnthropicVariant{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(sdkRetries),
		),
		signatures: caches.Namespace(metastore.NamespaceReasoningSignature, metastore.Options{Persist: true}),
		responses:  caches.Namespace(metastore.NamespaceLastResponse, metastore.Options{Persist: true}),
	}
}

func (v *AnthropicVariant) Name() string { return "anthropic" }

func (v *AnthropicVariant) Hooks(*CompletionRequest) Hooks {
	return Hooks{
		GetProviderOptions: func(req *CompletionRequest) map[string]any {
			if !req.Thinking {
				return nil
			}
			budget := int64(req.MaxTokens / 2)
			if budget < 1024 {
				budget = 1024
			}
			return map[string]any{"thinking_budget": budget}
		},
		ProcessResponseMetadata: func(req *CompletionRequest, meta messages.ResponseMeta) {
			if meta.ResponseID != "" {
				v.responses.Set(req.Model, meta.ResponseID)
			}
		},
	}
}

func (v *AnthropicVariant) Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error) {
	params := v.buildParams(req)

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

		stream := v.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		var (
			messageID        string
			usage            messages.UsageEvent
			stop             string
			toolID, toolName string
			args             strings.Builder
			thinkID          string
			signature        strings.Builder
		)
		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				messageID = ev.Message.ID
				usage.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockStartEvent:
				switch block := ev.ContentBlock.AsAny().(type) {
				case anthropic.ToolUseBlock:
					toolID, toolName = block.ID, block.Name
					args.Reset()
				case anthropic.ThinkingBlock:
					thinkID = fmt.Sprintf("%s:%d", messageID, ev.Index)
					signature.Reset()
				}
			case anthropic.ContentBlockDeltaEvent:
				switch d := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if !emit(messages.TextDelta{Text: d.Text}) {
						return
					}
				case anthropic.ThinkingDelta:
					if !emit(messages.ReasoningDelta{ID: thinkID, Text: d.Thinking}) {
						return
					}
				case anthropic.SignatureDelta:
					signature.WriteString(d.Signature)
				case anthropic.InputJSONDelta:
					args.WriteString(d.PartialJSON)
				}
			case anthropic.ContentBlockStopEvent:
				if toolID != "" {
					if input, ok := parseToolArgs(args.String()); ok {
						call := messages.ToolCallEvent{
							CallID: toolID,
							Name:   toolName,
							Input:  input,
						}
						if !emit(call) {
							return
						}
					} else {
						core.GetLogger().Warnw("dropping tool call with undecodable arguments",
							"tool", toolName, "call_id", toolID)
					}
					toolID, toolName = "", ""
				}
				if thinkID != "" {
					if signature.Len() > 0 {
						v.signatures.Set(thinkID, signature.String())
					}
					thinkID = ""
				}
			case anthropic.MessageDeltaEvent:
				usage.OutputTokens = int(ev.Usage.OutputTokens)
				stop = string(ev.Delta.StopReason)
			case anthropic.MessageStopEvent:
			}
		}
		if err := stream.Err(); err != nil {
			emit(messages.StreamError{Err: err})
			return
		}
		if !emit(usage) {
			return
		}
		emit(messages.ResponseMeta{ResponseID: messageID, StopReason: stop})
	}()
	return out, nil
}

func (v *AnthropicVariant) buildParams(req *CompletionRequest) anthropic.MessageNewParams {
	msgs, system := toAnthropicMessages(req.Messages, v.signatures)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ModelName(req.Model)),
		MaxTokens: int64(req.MaxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if len(req.Tools) > 0 {
		params.Tools = ToAnthropicTools(req.Tools)
	}
	if req.Thinking {
		if budget, ok := req.Options["thinking_budget"].(int64); ok {
			params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
		}
	}
	return params
}

// toAnthropicMessages translates host history into Anthropic message params.
// The system prompt travels outside the message list and is returned
// separately.
func toAnthropicMessages(history []messages.ChatMessage, signatures *metastore.Namespace) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var system strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(msg.TextContent())
		case messages.MessageRoleUser:
			out = append(out, anthropic.NewUserMessage(anthropicUserBlocks(msg)...))
		case messages.MessageRoleAssistant:
			if blocks := anthropicAssistantBlocks(msg, signatures); len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case messages.MessageRoleTool:
			for _, part := range msg.Parts {
				if res, ok := part.(messages.ToolResultPart); ok {
					block := anthropic.NewToolResultBlock(res.CallID, tools.StringifyResult(res.Output), false)
					out = append(out, anthropic.NewUserMessage(block))
				}
			}
		}
	}
	return out, system.String()
}

func anthropicUserBlocks(msg messages.ChatMessage) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		case messages.DataPart:
			data := base64.StdEncoding.EncodeToString(p.Data)
			blocks = append(blocks, anthropic.NewImageBlockBase64(p.MIMEType, data))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(messages.FallbackText(part)))
		}
	}
	if len(blocks) == 0 {
		// The API rejects messages without content; an empty turn goes out
		// as an explicit empty string.
		blocks = append(blocks, anthropic.NewTextBlock(""))
	}
	return blocks
}

func anthropicAssistantBlocks(msg messages.ChatMessage, signatures *metastore.Namespace) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		case messages.ThinkingPart:
			if messages.IsErrorMarker(p.ID) {
				continue
			}
			sig, ok := signatures.Get(p.ID)
			if !ok {
				// A replayed thinking block fails verification without its
				// signature; dropping it is safe, resending it is not.
				continue
			}
			blocks = append(blocks, anthropic.NewThinkingBlock(sig, p.Text))
		case messages.ToolCallPart:
			blocks = append(blocks, anthropic.NewToolUseBlock(p.CallID, p.Input, p.Name))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(messages.FallbackText(part)))
		}
	}
	return blocks
}
