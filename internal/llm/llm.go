package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/tools"
)

// Configuration errors fail an exchange before any network traffic and are
// never retried.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrBadModelSlug    = errors.New("model must include provider prefix, e.g. 'openai/gpt-4o'")
	ErrNoAPIKey        = errors.New("no API key configured")
	ErrInvalidToolName = errors.New("invalid tool name")
)

// IsConfigError reports whether err is a pre-network configuration failure
// that retrying cannot fix.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownProvider) ||
		errors.Is(err, ErrBadModelSlug) ||
		errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidToolName)
}

// CompletionRequest carries everything one exchange needs. Messages and
// Tools stay in host format; each variant translates on its way out.
type CompletionRequest struct {
	Model       string // provider/model slug, e.g. "anthropic/claude-sonnet-4-5"
	Messages    []messages.ChatMessage
	Tools       []tools.Tool
	MaxTokens   int
	Temperature *float64 // nil omits the parameter so the backend default applies
	TopP        *float64
	Thinking    bool
	Timeout     time.Duration
	Retries     int // attempts in the retry envelope

	// Options carries provider-specific knobs produced by the variant's
	// GetProviderOptions hook at setup time.
	Options map[string]any
}

// ModelName strips the provider prefix from a slug.
func ModelName(slug string) string {
	if i := strings.Index(slug, "/"); i >= 0 {
		return slug[i+1:]
	}
	return slug
}

// ProviderName returns the provider prefix of a slug, or "" when absent.
func ProviderName(slug string) string {
	if i := strings.Index(slug, "/"); i >= 0 {
		return slug[:i]
	}
	return ""
}

// Usage is the token accounting observed on one exchange.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// EventProcessor receives host-visible progress for one exchange, in arrival
// order. OnComplete fires once on success with the final assembled message;
// OnError fires once when every attempt has failed.
type EventProcessor interface {
	OnReasoning(delta messages.ReasoningDelta)
	OnContent(delta messages.TextDelta, firstChunk bool)
	OnToolCall(call messages.ToolCallPart)
	OnComplete(response messages.ChatMessage, usage Usage)
	OnError(err error)
}

// Variant binds one upstream provider family: it translates host messages to
// the provider SDK's shapes, owns the SDK client, and exposes its hook
// overrides. The routing variant implements the same interface by picking an
// inner variant per request.
type Variant interface {
	Name() string
	Hooks(req *CompletionRequest) Hooks
	Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error)
}

// LLM is the host-facing completion surface: one call streams one exchange
// through the retry envelope and returns the final assistant message.
type LLM interface {
	ChatCompletionStream(ctx context.Context, req *CompletionRequest, proc EventProcessor) (messages.ChatMessage, error)
}

// validateTools rejects tool names no backend accepts, before any request
// is built.
func validateTools(ts []tools.Tool) error {
	for _, t := range ts {
		if err := tools.ValidateName(t.GetName()); err != nil {
			return errors.Join(ErrInvalidToolName, err)
		}
	}
	return nil
}

// parseToolArgs decodes a streamed argument payload. An empty payload is a
// valid no-argument call; a payload that does not decode reports ok false so
// the caller can log and drop the call instead of passing it along
// half-formed.
func parseToolArgs(raw string) (args map[string]any, ok bool) {
	args = map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, true
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	return args, true
}

// marshalToolArgs renders an argument map as the JSON object string the
// wire formats carry.
func marshalToolArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
