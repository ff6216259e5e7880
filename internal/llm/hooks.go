package llm

import (
	"pkdindustries/switchboard/internal/messages"
)

// Hooks are the per-variant override points in the shared exchange
// lifecycle. The zero value is fully usable: every nil field falls back to
// the default behavior below.
//
//   - GetProviderOptions runs once at setup and produces the provider
//     options map attached to the request.
//   - ProcessToolCallMetadata runs per tool-call event during streaming,
//     before the event reaches the host. Variants use it to stash
//     side-channel continuation data in the metadata cache.
//   - ProcessReasoningDelta runs per reasoning delta during streaming.
//     Variants that must replay full reasoning text on the next request
//     accumulate it here.
//   - ProcessResponseMetadata runs once at finalize with the response
//     identity the stream reported.
//   - ProcessResultData folds the raw usage events into the exchange's
//     token accounting.
type Hooks struct {
	GetProviderOptions      func(req *CompletionRequest) map[string]any
	ProcessToolCallMetadata func(event messages.ToolCallEvent)
	ProcessReasoningDelta   func(delta messages.ReasoningDelta)
	ProcessResponseMetadata func(req *CompletionRequest, meta messages.ResponseMeta)
	ProcessResultData       func(events []messages.UsageEvent) Usage
}

func (h Hooks) providerOptions(req *CompletionRequest) map[string]any {
	if h.GetProviderOptions == nil {
		return nil
	}
	return h.GetProviderOptions(req)
}

func (h Hooks) toolCallMetadata(event messages.ToolCallEvent) {
	if h.ProcessToolCallMetadata != nil {
		h.ProcessToolCallMetadata(event)
	}
}

func (h Hooks) reasoningDelta(delta messages.ReasoningDelta) {
	if h.ProcessReasoningDelta != nil {
		h.ProcessReasoningDelta(delta)
	}
}

func (h Hooks) responseMetadata(req *CompletionRequest, meta messages.ResponseMeta) {
	if h.ProcessResponseMetadata != nil {
		h.ProcessResponseMetadata(req, meta)
	}
}

func (h Hooks) resultData(events []messages.UsageEvent) Usage {
	if h.ProcessResultData != nil {
		return h.ProcessResultData(events)
	}
	var u Usage
	for _, ev := range events {
		u.InputTokens += ev.InputTokens
		u.OutputTokens += ev.OutputTokens
	}
	return u
}
