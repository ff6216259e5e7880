package llm

import (
	"context"
	"fmt"

	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/messages"
)

// DefaultRetries is the attempt bound when a request does not set one.
const DefaultRetries = 3

// Envelope wraps the orchestrator with bounded retries. Each failed attempt
// leaves a synthetic thinking part in the final transcript, carrying an
// error-marker id that the outbound translators strip, so the host sees
// what happened without any backend being asked to interpret it. A host
// abort is not a failure and is never retried; configuration errors fail
// on the first attempt.
type Envelope struct {
	orch *Orchestrator
}

func NewEnvelope(orch *Orchestrator) *Envelope {
	return &Envelope{orch: orch}
}

var _ LLM = (*Envelope)(nil)

func (e *Envelope) ChatCompletionStream(ctx context.Context, req *CompletionRequest, proc EventProcessor) (messages.ChatMessage, error) {
	attempts := req.Retries
	if attempts <= 0 {
		attempts = DefaultRetries
	}
	logger := core.GetLogger().With("model", req.Model)

	var notices []messages.Part
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		msg, usage, err := e.orch.Execute(ctx, req, proc)
		if err == nil {
			if len(notices) > 0 {
				msg.Parts = append(append([]messages.Part{}, notices...), msg.Parts...)
			}
			proc.OnComplete(msg, usage)
			return msg, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Aborted by the host; partial output is discarded.
			return messages.ChatMessage{}, err
		}
		if IsConfigError(err) {
			break
		}
		if attempt < attempts {
			logger.Warnw("attempt failed, retrying",
				"attempt", attempt,
				"of", attempts,
				"error", err,
			)
			notice := messages.ThinkingPart{
				ID:   fmt.Sprintf("%s:attempt-%d", messages.ErrorMarkerPrefix, attempt),
				Text: fmt.Sprintf("attempt %d/%d failed: %v", attempt, attempts, err),
			}
			notices = append(notices, notice)
			proc.OnReasoning(messages.ReasoningDelta{ID: notice.ID, Text: notice.Text})
		}
	}
	proc.OnError(lastErr)
	return messages.ChatMessage{}, lastErr
}
