package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/messages"
)

type exchangeState int

const (
	stateSettingUp exchangeState = iota
	stateStreaming
	stateFinalizing
	stateDone
	stateFailed
	stateAborted
)

func (s exchangeState) String() string {
	switch s {
	case stateSettingUp:
		return "setup"
	case stateStreaming:
		return "streaming"
	case stateFinalizing:
		return "finalizing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	case stateAborted:
		return "aborted"
	}
	return "unknown"
}

// exchange is the working state of one request/response cycle. A failed
// attempt's exchange is discarded whole; a retry starts from a fresh one.
type exchange struct {
	id      int64
	request *CompletionRequest
	hooks   Hooks
	acc     *messages.Accumulator
	record  *audit.Record
	usage   []messages.UsageEvent
	meta    messages.ResponseMeta
	started time.Time
	state   exchangeState
}

// Orchestrator drives one exchange through three phases against a single
// variant, in practice the router. Setup validates tools, resolves hooks
// and opens the audit record; execute streams the response, dispatching
// each host-visible part synchronously to the progress sink and then the
// accumulator; finalize folds usage, commits the audit record and
// publishes token counts.
type Orchestrator struct {
	variant Variant
	log     *audit.Log
	status  StatusReporter
	nextID  atomic.Int64
}

func NewOrchestrator(variant Variant, log *audit.Log, status StatusReporter) *Orchestrator {
	if status == nil {
		status = NopStatus{}
	}
	return &Orchestrator{variant: variant, log: log, status: status}
}

// Execute runs a single attempt end to end and returns the accumulated
// assistant message. The returned error is nil only after finalize.
func (o *Orchestrator) Execute(ctx context.Context, req *CompletionRequest, proc EventProcessor) (messages.ChatMessage, Usage, error) {
	ex, err := o.setup(req)
	if err != nil {
		return messages.ChatMessage{}, Usage{}, err
	}
	logger := core.WithExchange(core.GetLogger(), fmt.Sprintf("ex-%d", ex.id), req.Model)
	logger.Debugw("exchange starting", "messages", len(req.Messages), "tools", len(req.Tools))

	if err := o.execute(ctx, ex, proc); err != nil {
		if ctx.Err() != nil {
			ex.state = stateAborted
			logger.Debugw("exchange aborted", "state", ex.state.String())
		} else {
			ex.state = stateFailed
			logger.Warnw("exchange failed", "error", err)
		}
		return messages.ChatMessage{}, Usage{}, err
	}

	msg, usage := o.finalize(ex)
	logger.Debugw("exchange complete",
		"parts", len(msg.Parts),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return msg, usage, nil
}

func (o *Orchestrator) setup(req *CompletionRequest) (*exchange, error) {
	if err := validateTools(req.Tools); err != nil {
		return nil, err
	}
	hooks := o.variant.Hooks(req)

	// Shallow copy so per-exchange options never leak into the caller's
	// request between attempts.
	r := *req
	r.Options = hooks.providerOptions(&r)

	ex := &exchange{
		id:      o.nextID.Add(1),
		request: &r,
		hooks:   hooks,
		acc:     messages.NewAccumulator(),
		started: time.Now(),
		state:   stateSettingUp,
	}
	if o.log != nil {
		names := make([]string, 0, len(req.Tools))
		for _, t := range req.Tools {
			names = append(names, t.GetName())
		}
		ex.record = o.log.Append(audit.RequestInfo{
			Messages: req.Messages,
			Tools:    names,
			ModelConfig: audit.ModelConfig{
				Model:       req.Model,
				MaxTokens:   req.MaxTokens,
				Temperature: req.Temperature,
				TopP:        req.TopP,
				Retries:     req.Retries,
			},
			Timestamp: ex.started,
		})
	}
	return ex, nil
}

func (o *Orchestrator) execute(ctx context.Context, ex *exchange, proc EventProcessor) error {
	ex.state = stateStreaming
	ch, err := o.variant.Stream(ctx, ex.request)
	if err != nil {
		return err
	}

	var streamErr error
	firstChunk := true
	for part := range ch {
		if ctx.Err() != nil {
			// Host aborted: keep draining so the producer can exit, but
			// forward nothing further.
			continue
		}
		switch p := part.(type) {
		case messages.ReasoningDelta:
			ex.hooks.reasoningDelta(p)
			proc.OnReasoning(p)
			ex.acc.Add(p)
		case messages.TextDelta:
			proc.OnContent(p, firstChunk)
			firstChunk = false
			ex.acc.Add(p)
		case messages.ToolCallEvent:
			ex.hooks.toolCallMetadata(p)
			proc.OnToolCall(messages.ToolCallPart{CallID: p.CallID, Name: p.Name, Input: p.Input})
			ex.acc.Add(p)
		case messages.UsageEvent:
			ex.usage = append(ex.usage, p)
		case messages.ResponseMeta:
			ex.meta = p
		case messages.StreamError:
			// Captured, not returned yet: the loop drains to completion
			// first so the producer never blocks on a dead consumer.
			streamErr = p.Err
		}
	}
	if streamErr != nil {
		return streamErr
	}
	return ctx.Err()
}

func (o *Orchestrator) finalize(ex *exchange) (messages.ChatMessage, Usage) {
	ex.state = stateFinalizing
	ex.hooks.responseMetadata(ex.request, ex.meta)
	usage := ex.hooks.resultData(ex.usage)
	msg := ex.acc.Message()

	if o.log != nil && ex.record != nil {
		o.log.Complete(ex.record, responseInfo(msg, usage, time.Since(ex.started)))
	}
	o.status.UpdateTokenCount(usage.Total(), ex.request.MaxTokens)
	ex.state = stateDone
	return msg, usage
}

func responseInfo(msg messages.ChatMessage, usage Usage, elapsed time.Duration) audit.ResponseInfo {
	info := audit.ResponseInfo{
		Usage:      audit.Usage{InputTokens: usage.InputTokens, OutputTokens: usage.OutputTokens},
		DurationMS: elapsed.Milliseconds(),
		Timestamp:  time.Now(),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		info.TokensPerSecond = float64(usage.OutputTokens) / secs
	}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case messages.TextPart:
			info.TextParts = append(info.TextParts, p.Text)
		case messages.ThinkingPart:
			info.ThinkingParts = append(info.ThinkingParts, p.Text)
		case messages.ToolCallPart:
			info.ToolCallParts = append(info.ToolCallParts, p)
		}
	}
	return info
}
