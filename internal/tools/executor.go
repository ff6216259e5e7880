package tools

import (
	"context"
	"fmt"
	"time"

	"pkdindustries/switchboard/internal/messages"
)

// ExecutionHooks lets the host observe and wrap tool execution. BeforeExecute
// may return a derived context (e.g. to inject host state for the tool);
// AfterExecute fires once per call with the outcome.
type ExecutionHooks struct {
	BeforeExecute func(ctx context.Context, call messages.ToolCallPart, args map[string]any) context.Context
	AfterExecute  func(call messages.ToolCallPart, result string, duration time.Duration, err error)
}

// Executor runs tool calls against a registry, normalizing arguments and
// validating them against each tool's schema first.
type Executor struct {
	registry *Registry
	hooks    *ExecutionHooks
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// WithHooks attaches execution hooks and returns the executor for chaining.
func (e *Executor) WithHooks(h *ExecutionHooks) *Executor {
	e.hooks = h
	return e
}

// Execute runs a single tool call and always produces a paired result, even
// on failure, so the call/result invariant holds for the continuation turn.
func (e *Executor) Execute(ctx context.Context, call messages.ToolCallPart) messages.ToolResultPart {
	result := messages.ToolResultPart{CallID: call.CallID, Name: call.Name}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		result.Output = fmt.Sprintf("error: tool %q not found", call.Name)
		return result
	}

	schema := SchemaOf(tool)
	args := NormalizeInput(schema, call.Input)
	if args == nil {
		args = map[string]any{}
	}

	if resolved, err := schema.Resolve(nil); err == nil {
		if verr := resolved.Validate(args); verr != nil {
			result.Output = fmt.Sprintf("error: invalid arguments: %v", verr)
			if e.hooks != nil && e.hooks.AfterExecute != nil {
				e.hooks.AfterExecute(call, result.Output.(string), 0, verr)
			}
			return result
		}
	}

	execCtx := ctx
	if e.hooks != nil && e.hooks.BeforeExecute != nil {
		execCtx = e.hooks.BeforeExecute(ctx, call, args)
	}

	start := time.Now()
	out, err := tool.Execute(execCtx, args)
	duration := time.Since(start)

	if e.hooks != nil && e.hooks.AfterExecute != nil {
		e.hooks.AfterExecute(call, out, duration, err)
	}

	if err != nil {
		result.Output = fmt.Sprintf("error: %v", err)
		return result
	}
	result.Output = out
	return result
}

// ExecuteAll runs each call in order. If the context is canceled partway,
// remaining calls get synthetic canceled results rather than being skipped,
// keeping every call answered.
func (e *Executor) ExecuteAll(ctx context.Context, calls []messages.ToolCallPart) []messages.ToolResultPart {
	results := make([]messages.ToolResultPart, 0, len(calls))
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			for _, rest := range calls[i:] {
				results = append(results, messages.ToolResultPart{
					CallID: rest.CallID,
					Name:   rest.Name,
					Output: "error: canceled before execution",
				})
			}
			break
		}
		results = append(results, e.Execute(ctx, call))
	}
	return results
}
