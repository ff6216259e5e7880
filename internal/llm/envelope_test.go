package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/tools"
)

func newEnvelope(v Variant, log *audit.Log) *Envelope {
	return NewEnvelope(NewOrchestrator(v, log, nil))
}

func TestTextExchangeEndToEnd(t *testing.T) {
	v := &scriptedVariant{scripts: [][]messages.StreamPart{{
		messages.TextDelta{Text: "Hello"},
		messages.TextDelta{Text: " world"},
		messages.UsageEvent{InputTokens: 3, OutputTokens: 2},
		messages.ResponseMeta{ResponseID: "r1", StopReason: "stop"},
	}}}
	log := audit.NewLog(10)
	env := newEnvelope(v, log)
	rec := &recorder{}

	msg, err := env.ChatCompletionStream(context.Background(), userRequest("Hi"), rec)
	require.NoError(t, err)

	assert.Equal(t, messages.MessageRoleAssistant, msg.Role)
	assert.Equal(t, "Hello world", msg.TextContent())
	assert.Equal(t, []string{"Hello", " world"}, rec.content, "progress arrives as two parts in order")

	require.Len(t, rec.completed, 1)
	assert.Equal(t, msg, rec.completed[0])
	assert.Empty(t, rec.errs)

	records := log.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Completed)
	assert.Equal(t, "Hello world", strings.Join(records[0].Response.TextParts, ""))
	assert.Equal(t, 3, records[0].Response.Usage.InputTokens)
	assert.Equal(t, 2, records[0].Response.Usage.OutputTokens)
}

func TestRetryBound(t *testing.T) {
	boom := errors.New("always down")
	v := &scriptedVariant{streamErr: boom}
	env := newEnvelope(v, nil)
	rec := &recorder{}

	req := userRequest("Hi")
	req.Retries = 3

	_, err := env.ChatCompletionStream(context.Background(), req, rec)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, v.calls, "the backend is invoked exactly once per attempt")
	require.Len(t, rec.errs, 1, "the host sees exactly one terminal error")
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Empty(t, rec.completed)
}

func TestRetryDefaultsToThreeAttempts(t *testing.T) {
	v := &scriptedVariant{streamErr: errors.New("nope")}
	env := newEnvelope(v, nil)

	_, err := env.ChatCompletionStream(context.Background(), userRequest("Hi"), &recorder{})
	require.Error(t, err)
	assert.Equal(t, DefaultRetries, v.calls)
}

func TestRetrySuccessCarriesTransientNotices(t *testing.T) {
	boom := errors.New("flaky")
	v := &scriptedVariant{scripts: [][]messages.StreamPart{
		{messages.StreamError{Err: boom}},
		{messages.StreamError{Err: boom}},
		{messages.TextDelta{Text: "Hello"}},
	}}
	env := newEnvelope(v, nil)
	rec := &recorder{}

	msg, err := env.ChatCompletionStream(context.Background(), userRequest("Hi"), rec)
	require.NoError(t, err)
	assert.Equal(t, 3, v.calls)

	// Two marker thinking parts precede the content that finally landed.
	require.Len(t, msg.Parts, 3)
	for i := 0; i < 2; i++ {
		think, ok := msg.Parts[i].(messages.ThinkingPart)
		require.True(t, ok, "part %d should be a thinking notice", i)
		assert.True(t, messages.IsErrorMarker(think.ID))
		assert.Contains(t, think.Text, "failed")
	}
	text, ok := msg.Parts[2].(messages.TextPart)
	require.True(t, ok)
	assert.Equal(t, "Hello", text.Text)

	// The host watched the notices arrive live as reasoning.
	require.Len(t, rec.reasoning, 2)
	assert.True(t, messages.IsErrorMarker(rec.reasoning[0].ID))
	assert.Empty(t, rec.errs)
	require.Len(t, rec.completed, 1)
	assert.Equal(t, msg, rec.completed[0])
}

func TestRetryFailedAttemptsStayVisibleInAudit(t *testing.T) {
	boom := errors.New("flaky")
	v := &scriptedVariant{scripts: [][]messages.StreamPart{
		{messages.StreamError{Err: boom}},
		{messages.TextDelta{Text: "ok"}},
	}}
	log := audit.NewLog(10)
	env := newEnvelope(v, log)

	_, err := env.ChatCompletionStream(context.Background(), userRequest("Hi"), &recorder{})
	require.NoError(t, err)

	records := log.Records()
	require.Len(t, records, 2)
	assert.False(t, records[0].Completed)
	assert.True(t, records[1].Completed)
}

func TestInvalidToolNameRejectedBeforeAnyRequest(t *testing.T) {
	v := &scriptedVariant{scripts: [][]messages.StreamPart{{messages.TextDelta{Text: "never"}}}}
	env := newEnvelope(v, nil)
	rec := &recorder{}

	req := userRequest("Hi")
	req.Tools = []tools.Tool{namedTool{name: "invalid name!"}}

	_, err := env.ChatCompletionStream(context.Background(), req, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToolName)
	assert.Equal(t, 0, v.calls, "config errors never reach the backend")
	require.Len(t, rec.errs, 1, "config errors are not retried")
}

func TestAbortIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := &scriptedVariant{scripts: [][]messages.StreamPart{{
		messages.TextDelta{Text: "one"},
		messages.TextDelta{Text: "two"},
	}}}
	env := newEnvelope(v, nil)
	rec := &recorder{onContent: cancel}

	_, err := env.ChatCompletionStream(ctx, userRequest("Hi"), rec)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, v.calls, "an abort consumes no further attempts")
	assert.Empty(t, rec.errs, "an abort is not reported as a failure")
	assert.Empty(t, rec.completed)
}

func TestSameRequestSafelyRetriedAcrossCalls(t *testing.T) {
	boom := errors.New("first call dies")
	v := &scriptedVariant{scripts: [][]messages.StreamPart{
		{messages.TextDelta{Text: "partial"}, messages.StreamError{Err: boom}},
		{messages.TextDelta{Text: "clean"}},
	}}
	env := newEnvelope(v, nil)

	req := userRequest("Hi")
	msg, err := env.ChatCompletionStream(context.Background(), req, &recorder{})
	require.NoError(t, err)

	// The failed attempt's partial accumulation is discarded, not merged.
	assert.Equal(t, "clean", msg.TextContent())
	assert.Nil(t, req.Options)
}
