package messages

// StreamPart is one incremental unit emitted by a backend variant during an
// exchange. The first three kinds are host-visible and must be forwarded to
// the host in receipt order; the remaining kinds are core bookkeeping and
// never reach the host sink.
type StreamPart interface {
	isStreamPart()
}

// ReasoningDelta is an incremental piece of an opaque reasoning trace.
type ReasoningDelta struct {
	ID   string
	Text string
}

// TextDelta is an incremental piece of assistant text.
type TextDelta struct {
	Text string
}

// ToolCallEvent is a completed tool invocation request. Metadata carries
// provider-specific opaque data (e.g. thought signatures) that must survive
// round-trips through the host conversation.
type ToolCallEvent struct {
	CallID   string
	Name     string
	Input    map[string]any
	Metadata map[string]string
}

// UsageEvent reports token counts observed on the stream.
type UsageEvent struct {
	InputTokens  int
	OutputTokens int
}

// ResponseMeta reports response-level identifiers once the backend supplies
// them, typically on the final chunk.
type ResponseMeta struct {
	ResponseID string
	StopReason string
}

// StreamError carries an error raised by the backend SDK mid-stream. The
// orchestrator captures it, lets the stream drain, and re-raises it after
// the loop so partial output already delivered is not retracted.
type StreamError struct {
	Err error
}

func (ReasoningDelta) isStreamPart() {}
func (TextDelta) isStreamPart()      {}
func (ToolCallEvent) isStreamPart()  {}
func (UsageEvent) isStreamPart()     {}
func (ResponseMeta) isStreamPart()   {}
func (StreamError) isStreamPart()    {}

// HostVisible reports whether a stream part is forwarded to the host sink.
func HostVisible(p StreamPart) bool {
	switch p.(type) {
	case ReasoningDelta, TextDelta, ToolCallEvent:
		return true
	default:
		return false
	}
}

// Accumulator folds stream parts into a final assistant message. Adjacent
// text deltas coalesce into one TextPart, reasoning deltas coalesce per ID,
// and tool-call events become ToolCallParts, all in arrival order.
type Accumulator struct {
	parts     []Part
	lastText  int // index into parts of the open TextPart, -1 if none
	lastThink int // index into parts of the open ThinkingPart, -1 if none
	thinkID   string
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{lastText: -1, lastThink: -1}
}

// Add folds one host-visible part into the accumulated message. Bookkeeping
// parts are ignored.
func (a *Accumulator) Add(p StreamPart) {
	switch v := p.(type) {
	case TextDelta:
		if a.lastText >= 0 && a.lastText == len(a.parts)-1 {
			t := a.parts[a.lastText].(TextPart)
			t.Text += v.Text
			a.parts[a.lastText] = t
			return
		}
		a.parts = append(a.parts, TextPart{Text: v.Text})
		a.lastText = len(a.parts) - 1
		a.lastThink = -1
	case ReasoningDelta:
		if a.lastThink >= 0 && a.lastThink == len(a.parts)-1 && a.thinkID == v.ID {
			t := a.parts[a.lastThink].(ThinkingPart)
			t.Text += v.Text
			a.parts[a.lastThink] = t
			return
		}
		a.parts = append(a.parts, ThinkingPart{Text: v.Text, ID: v.ID})
		a.lastThink = len(a.parts) - 1
		a.thinkID = v.ID
		a.lastText = -1
	case ToolCallEvent:
		a.parts = append(a.parts, ToolCallPart{CallID: v.CallID, Name: v.Name, Input: v.Input})
		a.lastText = -1
		a.lastThink = -1
	}
}

// Message returns the accumulated assistant message. Empty accumulation
// yields a message with no parts.
func (a *Accumulator) Message() ChatMessage {
	parts := make([]Part, len(a.parts))
	copy(parts, a.parts)
	return ChatMessage{Role: MessageRoleAssistant, Parts: parts}
}

// Len returns the number of accumulated parts.
func (a *Accumulator) Len() int {
	return len(a.parts)
}
