package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"pkdindustries/switchboard/internal/llm"
	"pkdindustries/switchboard/internal/messages"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// Printer renders one exchange's events to the terminal as they arrive.
// Reasoning streams dim, retry notices print as yellow lines, tool calls get
// one summary line each, and plain text passes through untouched.
type Printer struct {
	out   io.Writer
	color bool

	mu       sync.Mutex
	midLine  bool
	thinking bool
}

var _ llm.EventProcessor = (*Printer)(nil)

func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p *Printer) breakLine() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}

func (p *Printer) OnReasoning(delta messages.ReasoningDelta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if messages.IsErrorMarker(delta.ID) {
		p.breakLine()
		fmt.Fprintln(p.out, p.paint(ansiYellow, "! "+delta.Text))
		return
	}
	fmt.Fprint(p.out, p.paint(ansiDim, delta.Text))
	p.midLine = !strings.HasSuffix(delta.Text, "\n")
	p.thinking = true
}

func (p *Printer) OnContent(delta messages.TextDelta, firstChunk bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if firstChunk && p.thinking {
		p.breakLine()
		p.thinking = false
	}
	fmt.Fprint(p.out, delta.Text)
	p.midLine = !strings.HasSuffix(delta.Text, "\n")
}

func (p *Printer) OnToolCall(call messages.ToolCallPart) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	args := "{}"
	if b, err := json.Marshal(call.Input); err == nil {
		args = string(b)
	}
	line := fmt.Sprintf("→ %s(%s)", call.Name, truncate(args, 120))
	fmt.Fprintln(p.out, p.paint(ansiCyan, line))
}

func (p *Printer) OnComplete(msg messages.ChatMessage, usage llm.Usage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
}

func (p *Printer) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	fmt.Fprintln(p.out, p.paint(ansiRed, fmt.Sprintf("error: %v", err)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
