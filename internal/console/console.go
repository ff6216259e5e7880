package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"pkdindustries/switchboard/internal/commands"
	"pkdindustries/switchboard/internal/config"
	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/llm"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/tools"
)

// maxToolTurns bounds how many times one user input may loop through tool
// execution before the exchange is cut off.
const maxToolTurns = 8

// conversationKey names the single console conversation for request locking.
const conversationKey = "console"

// Options wires a Console.
type Options struct {
	Config   *config.Configuration
	Client   llm.LLM
	Session  *Session
	Tools    *tools.Registry
	Commands *commands.Registry
	Env      *commands.Env
	In       io.Reader
	Out      io.Writer
	Color    bool
}

// Console is the interactive host: a line-oriented loop that feeds user turns
// through the completion pipeline and executes any tool calls the model makes.
type Console struct {
	cfg      *config.Configuration
	client   llm.LLM
	session  *Session
	registry *tools.Registry
	executor *tools.Executor
	commands *commands.Registry
	env      *commands.Env
	in       io.Reader
	out      io.Writer
	color    bool
}

func New(opts Options) *Console {
	return &Console{
		cfg:      opts.Config,
		client:   opts.Client,
		session:  opts.Session,
		registry: opts.Tools,
		executor: tools.NewExecutor(opts.Tools).WithHooks(executionHooks()),
		commands: opts.Commands,
		env:      opts.Env,
		in:       opts.In,
		out:      opts.Out,
		color:    opts.Color,
	}
}

// Run reads lines until EOF, /quit, or context cancellation. Slash lines go
// to the command registry; everything else becomes a user turn.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/"):
			c.commands.Dispatch(c.env, line)
			if c.env.QuitRequested() {
				return nil
			}
		default:
			c.exchange(ctx, line)
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *Console) prompt() {
	if c.color {
		fmt.Fprint(c.out, "\x1b[1m>\x1b[0m ")
		return
	}
	fmt.Fprint(c.out, "> ")
}

func (c *Console) notice(text string) {
	if c.color {
		fmt.Fprintln(c.out, ansiYellow+text+ansiReset)
		return
	}
	fmt.Fprintln(c.out, text)
}

// exchange runs one user turn to completion, following tool calls until the
// model answers in text or the turn budget runs out.
func (c *Console) exchange(parent context.Context, input string) {
	// Ctrl-C cancels the in-flight exchange, not the process.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	lock := core.GetRequestLock(conversationKey)
	if !lock.LockWithContext(ctx) {
		c.notice("busy, previous exchange still running")
		return
	}
	defer lock.Unlock()

	c.session.AddMessage(messages.NewUserText(input))

	for turn := 0; turn < maxToolTurns; turn++ {
		printer := NewPrinter(c.out, c.color)
		msg, err := c.client.ChatCompletionStream(ctx, c.buildRequest(), printer)
		if err != nil {
			if ctx.Err() != nil && parent.Err() == nil {
				c.notice("(interrupted)")
			}
			return
		}
		c.session.AddMessage(msg)

		calls := msg.ToolCalls()
		if len(calls) == 0 {
			return
		}
		for _, res := range c.executor.ExecuteAll(ctx, calls) {
			c.session.AddMessage(messages.ChatMessage{
				Role:  messages.MessageRoleTool,
				Parts: []messages.Part{res},
			})
		}
	}
	c.notice("tool turn limit reached, answer may be incomplete")
}

// buildRequest snapshots the live configuration so /set changes apply from
// the next turn on.
func (c *Console) buildRequest() *llm.CompletionRequest {
	history := c.session.History()
	// History is host-constructed; a pairing violation here is a host bug.
	if err := messages.ValidatePairing(history); err != nil {
		core.GetLogger().Warnw("history failed pairing check", "error", err)
	}
	m := c.cfg.Model
	return &llm.CompletionRequest{
		Model:       m.Model,
		Messages:    history,
		Tools:       c.registry.All(),
		MaxTokens:   m.MaxTokens,
		Temperature: m.TemperaturePtr(),
		TopP:        m.TopPPtr(),
		Thinking:    m.Thinking,
		Timeout:     m.Timeout,
		Retries:     m.Retries,
	}
}

func executionHooks() *tools.ExecutionHooks {
	return &tools.ExecutionHooks{
		BeforeExecute: func(ctx context.Context, call messages.ToolCallPart, args map[string]any) context.Context {
			core.WithTool(core.GetLogger(), call.Name, args).Infow("executing tool")
			return ctx
		},
		AfterExecute: func(call messages.ToolCallPart, result string, duration time.Duration, err error) {
			logger := core.WithTool(core.GetLogger(), call.Name, nil)
			if err != nil {
				logger.Warnw("tool failed", "duration_ms", duration.Milliseconds(), "error", err)
				return
			}
			logger.Infow("tool completed", "duration_ms", duration.Milliseconds(), "output", truncate(result, 200))
		},
	}
}
