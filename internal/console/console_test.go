package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/commands"
	"pkdindustries/switchboard/internal/llm"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
	mocktest "pkdindustries/switchboard/internal/testing"
	"pkdindustries/switchboard/internal/tools"
)

func newTestConsole(t *testing.T, client llm.LLM, input string) (*Console, *bytes.Buffer) {
	t.Helper()

	cfg := mocktest.DefaultTestConfig()
	out := &bytes.Buffer{}
	session := NewSession(cfg.App.Prompt, cfg.App.MaxHistory)

	registry := tools.NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatal(err)
	}

	cmdRegistry := commands.NewRegistry()
	cmdRegistry.Register(
		&commands.VersionCommand{Version: "vtest"},
		&commands.QuitCommand{},
		&commands.ResetCommand{},
	)

	env := &commands.Env{
		Config:  cfg,
		Session: session,
		Tools:   registry,
		Audit:   audit.NewLog(10),
		Caches:  metastore.NewRegistry(""),
		Secrets: secrets.NewMemoryStore(),
		Status:  &StatusLine{},
		Out:     out,
		Started: time.Now(),
	}

	c := New(Options{
		Config:   cfg,
		Client:   client,
		Session:  session,
		Tools:    registry,
		Commands: cmdRegistry,
		Env:      env,
		In:       strings.NewReader(input),
		Out:      out,
		Color:    false,
	})
	return c, out
}

func TestExchangeAppendsConversation(t *testing.T) {
	mock := &mocktest.MockLLM{Responses: []messages.ChatMessage{
		{Role: messages.MessageRoleAssistant, Parts: []messages.Part{messages.TextPart{Text: "hello there"}}},
	}}
	c, out := newTestConsole(t, mock, "")

	c.exchange(context.Background(), "hi")

	if mock.Calls() != 1 {
		t.Fatalf("expected 1 model call, got %d", mock.Calls())
	}
	history := c.session.History()
	if len(history) != 3 {
		t.Fatalf("expected system+user+assistant, got %d messages", len(history))
	}
	if history[1].Role != messages.MessageRoleUser || history[1].TextContent() != "hi" {
		t.Errorf("user turn not recorded: %+v", history[1])
	}
	if history[2].Role != messages.MessageRoleAssistant {
		t.Errorf("assistant turn not recorded: %+v", history[2])
	}
	if !strings.Contains(out.String(), "hello there") {
		t.Errorf("reply not printed: %s", out.String())
	}
}

func TestExchangeRunsToolLoop(t *testing.T) {
	mock := &mocktest.MockLLM{Responses: []messages.ChatMessage{
		{Role: messages.MessageRoleAssistant, Parts: []messages.Part{
			messages.ToolCallPart{CallID: "c1", Name: "current_time", Input: map[string]any{}},
		}},
		{Role: messages.MessageRoleAssistant, Parts: []messages.Part{
			messages.TextPart{Text: "all done"},
		}},
	}}
	c, out := newTestConsole(t, mock, "")

	c.exchange(context.Background(), "what time is it")

	if mock.Calls() != 2 {
		t.Fatalf("expected a continuation call after the tool ran, got %d calls", mock.Calls())
	}

	history := c.session.History()
	if len(history) != 5 {
		t.Fatalf("expected system+user+assistant+tool+assistant, got %d", len(history))
	}
	if history[3].Role != messages.MessageRoleTool {
		t.Fatalf("expected tool result turn, got role %s", history[3].Role)
	}
	result, ok := history[3].Parts[0].(messages.ToolResultPart)
	if !ok || result.CallID != "c1" {
		t.Errorf("tool result does not answer the call: %+v", history[3].Parts[0])
	}

	second := mock.Requests()[1]
	foundToolTurn := false
	for _, msg := range second.Messages {
		if msg.Role == messages.MessageRoleTool {
			foundToolTurn = true
		}
	}
	if !foundToolTurn {
		t.Error("continuation request must carry the tool result turn")
	}

	if !strings.Contains(out.String(), "→ current_time(") {
		t.Errorf("tool call not surfaced to the terminal: %s", out.String())
	}
	if !strings.Contains(out.String(), "all done") {
		t.Errorf("final answer not printed: %s", out.String())
	}
}

func TestExchangeToolTurnLimit(t *testing.T) {
	mock := &mocktest.MockLLM{Responses: []messages.ChatMessage{
		{Role: messages.MessageRoleAssistant, Parts: []messages.Part{
			messages.ToolCallPart{CallID: "c1", Name: "current_time", Input: map[string]any{}},
		}},
	}}
	c, out := newTestConsole(t, mock, "")

	c.exchange(context.Background(), "loop forever")

	if mock.Calls() != maxToolTurns {
		t.Errorf("expected the loop to stop at %d turns, got %d", maxToolTurns, mock.Calls())
	}
	if !strings.Contains(out.String(), "tool turn limit") {
		t.Errorf("expected turn limit notice: %s", out.String())
	}
}

func TestExchangeErrorLeavesNoAssistantTurn(t *testing.T) {
	mock := &mocktest.MockLLM{Err: errors.New("boom")}
	c, out := newTestConsole(t, mock, "")

	c.exchange(context.Background(), "hi")

	if mock.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.Calls())
	}
	history := c.session.History()
	if len(history) != 2 {
		t.Fatalf("expected only system+user after failure, got %d", len(history))
	}
	if !strings.Contains(out.String(), "error: boom") {
		t.Errorf("failure not surfaced: %s", out.String())
	}
}

func TestRunDispatchesSlashCommands(t *testing.T) {
	mock := &mocktest.MockLLM{}
	c, out := newTestConsole(t, mock, "/version\n/quit\n")

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("slash lines must not reach the model, got %d calls", mock.Calls())
	}
	if !strings.Contains(out.String(), "switchboard vtest") {
		t.Errorf("version output missing: %s", out.String())
	}
}

func TestRunSkipsBlankLines(t *testing.T) {
	mock := &mocktest.MockLLM{}
	c, _ := newTestConsole(t, mock, "\n   \n/quit\n")

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("blank lines must not reach the model, got %d calls", mock.Calls())
	}
}

func TestRunSendsPlainLinesToModel(t *testing.T) {
	mock := &mocktest.MockLLM{Responses: []messages.ChatMessage{
		{Role: messages.MessageRoleAssistant, Parts: []messages.Part{messages.TextPart{Text: "ack"}}},
	}}
	c, out := newTestConsole(t, mock, "hello\n/quit\n")

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if mock.Calls() != 1 {
		t.Fatalf("expected one exchange, got %d", mock.Calls())
	}
	if !strings.Contains(out.String(), "ack") {
		t.Errorf("reply missing from output: %s", out.String())
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	mock := &mocktest.MockLLM{}
	c, _ := newTestConsole(t, mock, "")

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("expected clean EOF exit, got %v", err)
	}
}
