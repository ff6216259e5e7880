package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
	mocktest "pkdindustries/switchboard/internal/testing"
	"pkdindustries/switchboard/internal/tools"
)

// fakeSession records what commands do to the conversation.
type fakeSession struct {
	history    []messages.ChatMessage
	resetWith  string
	resets     int
	maxHistory int
}

func (s *fakeSession) History() []messages.ChatMessage { return s.history }
func (s *fakeSession) Reset(prompt string) {
	s.resetWith = prompt
	s.resets++
	s.history = nil
}
func (s *fakeSession) SetMaxHistory(n int) { s.maxHistory = n }

// fakeBackends counts invalidations.
type fakeBackends struct{ invalidations int }

func (b *fakeBackends) Invalidate() { b.invalidations++ }

type fakeStatus struct{ used, max int }

func (s *fakeStatus) TokenCount() (int, int) { return s.used, s.max }

func testEnv() (*Env, *bytes.Buffer) {
	out := &bytes.Buffer{}
	env := &Env{
		Config:   mocktest.DefaultTestConfig(),
		Session:  &fakeSession{},
		Tools:    tools.NewRegistry(),
		Audit:    audit.NewLog(10),
		Caches:   metastore.NewRegistry(""),
		Secrets:  secrets.NewMemoryStore(),
		Backends: &fakeBackends{},
		Status:   &fakeStatus{},
		Out:      out,
		Started:  time.Now(),
	}
	return env, out
}

// mockCommand is a simple test command
type mockCommand struct {
	name     string
	executed bool
	gotArgs  []string
}

func (c *mockCommand) Name() string        { return c.name }
func (c *mockCommand) Usage() string       { return "/" + c.name }
func (c *mockCommand) Description() string { return "test command" }
func (c *mockCommand) Execute(env *Env, args []string) {
	c.executed = true
	c.gotArgs = args
}

func TestRegistryCommandRouting(t *testing.T) {
	registry := NewRegistry()

	setCmd := &mockCommand{name: "set"}
	getCmd := &mockCommand{name: "get"}
	registry.Register(setCmd, getCmd)

	env, _ := testEnv()
	registry.Dispatch(env, "/set model openai/gpt-4o")

	if !setCmd.executed {
		t.Error("expected set command to be executed")
	}
	if getCmd.executed {
		t.Error("expected get command NOT to be executed")
	}
	if len(setCmd.gotArgs) != 2 || setCmd.gotArgs[0] != "model" {
		t.Errorf("unexpected args: %v", setCmd.gotArgs)
	}
}

func TestRegistryUnknownCommand(t *testing.T) {
	registry := NewRegistry()
	env, out := testEnv()

	registry.Dispatch(env, "/mystery")

	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("expected unknown-command hint, got: %s", out.String())
	}
}

func TestRegistryBareSlash(t *testing.T) {
	registry := NewRegistry()
	env, out := testEnv()

	registry.Dispatch(env, "/")

	if !strings.Contains(out.String(), "/help") {
		t.Errorf("expected help hint, got: %s", out.String())
	}
}

func TestRegistryCaseInsensitiveNames(t *testing.T) {
	registry := NewRegistry()
	cmd := &mockCommand{name: "stats"}
	registry.Register(cmd)

	env, _ := testEnv()
	registry.Dispatch(env, "/STATS")

	if !cmd.executed {
		t.Error("expected dispatch to lowercase the command name")
	}
}

func TestRegistryAllSorted(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&mockCommand{name: "zeta"}, &mockCommand{name: "alpha"})

	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(all))
	}
	if all[0].Name() != "alpha" || all[1].Name() != "zeta" {
		t.Errorf("expected sorted order, got %s, %s", all[0].Name(), all[1].Name())
	}
}
