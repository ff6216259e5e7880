package commands

import (
	"strings"
	"testing"
)

func TestHelpListsCommands(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&SetCommand{}, &GetCommand{}, &QuitCommand{})
	registry.Register(NewHelpCommand(registry))

	env, out := testEnv()
	registry.Dispatch(env, "/help")

	got := out.String()
	for _, want := range []string{"/set <key> <value>", "/get <key>", "/quit", "/help"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in help output: %s", want, got)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	env, out := testEnv()

	(&VersionCommand{Version: "v9.9"}).Execute(env, nil)

	if !strings.Contains(out.String(), "switchboard v9.9") {
		t.Errorf("unexpected version output: %s", out.String())
	}
}

func TestQuitCommandRequestsShutdown(t *testing.T) {
	env, _ := testEnv()

	(&QuitCommand{}).Execute(env, nil)

	if !env.QuitRequested() {
		t.Error("expected quit to be requested")
	}
}

func TestResetCommandUsesConfiguredPrompt(t *testing.T) {
	env, out := testEnv()
	session := env.Session.(*fakeSession)

	(&ResetCommand{}).Execute(env, nil)

	if session.resets != 1 {
		t.Fatalf("expected one reset, got %d", session.resets)
	}
	if session.resetWith != env.Config.App.Prompt {
		t.Errorf("reset used %q, want configured prompt %q", session.resetWith, env.Config.App.Prompt)
	}
	if !strings.Contains(out.String(), "conversation reset") {
		t.Errorf("expected confirmation, got: %s", out.String())
	}
}
