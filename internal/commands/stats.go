package commands

import (
	"time"

	"pkdindustries/switchboard/internal/messages"
)

// StatsCommand summarizes the session: message counts, last exchange's token
// usage, and continuation cache occupancy.
type StatsCommand struct{}

func (c *StatsCommand) Name() string        { return "stats" }
func (c *StatsCommand) Usage() string       { return "/stats" }
func (c *StatsCommand) Description() string { return "show session statistics" }

func (c *StatsCommand) Execute(env *Env, args []string) {
	var users, assistants, results, calls int
	for _, msg := range env.Session.History() {
		switch msg.Role {
		case messages.MessageRoleUser:
			users++
		case messages.MessageRoleAssistant:
			assistants++
			calls += len(msg.ToolCalls())
		case messages.MessageRoleTool:
			results++
		}
	}

	env.Reply("messages: %d user, %d assistant, %d tool results (%d tool calls)",
		users, assistants, results, calls)

	if env.Status != nil {
		if used, max := env.Status.TokenCount(); max > 0 {
			env.Reply("last exchange: %d tokens of %d max", used, max)
		}
	}

	if env.Caches != nil {
		if s := env.Caches.String(); s != "" {
			env.Reply("caches: %s", s)
		}
	}
	if env.Audit != nil {
		env.Reply("audit: %d records", env.Audit.Len())
	}
	env.Reply("up %s", time.Since(env.Started).Round(time.Second))
}
