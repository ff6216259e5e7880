package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/config"
	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
	"pkdindustries/switchboard/internal/tools"
)

// Session is the slice of the conversation commands may touch.
type Session interface {
	History() []messages.ChatMessage
	Reset(systemPrompt string)
	SetMaxHistory(n int)
}

// TokenStatus exposes the latest exchange's context usage.
type TokenStatus interface {
	TokenCount() (used, max int)
}

// BackendCache drops memoized backend clients so credential and endpoint
// changes take effect on the next exchange.
type BackendCache interface {
	Invalidate()
}

// Env carries the collaborators commands operate on. Out receives command
// replies.
type Env struct {
	Config   *config.Configuration
	Session  Session
	Tools    *tools.Registry
	Audit    *audit.Log
	Caches   *metastore.Registry
	Secrets  secrets.Store
	Backends BackendCache
	Status   TokenStatus
	Out      io.Writer
	Started  time.Time

	quit bool
}

// Reply writes one line of command output.
func (e *Env) Reply(format string, args ...any) {
	fmt.Fprintf(e.Out, format+"\n", args...)
}

// RequestQuit marks the host for shutdown once the current dispatch returns.
func (e *Env) RequestQuit() { e.quit = true }

// QuitRequested reports whether a command asked the host to exit.
func (e *Env) QuitRequested() bool { return e.quit }

// Command is one slash command reachable from the console.
type Command interface {
	Name() string
	Usage() string
	Description() string
	Execute(env *Env, args []string)
}

// Registry manages command registration and dispatch
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates a new command registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds commands to the registry, keyed by name.
func (r *Registry) Register(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range cmds {
		r.commands[cmd.Name()] = cmd
	}
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	all := make([]Command, 0, len(names))
	for _, name := range names {
		all = append(all, r.commands[name])
	}
	return all
}

// Dispatch parses a slash line and executes the named command. Unknown names
// get a hint, not an error.
func (r *Registry) Dispatch(env *Env, line string) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		env.Reply("try /help")
		return
	}
	name := strings.ToLower(fields[0])
	cmd, ok := r.Get(name)
	if !ok {
		env.Reply("unknown command %q, try /help", name)
		return
	}
	core.GetLogger().Debugw("command_dispatch", "command", name, "args", len(fields)-1)
	cmd.Execute(env, fields[1:])
}
