package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a callable capability the host exposes to models.
type Tool interface {
	GetName() string
	GetSchema() *jsonschema.Schema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// toolNamePattern is the character class every backend accepts for tool
// names. Anything outside it is rejected before a request is built.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName rejects tool names no backend would accept.
func ValidateName(name string) error {
	if !toolNamePattern.MatchString(name) {
		return fmt.Errorf("invalid tool name %q: must match %s", name, toolNamePattern)
	}
	return nil
}

// EmptyObjectSchema is the default schema for tools that declare none.
func EmptyObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

// SchemaOf returns the tool's schema, substituting an empty object schema
// when the tool declares none.
func SchemaOf(t Tool) *jsonschema.Schema {
	if s := t.GetSchema(); s != nil {
		return s
	}
	return EmptyObjectSchema()
}

// Registry manages tool registration and lookup
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Names are validated here so a bad
// name fails at load time rather than mid-conversation.
func (r *Registry) Register(t Tool) error {
	name := t.GetName()
	if err := ValidateName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Remove deletes a tool from the registry
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// All returns all registered tools sorted by name
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	all := make([]Tool, 0, len(names))
	for _, name := range names {
		all = append(all, r.tools[name])
	}
	return all
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
