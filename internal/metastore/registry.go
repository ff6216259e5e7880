package metastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pkdindustries/switchboard/internal/core"
)

// indexFile lists the persisted namespaces so dynamically-created ones are
// recreated on restore before their data files are read.
const indexFile = "index.json"

type indexEntry struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Registry indexes namespaces by name so unrelated concerns do not collide.
// With a non-empty directory it flushes persistent namespaces at teardown
// and restores them at startup; persistence failures degrade to memory-only
// with a logged warning, never an error to the caller.
type Registry struct {
	mu         sync.Mutex
	namespaces map[string]*Namespace
	dir        string
}

// NewRegistry creates a registry. dir may be empty for memory-only operation.
func NewRegistry(dir string) *Registry {
	return &Registry{
		namespaces: make(map[string]*Namespace),
		dir:        dir,
	}
}

// Namespace returns the named namespace, creating it on first use. Options
// apply only at creation; an existing namespace is returned as-is.
func (r *Registry) Namespace(name string, opts Options) *Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ns, ok := r.namespaces[name]; ok {
		return ns
	}
	ns := newNamespace(name, opts)
	r.namespaces[name] = ns
	return ns
}

// Get returns a namespace without creating it.
func (r *Registry) Get(name string) (*Namespace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.namespaces[name]
	return ns, ok
}

// All returns the namespaces sorted by name.
func (r *Registry) All() []*Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	all := make([]*Namespace, 0, len(names))
	for _, name := range names {
		all = append(all, r.namespaces[name])
	}
	return all
}

func (r *Registry) filePath(name string) string {
	// Sanitize namespace name for filename (replace / with _)
	safeName := strings.ReplaceAll(name, "/", "_")
	return filepath.Join(r.dir, safeName+".json")
}

// Restore reads the index and reloads every previously-persisted namespace.
// Missing or unreadable state is skipped with a warning; the registry always
// comes up usable.
func (r *Registry) Restore() {
	if r.dir == "" {
		return
	}
	log := core.GetLogger()

	data, err := os.ReadFile(filepath.Join(r.dir, indexFile))
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Warnw("metastore restore failed, starting empty", "error", err)
		return
	}

	var index []indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		log.Warnw("metastore index unreadable, starting empty", "error", err)
		return
	}

	for _, entry := range index {
		ns := r.Namespace(entry.Name, Options{Capacity: entry.Capacity, Persist: true})
		data, err := os.ReadFile(r.filePath(entry.Name))
		if err != nil {
			log.Warnw("metastore namespace unreadable, starting empty",
				"namespace", entry.Name, "error", err)
			continue
		}
		if err := ns.LoadSerialized(data); err != nil {
			log.Warnw("metastore namespace corrupt, starting empty",
				"namespace", entry.Name, "error", err)
		}
	}
	log.Debugw("metastore restored", "namespaces", len(index))
}

// Flush writes every dirty persistent namespace plus a fresh index. Memory-
// only registries and clean namespaces are no-ops. Errors are logged and
// swallowed; a failed flush loses continuation hints, not conversations.
func (r *Registry) Flush() {
	if r.dir == "" {
		return
	}
	log := core.GetLogger()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		log.Warnw("metastore flush failed", "error", err)
		return
	}

	var index []indexEntry
	for _, ns := range r.All() {
		if !ns.Persistent() {
			continue
		}
		index = append(index, indexEntry{Name: ns.Name(), Capacity: ns.Capacity()})
		if !ns.IsDirty() {
			continue
		}
		data, err := ns.Serialize()
		if err != nil {
			log.Warnw("metastore namespace serialize failed",
				"namespace", ns.Name(), "error", err)
			continue
		}
		if err := os.WriteFile(r.filePath(ns.Name()), data, 0644); err != nil {
			log.Warnw("metastore namespace write failed",
				"namespace", ns.Name(), "error", err)
			continue
		}
		ns.MarkClean()
	}

	data, err := json.Marshal(index)
	if err != nil {
		log.Warnw("metastore index serialize failed", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(r.dir, indexFile), data, 0644); err != nil {
		log.Warnw("metastore index write failed", "error", err)
	}
}

// String summarizes the registry for debug output.
func (r *Registry) String() string {
	all := r.All()
	parts := make([]string, 0, len(all))
	for _, ns := range all {
		parts = append(parts, fmt.Sprintf("%s(%d/%d)", ns.Name(), ns.Len(), ns.Capacity()))
	}
	return strings.Join(parts, " ")
}
