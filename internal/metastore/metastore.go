package metastore

import (
	"encoding/json"
	"fmt"
	"sync"
)

// DefaultCapacity bounds a namespace that does not configure its own.
const DefaultCapacity = 1000

// Reserved namespace names. Backend variants write continuation state here
// and the translator reads it back on the next outbound translation.
const (
	// NamespaceToolContinuation maps a tool callID to an opaque provider
	// token. Read without deleting; history replays across many turns.
	NamespaceToolContinuation = "toolcall.continuation"

	// NamespaceReasoningPending maps a thinking ID to full reasoning text
	// that must be replayed verbatim on the next request. Single-use; the
	// reader deletes the entry after folding it into an outbound message.
	NamespaceReasoningPending = "reasoning.pending"

	// NamespaceReasoningSignature maps a thinking ID to the provider's
	// integrity signature for that reasoning block. Read without deleting;
	// the same block replays on every later turn of the conversation.
	NamespaceReasoningSignature = "reasoning.signature"

	// NamespaceLastResponse maps a model slug to the id of the last
	// response, for backends that support cheap continuation.
	NamespaceLastResponse = "response.last"
)

// ReasoningPendingCapacity bounds the pending-reasoning namespace; entries
// are consumed on the very next turn so it can stay small.
const ReasoningPendingCapacity = 32

// Options configures a namespace at creation time.
type Options struct {
	Capacity int  // FIFO bound; DefaultCapacity when <= 0
	Persist  bool // include in registry flush/restore
}

// Namespace is one bounded key/value store of opaque continuation values.
// Eviction is FIFO over insertion order; re-setting an existing key keeps
// its original position.
type Namespace struct {
	name     string
	capacity int
	persist  bool

	mu      sync.Mutex
	entries map[string]string
	order   []string
	dirty   bool
}

func newNamespace(name string, opts Options) *Namespace {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Namespace{
		name:     name,
		capacity: capacity,
		persist:  opts.Persist,
		entries:  make(map[string]string),
	}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Capacity returns the FIFO bound.
func (n *Namespace) Capacity() int { return n.capacity }

// Persistent reports whether the namespace participates in flush/restore.
func (n *Namespace) Persistent() bool { return n.persist }

// Get returns the value for key.
func (n *Namespace) Get(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.entries[key]
	return v, ok
}

// Set stores a value, evicting the oldest entry when the namespace is full.
func (n *Namespace) Set(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.entries[key]; !exists {
		if len(n.order) >= n.capacity {
			oldest := n.order[0]
			n.order = n.order[1:]
			delete(n.entries, oldest)
		}
		n.order = append(n.order, key)
	}
	n.entries[key] = value
	n.dirty = true
}

// Delete removes a key if present.
func (n *Namespace) Delete(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleteLocked(key)
}

// Take returns and removes the value for key. This is the single-use read:
// the caller owns the value and the entry is gone.
func (n *Namespace) Take(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.entries[key]
	if ok {
		n.deleteLocked(key)
	}
	return v, ok
}

func (n *Namespace) deleteLocked(key string) {
	if _, ok := n.entries[key]; !ok {
		return
	}
	delete(n.entries, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	n.dirty = true
}

// Has reports whether key is present.
func (n *Namespace) Has(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.entries[key]
	return ok
}

// Len returns the number of entries.
func (n *Namespace) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

// IsDirty reports whether the namespace changed since the last MarkClean.
func (n *Namespace) IsDirty() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

// MarkClean clears the dirty flag, typically after a successful flush.
func (n *Namespace) MarkClean() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dirty = false
}

// serializedEntry preserves insertion order across a persistence round-trip
// so FIFO eviction picks the same victims after a restart.
type serializedEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Serialize renders the namespace contents as JSON in insertion order.
func (n *Namespace) Serialize() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]serializedEntry, 0, len(n.order))
	for _, key := range n.order {
		out = append(out, serializedEntry{Key: key, Value: n.entries[key]})
	}
	return json.Marshal(out)
}

// LoadSerialized replaces the namespace contents from a Serialize snapshot.
// Entries beyond capacity are dropped oldest-first. The namespace comes back
// clean; loading is not a change worth re-flushing.
func (n *Namespace) LoadSerialized(data []byte) error {
	var in []serializedEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("namespace %s: %w", n.name, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = make(map[string]string, len(in))
	n.order = n.order[:0]
	start := 0
	if len(in) > n.capacity {
		start = len(in) - n.capacity
	}
	for _, e := range in[start:] {
		if _, dup := n.entries[e.Key]; dup {
			continue
		}
		n.entries[e.Key] = e.Value
		n.order = append(n.order, e.Key)
	}
	n.dirty = false
	return nil
}
