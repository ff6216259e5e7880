package audit

import (
	"sync"
	"time"

	"pkdindustries/switchboard/internal/messages"
)

// DefaultCapacity bounds the log; oldest records drop first.
const DefaultCapacity = 100

// ModelConfig is the sampling configuration a request ran with, captured for
// display. Nil Temperature/TopP mean the backend default was left in force.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	Retries     int
}

// Usage is the token accounting for one exchange.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// RequestInfo is the request half of a record, captured at setup.
type RequestInfo struct {
	Messages    []messages.ChatMessage
	Tools       []string
	ModelConfig ModelConfig
	Timestamp   time.Time
}

// ResponseInfo is the response half, committed at finalize.
type ResponseInfo struct {
	TextParts       []string
	ThinkingParts   []string
	ToolCallParts   []messages.ToolCallPart
	Usage           Usage
	DurationMS      int64
	TokensPerSecond float64
	Timestamp       time.Time
}

// Record pairs one request with its response. Completed stays false for
// attempts that never finalized (failed or aborted mid-stream).
type Record struct {
	ID        int64
	Request   RequestInfo
	Response  ResponseInfo
	Completed bool
}

// Log is the append-only, size-bounded record of exchanges. It is an
// introspection surface, not a transcript store.
type Log struct {
	mu       sync.Mutex
	records  []*Record
	capacity int
	nextID   int64
	notify   chan struct{}
}

// NewLog creates a log holding at most capacity records.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Append opens a record for a request and returns it for later completion.
// The oldest record drops when the log is full.
func (l *Log) Append(req RequestInfo) *Record {
	l.mu.Lock()
	l.nextID++
	rec := &Record{ID: l.nextID, Request: req}
	l.records = append(l.records, rec)
	if len(l.records) > l.capacity {
		l.records = l.records[len(l.records)-l.capacity:]
	}
	l.mu.Unlock()

	l.wake()
	return rec
}

// Complete commits the response half of a record opened by Append.
func (l *Log) Complete(rec *Record, resp ResponseInfo) {
	l.mu.Lock()
	rec.Response = resp
	rec.Completed = true
	l.mu.Unlock()

	l.wake()
}

// Records returns a snapshot, oldest first.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	for i, rec := range l.records {
		out[i] = *rec
	}
	return out
}

// Len returns the current record count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Notify returns a channel that receives after every change. The send is
// non-blocking; a slow consumer coalesces wakeups instead of stalling
// exchanges.
func (l *Log) Notify() <-chan struct{} {
	return l.notify
}

func (l *Log) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}
