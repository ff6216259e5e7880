package console

import (
	"sync"

	"pkdindustries/switchboard/internal/messages"
)

// Session is the console's single conversation: a bounded message history
// fronted by a system prompt. Trimming drops the oldest turns but never the
// system message.
type Session struct {
	mu         sync.Mutex
	history    []messages.ChatMessage
	maxHistory int
}

func NewSession(systemPrompt string, maxHistory int) *Session {
	s := &Session{maxHistory: maxHistory}
	if systemPrompt != "" {
		s.history = append(s.history, messages.NewSystemText(systemPrompt))
	}
	return s
}

func (s *Session) AddMessage(msg messages.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	s.trimLocked()
}

func (s *Session) trimLocked() {
	if s.maxHistory <= 0 || len(s.history) <= s.maxHistory {
		return
	}
	if s.history[0].Role == messages.MessageRoleSystem {
		keep := s.maxHistory - 1
		s.history = append(s.history[:1], s.history[len(s.history)-keep:]...)
		s.dropStrandedLocked(1)
		return
	}
	s.history = s.history[len(s.history)-s.maxHistory:]
	s.dropStrandedLocked(0)
}

// dropStrandedLocked removes tool results at the cut point whose calling
// assistant turn fell outside the window, keeping the history paired.
func (s *Session) dropStrandedLocked(start int) {
	i := start
	for i < len(s.history) && s.history[i].Role == messages.MessageRoleTool {
		i++
	}
	if i > start {
		s.history = append(s.history[:start], s.history[i:]...)
	}
}

// History returns a copy safe to hand to a request while the session keeps
// moving.
func (s *Session) History() []messages.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messages.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Reset drops the conversation and starts over with the given prompt.
func (s *Session) Reset(systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.history[:0]
	if systemPrompt != "" {
		s.history = append(s.history, messages.NewSystemText(systemPrompt))
	}
}

// SetMaxHistory changes the history bound, trimming immediately if the
// conversation already exceeds it.
func (s *Session) SetMaxHistory(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxHistory = n
	s.trimLocked()
}

// Len returns the current number of messages, system prompt included.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
