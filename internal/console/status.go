package console

import "sync"

// StatusLine receives token-count updates from completed exchanges and holds
// the latest values for the /stats command.
type StatusLine struct {
	mu   sync.Mutex
	used int
	max  int
}

func (s *StatusLine) UpdateTokenCount(used, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = used
	s.max = max
}

func (s *StatusLine) TokenCount() (used, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used, s.max
}
