package llm

// StatusReporter is where the orchestrator publishes per-exchange token
// counts. The console renders them in its status line; tests use NopStatus.
type StatusReporter interface {
	UpdateTokenCount(used, max int)
}

// NopStatus discards status updates.
type NopStatus struct{}

func (NopStatus) UpdateTokenCount(used, max int) {}
