package observability

import "sync"

// Counter names incremented by the ingestion and sweep loops.
const (
	MetricPollCycles       = "poll_cycles"
	MetricPollErrors       = "poll_errors"
	MetricMessagesAccepted = "messages_accepted"
	MetricMessagesRejected = "messages_rejected"
	MetricTicketsCreated   = "tickets_created"
	MetricDuplicateEmails  = "duplicate_emails"
	MetricSweepRuns        = "sweep_runs"
	MetricEscalations      = "escalations"
)

// Metrics provides basic in-memory counters, exposed by the health server.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Inc increments the named counter.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Get returns the current value of the named counter.
func (m *Metrics) Get(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
