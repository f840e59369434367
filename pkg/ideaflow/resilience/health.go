package resilience

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Health is the bookkeeping record for one node. Every invocation
// attempt, successful or not, updates it.
type Health struct {
	mu sync.Mutex

	SuccessCount int
	// FailureCount is the consecutive-failure streak; it resets to
	// zero on any success.
	FailureCount    int
	CircuitState    CircuitState
	LastFailureTime time.Time
	// AverageExecMs is the running mean execution time across all
	// attempts.
	AverageExecMs float64

	totalAttempts int
}

func (h *Health) recordSuccess(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.SuccessCount++
	h.FailureCount = 0
	h.recordDuration(d)
}

func (h *Health) recordFailure(d time.Duration, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.FailureCount++
	h.LastFailureTime = at
	h.recordDuration(d)
}

// recordDuration folds one attempt into the running mean. Caller holds
// the lock.
func (h *Health) recordDuration(d time.Duration) {
	h.totalAttempts++
	ms := float64(d.Milliseconds())
	h.AverageExecMs += (ms - h.AverageExecMs) / float64(h.totalAttempts)
}

func (h *Health) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.SuccessCount = 0
	h.FailureCount = 0
	h.LastFailureTime = time.Time{}
	h.AverageExecMs = 0
	h.totalAttempts = 0
	h.CircuitState = CircuitClosed
}

// Snapshot is a copyable view of a node's health.
type Snapshot struct {
	Node            string       `json:"node"`
	SuccessCount    int          `json:"success_count"`
	FailureCount    int          `json:"failure_count"`
	CircuitState    CircuitState `json:"circuit_state"`
	LastFailureTime time.Time    `json:"last_failure_time,omitzero"`
	AverageExecMs   float64      `json:"average_exec_ms"`
}

func (h *Health) snapshot(node string, circuit CircuitState) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Snapshot{
		Node:            node,
		SuccessCount:    h.SuccessCount,
		FailureCount:    h.FailureCount,
		CircuitState:    circuit,
		LastFailureTime: h.LastFailureTime,
		AverageExecMs:   h.AverageExecMs,
	}
}

// Status is the aggregate workflow health verdict.
type Status string

// Aggregate statuses.
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report aggregates per-node health into an overall verdict with
// textual recommendations. Observability surface only; never control
// flow.
type Report struct {
	Status          Status     `json:"status"`
	Nodes           []Snapshot `json:"nodes"`
	Recommendations []string   `json:"recommendations,omitempty"`
}

// WorkflowHealth builds a health report across all known nodes.
func (l *Layer) WorkflowHealth() Report {
	nodes := l.health.Keys()
	sort.Strings(nodes)

	report := Report{Status: StatusHealthy}
	for _, node := range nodes {
		h, _ := l.health.Get(node)
		circuit := l.breakerFor(node).State()
		snap := h.snapshot(node, circuit)
		report.Nodes = append(report.Nodes, snap)

		switch {
		case circuit == CircuitOpen:
			report.Status = StatusUnhealthy
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("node %q circuit is open; wait for the reset timeout or call Reset", node))
		case circuit == CircuitHalfOpen:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("node %q is half-open; the next call decides whether it recovers", node))
		case snap.FailureCount > 0:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("node %q has %d consecutive failures", node, snap.FailureCount))
		}
	}
	return report
}

// Reset clears the health record and breaker for one node. Test/ops
// hook.
func (l *Layer) Reset(node string) {
	if h, ok := l.health.Get(node); ok {
		h.reset()
	}
	l.breakerFor(node).Reset()
}
