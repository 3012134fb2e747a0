package benchmark

import (
	"sync"
	"time"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Run statuses.
const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
)

// CompletedLease is the progress line for one finished document.
type CompletedLease struct {
	Tenant    string  `json:"tenant"`
	Accuracy  float64 `json:"accuracy"`
	Correct   int     `json:"fields_correct"`
	Evaluated int     `json:"fields_total"`
	Error     string  `json:"error,omitempty"`
}

// RunState is the progress of the current or last benchmark run.
type RunState struct {
	Status             string            `json:"status"`
	RunID              string            `json:"run_id,omitempty"`
	CurrentLease       int               `json:"current_lease"`
	TotalLeases        int               `json:"total_leases"`
	CurrentTenant      string            `json:"current_tenant,omitempty"`
	Completed          []CompletedLease  `json:"completed_results"`
	Elapsed            time.Duration     `json:"elapsed_ns"`
	EstimatedRemaining time.Duration     `json:"estimated_remaining_ns"`
	OverallAccuracy    float64           `json:"overall_accuracy"`
	Summary            *model.RunSummary `json:"run_summary,omitempty"`
	Error              string            `json:"error,omitempty"`
}

func (s RunState) clone() RunState {
	s.Completed = append([]CompletedLease(nil), s.Completed...)
	if s.Summary != nil {
		sum := *s.Summary
		s.Summary = &sum
	}
	return s
}

// Tracker publishes a RunState. The runner is its only writer; readers get
// copies.
type Tracker struct {
	mu    sync.RWMutex
	state RunState
}

// NewTracker returns an idle Tracker.
func NewTracker() *Tracker {
	return &Tracker{state: RunState{Status: StatusIdle}}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.clone()
}

// Set replaces the state.
func (t *Tracker) Set(s RunState) {
	s = s.clone()
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Clear resets the state to idle.
func (t *Tracker) Clear() {
	t.Set(RunState{Status: StatusIdle})
}
