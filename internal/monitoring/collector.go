package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lease-abstract/internal/accuracy"
	"github.com/sells-group/lease-abstract/internal/model"
)

// historyDepth bounds how many recorded runs are scanned for a baseline.
const historyDepth = 20

// MetricsSnapshot compares a finished benchmark run with the most recent
// earlier run carrying the same label.
type MetricsSnapshot struct {
	RunID      string  `json:"run_id"`
	Label      string  `json:"label"`
	BaselineID string  `json:"baseline_id,omitempty"`
	Accuracy   float64 `json:"accuracy"`

	// Deltas are current minus baseline, in percentage points.
	AccuracyDelta float64            `json:"accuracy_delta"`
	FieldDeltas   map[string]float64 `json:"field_deltas,omitempty"`

	LeasesTested  int       `json:"leases_tested"`
	LeasesErrored int       `json:"leases_errored"`
	ErrorRate     float64   `json:"error_rate"`
	CostUSD       float64   `json:"cost_usd"`
	CollectedAt   time.Time `json:"collected_at"`
}

// HasBaseline reports whether an earlier run was found to compare against.
func (s *MetricsSnapshot) HasBaseline() bool {
	return s.BaselineID != ""
}

// RunLister returns recorded run summaries, newest first. The store
// satisfies it directly.
type RunLister interface {
	ListAccuracyRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
}

// FileRuns serves run history from accuracy_history.json.
type FileRuns struct {
	Reports *accuracy.Reports
}

// ListAccuracyRuns implements RunLister.
func (f FileRuns) ListAccuracyRuns(_ context.Context, limit int) ([]model.RunSummary, error) {
	history, err := f.Reports.History()
	if err != nil {
		return nil, err
	}
	out := make([]model.RunSummary, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Collector builds snapshots from run history.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect compares cur with its baseline. Without an earlier run of the
// same label the snapshot carries no deltas.
func (c *Collector) Collect(ctx context.Context, cur model.RunSummary) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		RunID:         cur.RunID,
		Label:         cur.Label,
		Accuracy:      cur.AverageAccuracy,
		LeasesTested:  cur.LeasesTested,
		LeasesErrored: cur.LeasesErrored,
		CostUSD:       cur.TotalCost,
		CollectedAt:   time.Now().UTC(),
	}
	if attempted := cur.LeasesTested + cur.LeasesErrored; attempted > 0 {
		snap.ErrorRate = float64(cur.LeasesErrored) / float64(attempted)
	}

	runs, err := c.runs.ListAccuracyRuns(ctx, historyDepth)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var base *model.RunSummary
	for i := range runs {
		r := runs[i]
		if r.RunID == cur.RunID || r.Label != cur.Label || r.LeasesTested == 0 {
			continue
		}
		base = &r
		break
	}
	if base == nil {
		return snap, nil
	}

	snap.BaselineID = base.RunID
	snap.AccuracyDelta = cur.AverageAccuracy - base.AverageAccuracy
	snap.FieldDeltas = make(map[string]float64)
	for field, acc := range cur.FieldAccuracy {
		prev, ok := base.FieldAccuracy[field]
		if !ok {
			continue
		}
		snap.FieldDeltas[field] = acc - prev
	}
	return snap, nil
}
