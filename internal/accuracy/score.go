package accuracy

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Scorer compares extractions against gold records through a gold field
// name to FieldPath map.
type Scorer struct {
	fieldMap map[string]string
	names    []string
}

// NewScorer creates a Scorer for the given gold field map.
func NewScorer(fieldMap map[string]string) *Scorer {
	names := make([]string, 0, len(fieldMap))
	for name := range fieldMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Scorer{fieldMap: fieldMap, names: names}
}

// Fields returns the scored gold field names, sorted.
func (s *Scorer) Fields() []string {
	return append([]string(nil), s.names...)
}

// ScoreDocument compares every mapped gold field that has a value. Gold
// fields without a value are left out of the result and the denominator.
func (s *Scorer) ScoreDocument(gold model.GoldRecord, extractions map[string]any, confidence map[string]float64) model.LeaseResult {
	res := model.LeaseResult{
		Tenant:       gold.Tenant,
		LeaseFile:    gold.LeaseFile,
		FieldResults: make(map[string]model.FieldComparison),
		Extraction:   extractions,
		Confidence:   confidence,
	}

	for _, name := range s.names {
		goldValue := gold.GroundTruth[name]
		if goldValue == nil {
			continue
		}
		path := s.fieldMap[name]
		extracted := extractions[path]
		match, reason := Compare(goldValue, extracted, name)
		res.FieldResults[name] = model.FieldComparison{
			Match:      match,
			Reason:     reason,
			Gold:       goldValue,
			Extracted:  extracted,
			Confidence: confidence[path],
		}
		res.Evaluated++
		if match {
			res.Correct++
		}
	}

	if res.Evaluated > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Evaluated) * 100
	}
	return res
}

// ScoreExtraction scores a finished extraction and carries its cost.
func (s *Scorer) ScoreExtraction(gold model.GoldRecord, m *model.MergedExtraction, elapsed time.Duration) model.LeaseResult {
	res := s.ScoreDocument(gold, m.Extractions, m.Confidence)
	res.Cost = m.TotalCost
	res.Time = elapsed.Seconds()
	return res
}

// Rescore scores saved results again, for instance after the comparison
// rules changed. Results that errored or have no gold record are returned
// unchanged. Order is preserved.
func (s *Scorer) Rescore(ctx context.Context, gold []model.GoldRecord, results []model.LeaseResult, workers int) ([]model.LeaseResult, error) {
	byFile := make(map[string]model.GoldRecord, len(gold))
	for _, g := range gold {
		byFile[g.LeaseFile] = g
	}
	if workers <= 0 {
		workers = 4
	}

	out := make([]model.LeaseResult, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, r := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "accuracy: rescore cancelled")
			}
			rec, ok := byFile[r.LeaseFile]
			if r.Error != "" || !ok {
				if !ok {
					zap.L().Warn("accuracy: no gold record for result", zap.String("lease_file", r.LeaseFile))
				}
				out[i] = r
				return nil
			}
			scored := s.ScoreDocument(rec, r.Extraction, r.Confidence)
			scored.Cost = r.Cost
			scored.Time = r.Time
			out[i] = scored
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunInfo describes a benchmark run for its summary.
type RunInfo struct {
	RunID         string
	Label         string
	Timestamp     time.Time
	PromptVersion string
	FewShotCount  int
	MultiPass     bool
}

// Summarize aggregates per-document results. Errored documents count
// toward LeasesErrored and are excluded from accuracy figures.
func Summarize(info RunInfo, results []model.LeaseResult) model.RunSummary {
	sum := model.RunSummary{
		RunID:         info.RunID,
		Label:         info.Label,
		Timestamp:     info.Timestamp,
		PromptVersion: info.PromptVersion,
		FewShotCount:  info.FewShotCount,
		MultiPass:     info.MultiPass,
		FieldAccuracy: make(map[string]float64),
		PerLease:      make([]model.LeaseSummary, 0, len(results)),
	}

	type tally struct{ correct, total int }
	fields := make(map[string]*tally)

	var accuracy, totalCost, totalTime float64
	for _, r := range results {
		sum.PerLease = append(sum.PerLease, model.LeaseSummary{Tenant: r.Tenant, Accuracy: r.Accuracy, Error: r.Error})
		totalCost += r.Cost
		totalTime += r.Time
		if r.Error != "" {
			sum.LeasesErrored++
			continue
		}
		sum.LeasesTested++
		accuracy += r.Accuracy
		for name, fr := range r.FieldResults {
			t, ok := fields[name]
			if !ok {
				t = &tally{}
				fields[name] = t
			}
			t.total++
			if fr.Match {
				t.correct++
			}
		}
	}

	if sum.LeasesTested > 0 {
		sum.AverageAccuracy = accuracy / float64(sum.LeasesTested)
	}
	for name, t := range fields {
		sum.FieldAccuracy[name] = roundTo(float64(t.correct)/float64(t.total)*100, 1)
	}
	sum.TotalCost = roundTo(totalCost, 4)
	sum.TotalTime = roundTo(totalTime, 1)
	return sum
}

func roundTo(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}
