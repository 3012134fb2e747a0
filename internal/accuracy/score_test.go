package accuracy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lease-abstract/internal/model"
)

var testFieldMap = map[string]string{
	"tenant_legal_name": "parties.tenant_name",
	"base_rent_monthly": "rent.base_rent_monthly",
	"security_deposit":  "financial.security_deposit",
}

func TestScoreDocument_ExcludesGoldAbsentFields(t *testing.T) {
	t.Parallel()

	s := NewScorer(testFieldMap)
	gold := model.GoldRecord{
		LeaseFile: "acme.pdf",
		Tenant:    "Acme",
		GroundTruth: map[string]any{
			"tenant_legal_name": "Acme Holdings LLC",
			"base_rent_monthly": 15000.0,
			"security_deposit":  nil,
		},
	}
	extractions := map[string]any{
		"parties.tenant_name":        "Acme Holdings LLC",
		"rent.base_rent_monthly":     15000.0,
		"financial.security_deposit": 30000.0,
	}
	confidence := map[string]float64{"parties.tenant_name": 0.95, "rent.base_rent_monthly": 0.9}

	res := s.ScoreDocument(gold, extractions, confidence)
	assert.Equal(t, "Acme", res.Tenant)
	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, 2, res.Correct)
	assert.InDelta(t, 100.0, res.Accuracy, 1e-9)
	assert.NotContains(t, res.FieldResults, "security_deposit")

	fr := res.FieldResults["tenant_legal_name"]
	assert.True(t, fr.Match)
	assert.Equal(t, ReasonExactText, fr.Reason)
	assert.InDelta(t, 0.95, fr.Confidence, 1e-9)
}

func TestScoreDocument_PartialAndEmpty(t *testing.T) {
	t.Parallel()

	s := NewScorer(testFieldMap)
	gold := model.GoldRecord{
		LeaseFile: "b.pdf",
		GroundTruth: map[string]any{
			"tenant_legal_name": "Beta Corp",
			"base_rent_monthly": 10000.0,
			"unmapped_field":    "ignored",
		},
	}
	res := s.ScoreDocument(gold, map[string]any{"parties.tenant_name": "Beta Corp"}, nil)
	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, 1, res.Correct)
	assert.InDelta(t, 50.0, res.Accuracy, 1e-9)
	assert.Equal(t, ReasonExtractedNull, res.FieldResults["base_rent_monthly"].Reason)
	assert.Zero(t, res.FieldResults["base_rent_monthly"].Confidence)

	empty := s.ScoreDocument(model.GoldRecord{LeaseFile: "c.pdf"}, nil, nil)
	assert.Zero(t, empty.Evaluated)
	assert.Zero(t, empty.Accuracy)
}

func TestScoreExtraction(t *testing.T) {
	t.Parallel()

	s := NewScorer(testFieldMap)
	m := &model.MergedExtraction{ExtractionPass: *model.NewExtractionPass(), TotalCost: 0.42}
	m.Extractions["parties.tenant_name"] = "Acme"

	res := s.ScoreExtraction(model.GoldRecord{GroundTruth: map[string]any{"tenant_legal_name": "Acme"}}, m, 1500*time.Millisecond)
	assert.InDelta(t, 0.42, res.Cost, 1e-9)
	assert.InDelta(t, 1.5, res.Time, 1e-9)
	assert.InDelta(t, 100.0, res.Accuracy, 1e-9)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []model.LeaseResult{
		{
			Tenant: "A", Accuracy: 100, Cost: 0.30001, Time: 10.04,
			FieldResults: map[string]model.FieldComparison{
				"tenant_legal_name": {Match: true},
				"base_rent_monthly": {Match: true},
			},
		},
		{
			Tenant: "B", Accuracy: 50, Cost: 0.2, Time: 20,
			FieldResults: map[string]model.FieldComparison{
				"tenant_legal_name": {Match: false},
				"base_rent_monthly": {Match: true},
			},
		},
		{Tenant: "C", Error: "extraction failed", Time: 1},
	}

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sum := Summarize(RunInfo{RunID: "r1", Label: "baseline", Timestamp: ts, PromptVersion: "2.0", FewShotCount: 12, MultiPass: true}, results)

	assert.Equal(t, "r1", sum.RunID)
	assert.Equal(t, ts, sum.Timestamp)
	assert.Equal(t, 2, sum.LeasesTested)
	assert.Equal(t, 1, sum.LeasesErrored)
	assert.InDelta(t, 75.0, sum.AverageAccuracy, 1e-9)
	assert.InDelta(t, 0.5, sum.TotalCost, 1e-9)
	assert.InDelta(t, 31.0, sum.TotalTime, 1e-9)
	assert.Equal(t, map[string]float64{"tenant_legal_name": 50, "base_rent_monthly": 100}, sum.FieldAccuracy)
	require.Len(t, sum.PerLease, 3)
	assert.Equal(t, "extraction failed", sum.PerLease[2].Error)
	assert.True(t, sum.MultiPass)
	assert.Equal(t, 12, sum.FewShotCount)
}

func TestSummarize_AllErrored(t *testing.T) {
	t.Parallel()

	sum := Summarize(RunInfo{}, []model.LeaseResult{{Tenant: "A", Error: "boom"}})
	assert.Zero(t, sum.LeasesTested)
	assert.Zero(t, sum.AverageAccuracy)
	assert.Empty(t, sum.FieldAccuracy)
}

func TestRescore(t *testing.T) {
	t.Parallel()

	s := NewScorer(testFieldMap)
	gold := []model.GoldRecord{
		{LeaseFile: "a.pdf", Tenant: "A", GroundTruth: map[string]any{"base_rent_monthly": "$10,000"}},
		{LeaseFile: "b.pdf", Tenant: "B", GroundTruth: map[string]any{"base_rent_monthly": 5000.0}},
	}
	results := []model.LeaseResult{
		{Tenant: "A", LeaseFile: "a.pdf", Cost: 0.3, Extraction: map[string]any{"rent.base_rent_monthly": 10100.0}},
		{Tenant: "B", LeaseFile: "b.pdf", Error: "timeout"},
		{Tenant: "Z", LeaseFile: "z.pdf", Accuracy: 42},
	}

	out, err := s.Rescore(context.Background(), gold, results, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.InDelta(t, 100.0, out[0].Accuracy, 1e-9)
	assert.InDelta(t, 0.3, out[0].Cost, 1e-9)
	assert.Equal(t, "timeout", out[1].Error)
	assert.InDelta(t, 42.0, out[2].Accuracy, 1e-9)
}

func TestRescore_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScorer(testFieldMap)
	_, err := s.Rescore(ctx, nil, []model.LeaseResult{{LeaseFile: "a.pdf"}}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
