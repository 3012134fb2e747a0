package benchmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lease-abstract/internal/accuracy"
	"github.com/sells-group/lease-abstract/internal/docstore"
	"github.com/sells-group/lease-abstract/internal/extract"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/resilience"
)

type fakeExtractor struct {
	once   func(ctx context.Context, doc extract.Document) (*model.MergedExtraction, error)
	refine func(ctx context.Context, doc extract.Document, threshold float64) (*model.MergedExtraction, error)
}

func (f *fakeExtractor) ExtractOnce(ctx context.Context, doc extract.Document) (*model.MergedExtraction, error) {
	return f.once(ctx, doc)
}

func (f *fakeExtractor) ExtractWithRefinement(ctx context.Context, doc extract.Document, threshold float64) (*model.MergedExtraction, error) {
	return f.refine(ctx, doc, threshold)
}

type mockSaver struct{ mock.Mock }

func (m *mockSaver) SaveAccuracyRun(ctx context.Context, report model.RunReport) error {
	return m.Called(ctx, report).Error(0)
}

var testFieldMap = map[string]string{
	"tenant_legal_name": "parties.tenant_name",
	"base_rent_monthly": "rent.base_rent_monthly",
}

func merged(tenant string, rent float64) *model.MergedExtraction {
	return &model.MergedExtraction{
		ExtractionPass: model.ExtractionPass{
			Extractions: map[string]any{
				"parties.tenant_name":    tenant,
				"rent.base_rent_monthly": rent,
			},
			Confidence: map[string]float64{
				"parties.tenant_name":    0.9,
				"rent.base_rent_monthly": 0.8,
			},
		},
		TotalCost: 0.25,
	}
}

func goldRecords() []model.GoldRecord {
	return []model.GoldRecord{
		{LeaseFile: "acme.pdf", Tenant: "Acme", GroundTruth: map[string]any{
			"tenant_legal_name": "Acme Holdings LLC",
			"base_rent_monthly": 15000.0,
		}},
		{LeaseFile: "beta.pdf", Tenant: "Beta", GroundTruth: map[string]any{
			"tenant_legal_name": "Beta Corp",
			"base_rent_monthly": 9000.0,
		}},
	}
}

// leaseDir writes the named documents with the given sizes.
func leaseDir(t *testing.T, sizes map[string]int) string {
	t.Helper()
	dir := t.TempDir()
	for name, n := range sizes {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, n), 0o644))
	}
	return dir
}

func newTestRunner(t *testing.T, ext Extractor, cfg Config, opts ...Option) (*Runner, string) {
	t.Helper()
	docs := docstore.NewFS(leaseDir(t, map[string]int{"acme.pdf": 10, "beta.pdf": 10}))
	dataDir := t.TempDir()
	if cfg.Throttle == 0 {
		cfg.Throttle = -1
	}
	r := NewRunner(ext, docs, accuracy.NewScorer(testFieldMap), accuracy.NewReports(dataDir), cfg, opts...)
	return r, dataDir
}

func TestEligible(t *testing.T) {
	t.Parallel()

	docs := docstore.NewFS(leaseDir(t, map[string]int{"small.pdf": 10, "exact.pdf": 64, "big.pdf": 100}))
	r := NewRunner(&fakeExtractor{}, docs, accuracy.NewScorer(testFieldMap), accuracy.NewReports(t.TempDir()),
		Config{MaxFileBytes: 64})

	gold := []model.GoldRecord{
		{LeaseFile: "big.pdf"},
		{LeaseFile: "small.pdf"},
		{LeaseFile: "missing.pdf"},
		{LeaseFile: "exact.pdf"},
	}
	got, err := r.Eligible(context.Background(), gold)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "small.pdf", got[0].LeaseFile)
}

func TestNewRunner_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRunner(&fakeExtractor{}, docstore.NewFS(t.TempDir()), nil, nil, Config{})
	assert.Equal(t, DefaultNumLeases, r.cfg.NumLeases)
	assert.Equal(t, int64(DefaultMaxFileBytes), r.cfg.MaxFileBytes)
	assert.Equal(t, DefaultThrottle, r.cfg.Throttle)
	assert.Equal(t, StatusIdle, r.State().Status)
}

func TestRun_SinglePass(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{
		once: func(_ context.Context, doc extract.Document) (*model.MergedExtraction, error) {
			assert.Equal(t, docstore.MediaTypePDF, doc.MediaType)
			assert.Len(t, doc.Data, 10)
			if doc.Name == "acme.pdf" {
				return merged("Acme Holdings LLC", 15000), nil
			}
			return merged("Beta Corp", 12000), nil
		},
	}
	saver := &mockSaver{}
	saver.On("SaveAccuracyRun", mock.Anything, mock.AnythingOfType("model.RunReport")).Return(nil).Once()

	r, dataDir := newTestRunner(t, ext, Config{}, WithSaver(saver), WithPrompt("3", 12))

	var progress []RunState
	report, err := r.Run(context.Background(), goldRecords(), func(s RunState) {
		progress = append(progress, s)
	})
	require.NoError(t, err)

	sum := report.Summary
	assert.Equal(t, "baseline_v3", sum.Label)
	assert.Equal(t, "3", sum.PromptVersion)
	assert.Equal(t, 12, sum.FewShotCount)
	assert.Equal(t, 2, sum.LeasesTested)
	assert.Zero(t, sum.LeasesErrored)
	assert.InDelta(t, 75.0, sum.AverageAccuracy, 1e-9)
	assert.InDelta(t, 0.5, sum.TotalCost, 1e-9)
	assert.InDelta(t, 100.0, sum.FieldAccuracy["tenant_legal_name"], 1e-9)
	assert.InDelta(t, 50.0, sum.FieldAccuracy["base_rent_monthly"], 1e-9)
	require.Len(t, report.Details, 2)
	assert.Equal(t, "Acme", report.Details[0].Tenant)

	assert.FileExists(t, filepath.Join(dataDir, accuracy.LatestFile))
	assert.FileExists(t, accuracy.NewReports(dataDir).RunPath(sum))

	// start, then before and after each lease, then complete
	require.Len(t, progress, 6)
	assert.Equal(t, StatusRunning, progress[0].Status)
	assert.Equal(t, 2, progress[0].TotalLeases)
	assert.Equal(t, 1, progress[1].CurrentLease)
	assert.Equal(t, "Acme", progress[1].CurrentTenant)
	assert.InDelta(t, 100.0, progress[2].OverallAccuracy, 1e-9)
	assert.InDelta(t, 75.0, progress[4].OverallAccuracy, 1e-9)

	final := r.State()
	assert.Equal(t, StatusComplete, final.Status)
	assert.Equal(t, sum.RunID, final.RunID)
	require.Len(t, final.Completed, 2)
	assert.Equal(t, CompletedLease{Tenant: "Beta", Accuracy: 50, Correct: 1, Evaluated: 2}, final.Completed[1])
	require.NotNil(t, final.Summary)
	assert.Equal(t, sum.RunID, final.Summary.RunID)
	assert.Zero(t, final.EstimatedRemaining)

	saver.AssertExpectations(t)
}

func TestRun_MultiPassUsesRefinement(t *testing.T) {
	t.Parallel()

	var thresholds []float64
	ext := &fakeExtractor{
		refine: func(_ context.Context, _ extract.Document, threshold float64) (*model.MergedExtraction, error) {
			thresholds = append(thresholds, threshold)
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{MultiPass: true, Threshold: 0.8, NumLeases: 1})

	report, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, "baseline_multipass", report.Summary.Label)
	assert.True(t, report.Summary.MultiPass)
	assert.Equal(t, []float64{0.8}, thresholds)
	assert.Len(t, report.Details, 1)
}

func TestRun_LabelOverride(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{Label: "nightly", NumLeases: 1})

	report, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, "nightly", report.Summary.Label)
}

func TestRun_LeaseErrorIsRecorded(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{
		once: func(_ context.Context, doc extract.Document) (*model.MergedExtraction, error) {
			if doc.Name == "acme.pdf" {
				return nil, &extract.FailedError{Phase: extract.PassInitial, Err: errors.New("no JSON object in response")}
			}
			return merged("Beta Corp", 9000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{})

	report, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.LeasesTested)
	assert.Equal(t, 1, report.Summary.LeasesErrored)
	assert.InDelta(t, 100.0, report.Summary.AverageAccuracy, 1e-9)
	assert.Contains(t, report.Details[0].Error, "no JSON object")

	st := r.State()
	assert.Equal(t, StatusComplete, st.Status)
	assert.InDelta(t, 100.0, st.OverallAccuracy, 1e-9)
	assert.NotEmpty(t, st.Completed[0].Error)
}

func TestRun_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			if calls.Add(1) == 1 {
				return nil, resilience.NewTransientError(errors.New("connection reset by peer"), 0)
			}
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{
		NumLeases: 1,
		Retry:     resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})

	report, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, report.Details[0].Error)
}

func TestRun_SaverFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	saver := &mockSaver{}
	saver.On("SaveAccuracyRun", mock.Anything, mock.Anything).Return(errors.New("db down"))

	r, _ := newTestRunner(t, ext, Config{NumLeases: 1}, WithSaver(saver))
	_, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, r.State().Status)
	saver.AssertExpectations(t)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			close(started)
			<-release
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{NumLeases: 1})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := r.Run(context.Background(), goldRecords(), nil)
		assert.NoError(t, err)
	}()

	<-started
	assert.Equal(t, StatusRunning, r.State().Status)
	_, err := r.Run(context.Background(), goldRecords(), nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	wg.Wait()
	assert.Equal(t, StatusComplete, r.State().Status)
}

func TestRun_CancelledSetsErrorState(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			cancel()
			return nil, context.Canceled
		},
	}
	r, dataDir := newTestRunner(t, ext, Config{})

	_, err := r.Run(ctx, goldRecords(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	st := r.State()
	assert.Equal(t, StatusError, st.Status)
	assert.NotEmpty(t, st.Error)
	assert.NoFileExists(t, filepath.Join(dataDir, accuracy.LatestFile))

	r.ClearState()
	assert.Equal(t, StatusIdle, r.State().Status)
}

func TestRun_ThrottleWaitsBetweenLeases(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	ext := &fakeExtractor{
		once: func(context.Context, extract.Document) (*model.MergedExtraction, error) {
			stamps = append(stamps, time.Now())
			return merged("Acme Holdings LLC", 15000), nil
		},
	}
	r, _ := newTestRunner(t, ext, Config{Throttle: 50 * time.Millisecond})

	_, err := r.Run(context.Background(), goldRecords(), nil)
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 40*time.Millisecond)
}

func TestRollingAccuracy(t *testing.T) {
	t.Parallel()

	assert.Zero(t, rollingAccuracy(nil))
	assert.Zero(t, rollingAccuracy([]model.LeaseResult{{Error: "boom"}}))
	assert.InDelta(t, 66.7, rollingAccuracy([]model.LeaseResult{
		{Accuracy: 100},
		{Accuracy: 33.33},
		{Accuracy: 66.67},
		{Error: "boom"},
	}), 1e-9)
}
