// Package benchmark runs extractions over the gold-standard leases, scores
// them and records the run.
package benchmark

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lease-abstract/internal/accuracy"
	"github.com/sells-group/lease-abstract/internal/docstore"
	"github.com/sells-group/lease-abstract/internal/extract"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/resilience"
	"github.com/sells-group/lease-abstract/pkg/anthropic"
)

// ErrRunInProgress is returned when a run is started while another is
// still going.
var ErrRunInProgress = errors.New("benchmark: run already in progress")

// Defaults.
const (
	DefaultNumLeases    = 5
	DefaultMaxFileBytes = 4.5 * 1024 * 1024
	DefaultThrottle     = 300 * time.Second
)

// Extractor produces a merged extraction for a document.
type Extractor interface {
	ExtractOnce(ctx context.Context, doc extract.Document) (*model.MergedExtraction, error)
	ExtractWithRefinement(ctx context.Context, doc extract.Document, threshold float64) (*model.MergedExtraction, error)
}

// RunSaver persists a finished run.
type RunSaver interface {
	SaveAccuracyRun(ctx context.Context, report model.RunReport) error
}

// Config controls a benchmark run.
type Config struct {
	// NumLeases caps how many eligible leases are tested. 0 uses the default.
	NumLeases int
	MultiPass bool
	// Threshold is the refinement threshold. 0 uses the extractor's.
	Threshold float64
	// MaxFileBytes excludes documents of this size or larger.
	MaxFileBytes int64
	// Throttle is the minimum spacing between document extractions. A
	// negative value disables throttling.
	Throttle time.Duration
	// Label overrides the generated run label.
	Label string
	Retry resilience.RetryConfig
}

// Runner drives benchmark runs. One run at a time.
type Runner struct {
	ext     Extractor
	docs    docstore.Source
	scorer  *accuracy.Scorer
	reports *accuracy.Reports
	saver   RunSaver
	tracker *Tracker
	cfg     Config

	promptVersion string
	fewShotCount  int

	mu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithSaver also persists each finished run.
func WithSaver(s RunSaver) Option {
	return func(r *Runner) { r.saver = s }
}

// WithPrompt records the prompt version and few-shot count in summaries.
func WithPrompt(version string, fewShotCount int) Option {
	return func(r *Runner) {
		r.promptVersion = version
		r.fewShotCount = fewShotCount
	}
}

// WithTracker publishes progress to t instead of a private tracker.
func WithTracker(t *Tracker) Option {
	return func(r *Runner) { r.tracker = t }
}

// NewRunner creates a Runner.
func NewRunner(ext Extractor, docs docstore.Source, scorer *accuracy.Scorer, reports *accuracy.Reports, cfg Config, opts ...Option) *Runner {
	if cfg.NumLeases <= 0 {
		cfg.NumLeases = DefaultNumLeases
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Throttle == 0 {
		cfg.Throttle = DefaultThrottle
	}
	r := &Runner{ext: ext, docs: docs, scorer: scorer, reports: reports, cfg: cfg}
	for _, o := range opts {
		o(r)
	}
	if r.tracker == nil {
		r.tracker = NewTracker()
	}
	return r
}

// State returns a snapshot of the run progress.
func (r *Runner) State() RunState {
	return r.tracker.Snapshot()
}

// ClearState resets the run progress to idle.
func (r *Runner) ClearState() {
	r.tracker.Clear()
}

// Eligible returns the gold records whose document exists and is smaller
// than the size limit, in order.
func (r *Runner) Eligible(ctx context.Context, gold []model.GoldRecord) ([]model.GoldRecord, error) {
	var out []model.GoldRecord
	for _, g := range gold {
		size, err := r.docs.Stat(ctx, g.LeaseFile)
		if errors.Is(err, docstore.ErrNotFound) {
			zap.L().Debug("benchmark: lease not found, skipping", zap.String("lease_file", g.LeaseFile))
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "benchmark: stat %s", g.LeaseFile)
		}
		if size >= r.cfg.MaxFileBytes {
			zap.L().Debug("benchmark: lease too large, skipping",
				zap.String("lease_file", g.LeaseFile),
				zap.Int64("size", size),
			)
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// Run extracts and scores up to NumLeases eligible leases one at a time,
// then writes the run report and persists it when a saver is set.
// onProgress, if non-nil, receives a snapshot before and after each lease.
func (r *Runner) Run(ctx context.Context, gold []model.GoldRecord, onProgress func(RunState)) (*model.RunReport, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	report, err := r.run(ctx, gold, onProgress)
	if err != nil {
		st := r.tracker.Snapshot()
		st.Status = StatusError
		st.Error = err.Error()
		r.publish(st, onProgress)
		zap.L().Error("benchmark: run failed", zap.String("run_id", st.RunID), zap.Error(err))
		return nil, err
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, gold []model.GoldRecord, onProgress func(RunState)) (*model.RunReport, error) {
	eligible, err := r.Eligible(ctx, gold)
	if err != nil {
		return nil, err
	}
	if len(eligible) > r.cfg.NumLeases {
		eligible = eligible[:r.cfg.NumLeases]
	}

	start := time.Now()
	info := accuracy.RunInfo{
		RunID:         accuracy.NewRunID(start),
		Label:         accuracy.Label(r.promptVersion, r.cfg.MultiPass, r.cfg.Label),
		Timestamp:     start,
		PromptVersion: r.promptVersion,
		FewShotCount:  r.fewShotCount,
		MultiPass:     r.cfg.MultiPass,
	}

	st := RunState{
		Status:      StatusRunning,
		RunID:       info.RunID,
		TotalLeases: len(eligible),
		Completed:   []CompletedLease{},
	}
	r.publish(st, onProgress)

	zap.L().Info("benchmark: run started",
		zap.String("run_id", info.RunID),
		zap.String("label", info.Label),
		zap.Int("leases", len(eligible)),
		zap.Bool("multi_pass", r.cfg.MultiPass),
	)

	limiter := r.limiter()
	results := make([]model.LeaseResult, 0, len(eligible))

	for i, g := range eligible {
		st.CurrentLease = i + 1
		st.CurrentTenant = g.Tenant
		st.Elapsed = time.Since(start)
		if i > 0 {
			st.EstimatedRemaining = st.Elapsed / time.Duration(i) * time.Duration(len(eligible)-i)
		}
		r.publish(st, onProgress)

		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "benchmark: throttle")
		}

		res := r.scoreLease(ctx, g)
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "benchmark: run cancelled")
		}
		results = append(results, res)

		st.Completed = append(st.Completed, CompletedLease{
			Tenant:    res.Tenant,
			Accuracy:  res.Accuracy,
			Correct:   res.Correct,
			Evaluated: res.Evaluated,
			Error:     res.Error,
		})
		st.OverallAccuracy = rollingAccuracy(results)
		st.Elapsed = time.Since(start)
		r.publish(st, onProgress)

		zap.L().Info("benchmark: lease scored",
			zap.String("tenant", res.Tenant),
			zap.Int("lease", i+1),
			zap.Int("of", len(eligible)),
			zap.Float64("accuracy", res.Accuracy),
			zap.String("error", res.Error),
		)
	}

	report := model.RunReport{
		Summary: accuracy.Summarize(info, results),
		Details: results,
	}
	if _, err := r.reports.Write(report); err != nil {
		return nil, err
	}
	if r.saver != nil {
		if err := r.saver.SaveAccuracyRun(ctx, report); err != nil {
			zap.L().Warn("benchmark: persist run failed", zap.String("run_id", info.RunID), zap.Error(err))
		}
	}

	st.Status = StatusComplete
	st.CurrentTenant = ""
	st.EstimatedRemaining = 0
	st.Elapsed = time.Since(start)
	st.Summary = &report.Summary
	r.publish(st, onProgress)

	zap.L().Info("benchmark: run complete",
		zap.String("run_id", info.RunID),
		zap.Int("tested", report.Summary.LeasesTested),
		zap.Int("errored", report.Summary.LeasesErrored),
		zap.Float64("average_accuracy", report.Summary.AverageAccuracy),
		zap.Float64("total_cost", report.Summary.TotalCost),
	)
	return &report, nil
}

// scoreLease extracts one lease and scores it. Failures are recorded on the
// result rather than returned.
func (r *Runner) scoreLease(ctx context.Context, g model.GoldRecord) model.LeaseResult {
	leaseStart := time.Now()
	failed := func(err error) model.LeaseResult {
		zap.L().Warn("benchmark: lease failed", zap.String("lease_file", g.LeaseFile), zap.Error(err))
		return model.LeaseResult{
			Tenant:    g.Tenant,
			LeaseFile: g.LeaseFile,
			Error:     err.Error(),
			Time:      time.Since(leaseStart).Seconds(),
		}
	}

	data, err := r.docs.Read(ctx, g.LeaseFile)
	if err != nil {
		return failed(err)
	}
	doc := extract.Document{
		Name:      g.LeaseFile,
		MediaType: docstore.MediaType(g.LeaseFile),
		Data:      data,
	}

	retry := r.cfg.Retry
	retry.ShouldRetry = resilience.Retryable(anthropic.StatusCode)
	retry.OnRetry = resilience.RetryLogger(g.LeaseFile, r.phase())

	merged, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.MergedExtraction, error) {
		if r.cfg.MultiPass {
			return r.ext.ExtractWithRefinement(ctx, doc, r.cfg.Threshold)
		}
		return r.ext.ExtractOnce(ctx, doc)
	})
	if err != nil {
		return failed(err)
	}
	return r.scorer.ScoreExtraction(g, merged, time.Since(leaseStart))
}

func (r *Runner) phase() string {
	if r.cfg.MultiPass {
		return "multi_pass"
	}
	return "single_pass"
}

func (r *Runner) limiter() *rate.Limiter {
	if r.cfg.Throttle < 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(r.cfg.Throttle), 1)
}

func (r *Runner) publish(st RunState, onProgress func(RunState)) {
	r.tracker.Set(st)
	if onProgress != nil {
		onProgress(r.tracker.Snapshot())
	}
}

// rollingAccuracy is the mean accuracy of the successful results so far,
// rounded to one place.
func rollingAccuracy(results []model.LeaseResult) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		sum += r.Accuracy
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*10) / 10
}
