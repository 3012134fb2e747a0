// Package extract runs lease extraction against the document-AI provider
// and decides whether low-confidence fields get a focused second pass.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/cost"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/prompt"
	"github.com/sells-group/lease-abstract/pkg/anthropic"
)

// Refinement defaults.
const (
	DefaultThreshold = 0.70
	DefaultMaxTokens = 8000

	// MinImprovement is the confidence gain a focused value needs before it
	// replaces the first-pass value.
	MinImprovement = 0.10

	gainEpsilon = 1e-9
)

// Pass names recorded in MergedExtraction.Passes.
const (
	PassInitial = "initial"
	PassFocused = "focused"
)

// ErrExtractionFailed marks a provider call that produced no usable result.
var ErrExtractionFailed = errors.New("extraction failed")

// FailedError wraps the cause of a failed provider pass. It matches
// ErrExtractionFailed with errors.Is.
type FailedError struct {
	Phase string
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("extract: %s pass failed: %v", e.Phase, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtractionFailed.
func (e *FailedError) Is(target error) bool { return target == ErrExtractionFailed }

// Document is a lease file to extract from.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

// Validator normalizes a pass in place before refinement gating. related
// holds values from elsewhere in the document for cross-field checks.
type Validator interface {
	ValidatePass(p *model.ExtractionPass, related map[string]any)
}

// Config holds provider call settings.
type Config struct {
	Model     string
	MaxTokens int64
	Threshold float64
}

// Extractor runs extraction passes. It keeps no per-document state.
type Extractor struct {
	client    anthropic.Client
	builder   *prompt.Builder
	calc      *cost.Calculator
	validator Validator
	cfg       Config
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithValidator validates each pass before confidence gating.
func WithValidator(v Validator) Option {
	return func(e *Extractor) { e.validator = v }
}

// New creates an Extractor.
func New(client anthropic.Client, builder *prompt.Builder, calc *cost.Calculator, cfg Config, opts ...Option) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	e := &Extractor{client: client, builder: builder, calc: calc, cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Threshold returns the configured refinement threshold.
func (e *Extractor) Threshold() float64 { return e.cfg.Threshold }

// Extract runs a single full-document pass.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*model.ExtractionPass, error) {
	return e.call(ctx, doc, e.builder.Extraction(), PassInitial)
}

// ExtractOnce runs a single validated pass with no refinement.
func (e *Extractor) ExtractOnce(ctx context.Context, doc Document) (*model.MergedExtraction, error) {
	p, err := e.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	e.validate(p, nil)
	return Single(p), nil
}

// ExtractWithRefinement runs a full pass and, when some non-null fields
// score below threshold, a focused pass over those fields. A non-positive
// threshold uses the configured one.
func (e *Extractor) ExtractWithRefinement(ctx context.Context, doc Document, threshold float64) (*model.MergedExtraction, error) {
	if threshold <= 0 {
		threshold = e.cfg.Threshold
	}

	first, err := e.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	e.validate(first, nil)

	low := LowConfidenceFields(first, threshold)
	if len(low) == 0 {
		zap.L().Info("extract: no refinement needed",
			zap.String("document", doc.Name),
			zap.Int("fields", len(first.Extractions)),
		)
		return Single(first), nil
	}

	zap.L().Info("extract: refining low-confidence fields",
		zap.String("document", doc.Name),
		zap.Strings("fields", low),
		zap.Float64("threshold", threshold),
	)

	second, err := e.call(ctx, doc, e.builder.Focused(low, first.Extractions), PassFocused)
	if err != nil {
		return nil, err
	}
	// The focused pass only repeats the weak fields; check it against the
	// first pass so both are penalized under the same rules.
	e.validate(second, first.NonNull())

	merged := Merge(first, second, low)
	zap.L().Info("extract: refinement merged",
		zap.String("document", doc.Name),
		zap.Int("candidates", len(low)),
		zap.Int("improved", len(merged.RefinementImprovements)),
		zap.Float64("total_cost", merged.TotalCost),
	)
	return merged, nil
}

func (e *Extractor) validate(p *model.ExtractionPass, related map[string]any) {
	if e.validator != nil {
		e.validator.ValidatePass(p, related)
	}
}

func (e *Extractor) call(ctx context.Context, doc Document, p prompt.Prompt, phase string) (*model.ExtractionPass, error) {
	mediaType := doc.MediaType
	if mediaType == "" {
		mediaType = anthropic.MediaTypePDF
	}

	start := time.Now()
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(p.System),
		Messages: []anthropic.Message{{
			Role:      "user",
			Content:   p.User,
			Documents: []anthropic.Document{{MediaType: mediaType, Data: doc.Data, Title: doc.Name}},
		}},
	})
	if err != nil {
		return nil, &FailedError{Phase: phase, Err: err}
	}

	pass, err := ParseResponse(resp.Text())
	if err != nil {
		return nil, &FailedError{Phase: phase, Err: err}
	}

	u := resp.Usage
	usd := e.calc.Claude(e.cfg.Model, u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens)
	u.LogCost(e.cfg.Model, phase, usd)

	pass.Usage = model.Usage{
		Model:            e.cfg.Model,
		PromptVersion:    e.builder.Version(),
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheWriteTokens: u.CacheCreationInputTokens,
		CacheReadTokens:  u.CacheReadInputTokens,
		Cost:             usd,
		Duration:         time.Since(start),
	}
	return pass, nil
}

// LowConfidenceFields returns, sorted, the paths with a non-null value whose
// confidence is below threshold. A value without a confidence score counts
// as zero confidence.
func LowConfidenceFields(p *model.ExtractionPass, threshold float64) []string {
	var out []string
	for path, v := range p.Extractions {
		if v == nil {
			continue
		}
		if p.Confidence[path] < threshold {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Single wraps a pass that needed no refinement.
func Single(p *model.ExtractionPass) *model.MergedExtraction {
	return &model.MergedExtraction{
		ExtractionPass:    *p,
		MultiPass:         false,
		Passes:            []model.PassTiming{p.Timing(PassInitial)},
		TotalCost:         p.Usage.Cost,
		TotalInputTokens:  p.Usage.InputTokens,
		TotalOutputTokens: p.Usage.OutputTokens,
		TotalDuration:     p.Usage.Duration,
	}
}

// Merge combines the first pass with a focused pass over candidates. A
// candidate takes the focused value only when its confidence gained at
// least MinImprovement. Neither input is modified.
func Merge(first, second *model.ExtractionPass, candidates []string) *model.MergedExtraction {
	m := &model.MergedExtraction{
		ExtractionPass:         *clonePass(first),
		MultiPass:              true,
		RefinedFields:          append([]string(nil), candidates...),
		RefinementImprovements: make(map[string]model.Improvement),
		Passes:                 []model.PassTiming{first.Timing(PassInitial), second.Timing(PassFocused)},
		TotalCost:              cost.Round(first.Usage.Cost + second.Usage.Cost),
		TotalInputTokens:       first.Usage.InputTokens + second.Usage.InputTokens,
		TotalOutputTokens:      first.Usage.OutputTokens + second.Usage.OutputTokens,
		TotalDuration:          first.Usage.Duration + second.Usage.Duration,
	}

	for _, path := range candidates {
		value, ok := second.Extractions[path]
		if !ok {
			continue
		}
		initial := first.Confidence[path]
		refined, ok := second.Confidence[path]
		if !ok {
			continue
		}
		gain := refined - initial
		if gain+gainEpsilon < MinImprovement {
			continue
		}

		m.Extractions[path] = value
		m.Confidence[path] = refined
		if r, ok := second.Reasoning[path]; ok {
			m.Reasoning[path] = r
		}
		if c, ok := second.Citations[path]; ok {
			m.Citations[path] = c
		}
		if w, ok := second.Warnings[path]; ok {
			m.Warnings[path] = w
		} else {
			delete(m.Warnings, path)
		}
		m.RefinementImprovements[path] = model.Improvement{
			InitialConfidence: initial,
			RefinedConfidence: refined,
			Improvement:       math.Round(gain*1e4) / 1e4,
		}
	}

	m.Usage = first.Usage
	m.Usage.InputTokens = m.TotalInputTokens
	m.Usage.OutputTokens = m.TotalOutputTokens
	m.Usage.CacheWriteTokens = first.Usage.CacheWriteTokens + second.Usage.CacheWriteTokens
	m.Usage.CacheReadTokens = first.Usage.CacheReadTokens + second.Usage.CacheReadTokens
	m.Usage.Cost = m.TotalCost
	m.Usage.Duration = m.TotalDuration
	return m
}

func clonePass(p *model.ExtractionPass) *model.ExtractionPass {
	c := model.NewExtractionPass()
	for k, v := range p.Extractions {
		c.Extractions[k] = v
	}
	for k, v := range p.Reasoning {
		c.Reasoning[k] = v
	}
	for k, v := range p.Citations {
		c.Citations[k] = v
	}
	for k, v := range p.Confidence {
		c.Confidence[k] = v
	}
	for k, v := range p.Warnings {
		c.Warnings[k] = append([]string(nil), v...)
	}
	c.Usage = p.Usage
	return c
}
