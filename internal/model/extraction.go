package model

import "time"

// Citation points at the page and verbatim text a value was read from.
type Citation struct {
	Page      int    `json:"page"`
	Quote     string `json:"quote"`
	Verified  *bool  `json:"verified,omitempty"`
	FoundPage int    `json:"found_page,omitempty"`
}

// Usage records token consumption, cost and timing for one provider call.
type Usage struct {
	Model            string        `json:"model_version"`
	PromptVersion    string        `json:"prompt_version"`
	InputTokens      int64         `json:"input_tokens"`
	OutputTokens     int64         `json:"output_tokens"`
	CacheWriteTokens int64         `json:"cache_write_tokens,omitempty"`
	CacheReadTokens  int64         `json:"cache_read_tokens,omitempty"`
	Cost             float64       `json:"total_cost"`
	Duration         time.Duration `json:"processing_time_ns"`
}

// ExtractionPass is the result of one provider extraction call.
type ExtractionPass struct {
	Extractions map[string]any      `json:"extractions"`
	Reasoning   map[string]string   `json:"reasoning"`
	Citations   map[string]Citation `json:"citations"`
	Confidence  map[string]float64  `json:"confidence"`
	Warnings    map[string][]string `json:"validation_warnings,omitempty"`
	Usage       Usage               `json:"metadata"`
}

// NewExtractionPass returns a pass with all maps allocated.
func NewExtractionPass() *ExtractionPass {
	return &ExtractionPass{
		Extractions: make(map[string]any),
		Reasoning:   make(map[string]string),
		Citations:   make(map[string]Citation),
		Confidence:  make(map[string]float64),
		Warnings:    make(map[string][]string),
	}
}

// NonNull returns the extracted values that are present and non-null.
func (p *ExtractionPass) NonNull() map[string]any {
	out := make(map[string]any, len(p.Extractions))
	for k, v := range p.Extractions {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Improvement records a confidence change for a field adopted from the
// focused pass.
type Improvement struct {
	InitialConfidence float64 `json:"initial_confidence"`
	RefinedConfidence float64 `json:"refined_confidence"`
	Improvement       float64 `json:"improvement"`
}

// PassTiming summarizes a single pass inside a merged extraction.
type PassTiming struct {
	Name         string        `json:"name"`
	Duration     time.Duration `json:"duration_ns"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Cost         float64       `json:"cost"`
}

// MergedExtraction is the final result of an extraction with optional
// refinement.
type MergedExtraction struct {
	ExtractionPass
	MultiPass              bool                   `json:"multi_pass"`
	RefinedFields          []string               `json:"refined_fields,omitempty"`
	RefinementImprovements map[string]Improvement `json:"refinement_improvements,omitempty"`
	Passes                 []PassTiming           `json:"passes"`
	TotalCost              float64                `json:"total_cost"`
	TotalInputTokens       int64                  `json:"total_input_tokens"`
	TotalOutputTokens      int64                  `json:"total_output_tokens"`
	TotalDuration          time.Duration          `json:"total_duration_ns"`
}

// Timing returns the PassTiming for a pass.
func (p *ExtractionPass) Timing(name string) PassTiming {
	return PassTiming{
		Name:         name,
		Duration:     p.Usage.Duration,
		InputTokens:  p.Usage.InputTokens,
		OutputTokens: p.Usage.OutputTokens,
		Cost:         p.Usage.Cost,
	}
}

// ExtractionStatus is the lifecycle state of a persisted extraction.
type ExtractionStatus string

// Extraction lifecycle states.
const (
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// ExtractionRecord is a persisted extraction.
type ExtractionRecord struct {
	ID           string            `json:"id"`
	DocumentName string            `json:"document_name"`
	Status       ExtractionStatus  `json:"status"`
	Result       *MergedExtraction `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
