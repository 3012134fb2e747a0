package model

import "time"

// GoldRecord is one hand-labeled lease abstract.
type GoldRecord struct {
	LeaseFile     string         `json:"lease_file"`
	AbstractFile  string         `json:"abstract_file,omitempty"`
	AbstractSheet string         `json:"abstract_sheet,omitempty"`
	Tenant        string         `json:"tenant"`
	GroundTruth   map[string]any `json:"ground_truth"`
}

// FieldComparison is the outcome of comparing one gold field.
type FieldComparison struct {
	Match      bool    `json:"match"`
	Reason     string  `json:"detail"`
	Gold       any     `json:"gold"`
	Extracted  any     `json:"extracted"`
	Confidence float64 `json:"confidence"`
}

// LeaseResult is the scored result for one document in a benchmark run.
type LeaseResult struct {
	Tenant       string                     `json:"tenant"`
	LeaseFile    string                     `json:"lease_file"`
	FieldResults map[string]FieldComparison `json:"field_results"`
	Accuracy     float64                    `json:"accuracy"`
	Correct      int                        `json:"correct"`
	Evaluated    int                        `json:"evaluated"`
	Cost         float64                    `json:"cost"`
	Time         float64                    `json:"time"`
	Extraction   map[string]any             `json:"extraction,omitempty"`
	Confidence   map[string]float64         `json:"confidence,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// LeaseSummary is the per-document line of a run summary.
type LeaseSummary struct {
	Tenant   string  `json:"tenant"`
	Accuracy float64 `json:"accuracy"`
	Error    string  `json:"error,omitempty"`
}

// RunSummary aggregates a benchmark run.
type RunSummary struct {
	RunID           string             `json:"run_id"`
	Label           string             `json:"label"`
	Timestamp       time.Time          `json:"timestamp"`
	PromptVersion   string             `json:"prompt_version"`
	FewShotCount    int                `json:"few_shot_count"`
	MultiPass       bool               `json:"multi_pass"`
	LeasesTested    int                `json:"leases_tested"`
	LeasesErrored   int                `json:"leases_errored"`
	AverageAccuracy float64            `json:"average_accuracy"`
	TotalCost       float64            `json:"total_cost"`
	TotalTime       float64            `json:"total_time"`
	FieldAccuracy   map[string]float64 `json:"field_accuracy"`
	PerLease        []LeaseSummary     `json:"per_lease"`
}

// RunReport is the on-disk form of a benchmark run.
type RunReport struct {
	Summary RunSummary    `json:"summary"`
	Details []LeaseResult `json:"details"`
}
