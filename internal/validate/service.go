// Package validate turns raw extracted field values into canonical values,
// flags cross-field inconsistencies and adjusts extraction confidence.
package validate

import (
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/model"
)

// MaxAdjustment bounds the confidence adjustment of a single outcome.
const MaxAdjustment = 0.2

// DefaultConfidence is assumed for a field the provider returned no
// confidence for.
const DefaultConfidence = 0.5

// Service validates field values against a lease field registry. It holds
// no mutable state and is safe for concurrent use.
type Service struct {
	registry *model.FieldRegistry
}

// NewService creates a Service backed by reg.
func NewService(reg *model.FieldRegistry) *Service {
	return &Service{registry: reg}
}

// Validate normalizes raw according to fieldType and, when siblings are
// given, checks it against related fields.
func (s *Service) Validate(fieldPath string, raw any, fieldType model.FieldType, siblings map[string]any) Outcome {
	if raw == nil {
		return Outcome{}
	}

	out := Normalize(fieldPath, raw, fieldType)
	out.ConfidenceAdjustment = clamp(out.ConfidenceAdjustment, -MaxAdjustment, MaxAdjustment)

	if len(siblings) > 0 && out.Value != nil {
		if cw := CheckConsistency(fieldPath, out.Value, siblings); len(cw) > 0 {
			out.Warnings = append(out.Warnings, cw...)
			out.ConfidenceAdjustment = clamp(out.ConfidenceAdjustment+ConsistencyPenalty, -MaxAdjustment, MaxAdjustment)
		}
	}
	return out
}

// ValidatePass validates every non-null registered field of p in place.
// Values become canonical and warnings are recorded. A field whose outcome
// carries an adjustment gets its confidence (DefaultConfidence when absent)
// shifted and clamped to [0, 1]. Fields unknown to the registry are left
// untouched.
//
// Cross-field checks see related overlaid with p's own non-null values, so
// a focused pass covering a few fields is checked against the rest of the
// document. related may be nil.
func (s *Service) ValidatePass(p *model.ExtractionPass, related map[string]any) {
	if p == nil || s.registry == nil {
		return
	}
	if p.Confidence == nil {
		p.Confidence = make(map[string]float64)
	}
	if p.Warnings == nil {
		p.Warnings = make(map[string][]string)
	}

	own := p.NonNull()
	siblings := make(map[string]any, len(related)+len(own))
	for k, v := range related {
		if v != nil {
			siblings[k] = v
		}
	}
	for k, v := range own {
		siblings[k] = v
	}

	adjusted := 0
	for path, raw := range own {
		ft, ok := s.registry.TypeOf(path)
		if !ok {
			continue
		}
		out := s.Validate(path, raw, ft, siblings)
		p.Extractions[path] = out.Value

		if out.ConfidenceAdjustment != 0 {
			current, ok := p.Confidence[path]
			if !ok {
				current = DefaultConfidence
			}
			p.Confidence[path] = clamp(current+out.ConfidenceAdjustment, 0, 1)
			adjusted++
		}
		if len(out.Warnings) > 0 {
			p.Warnings[path] = out.Warnings
		}
	}

	zap.L().Debug("validate: pass validated",
		zap.Int("fields", len(own)),
		zap.Int("with_warnings", len(p.Warnings)),
		zap.Int("confidence_adjusted", adjusted),
	)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
