package prompt

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MaxExamples caps the few-shot examples included in a prompt.
const MaxExamples = 30

// Template overrides parts of the built-in extraction prompt.
type Template struct {
	Version            string `yaml:"version" json:"version"`
	SystemPrompt       string `yaml:"system_prompt" json:"system_prompt"`
	FieldTypeGuidance  string `yaml:"field_type_guidance" json:"field_type_guidance"`
	ExtractionExamples string `yaml:"extraction_examples" json:"extraction_examples"`
	NullValueGuidance  string `yaml:"null_value_guidance" json:"null_value_guidance"`
}

// Example is a reviewed extraction shown to the model as a few-shot example.
type Example struct {
	FieldPath    string   `yaml:"field_path" json:"field_path"`
	SourceText   string   `yaml:"source_text" json:"source_text"`
	CorrectValue string   `yaml:"correct_value" json:"correct_value"`
	Reasoning    string   `yaml:"reasoning" json:"reasoning"`
	QualityScore *float64 `yaml:"quality_score" json:"quality_score,omitempty"`
	Inactive     bool     `yaml:"inactive" json:"inactive,omitempty"`
}

// LoadTemplate reads a prompt template from a YAML file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "prompt: read template")
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "prompt: parse template")
	}
	return &t, nil
}

// LoadExamples reads few-shot examples from a YAML file and returns the
// active ones ordered by quality score (unscored last), capped at limit.
func LoadExamples(path string, limit int) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "prompt: read examples")
	}
	var all []Example
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, eris.Wrap(err, "prompt: parse examples")
	}
	return SelectExamples(all, limit), nil
}

// SelectExamples filters out inactive examples and orders the rest by
// quality score descending, unscored last, keeping at most limit.
func SelectExamples(all []Example, limit int) []Example {
	if limit <= 0 || limit > MaxExamples {
		limit = MaxExamples
	}
	active := make([]Example, 0, len(all))
	for _, ex := range all {
		if !ex.Inactive {
			active = append(active, ex)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		qi, qj := active[i].QualityScore, active[j].QualityScore
		switch {
		case qi == nil:
			return false
		case qj == nil:
			return true
		default:
			return *qi > *qj
		}
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return active
}
