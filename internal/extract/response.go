package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Response section names.
const (
	SectionExtractions = "extractions"
	SectionReasoning   = "reasoning"
	SectionCitations   = "citations"
	SectionConfidence  = "confidence"
)

// SectionStatus tags how a top-level response section arrived.
type SectionStatus int

// Section states.
const (
	SectionAbsent SectionStatus = iota
	SectionPresent
	SectionMalformed
)

func (s SectionStatus) String() string {
	switch s {
	case SectionPresent:
		return "present"
	case SectionMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Section is one top-level object of a provider response.
type Section struct {
	Name    string
	Status  SectionStatus
	Entries map[string]any
	Err     error
}

// Response is a decoded provider response.
type Response struct {
	Extractions Section
	Reasoning   Section
	Citations   Section
	Confidence  Section
}

var sectionSchemas = map[string]string{
	SectionExtractions: `{"type": "object"}`,
	SectionReasoning:   `{"type": "object"}`,
	SectionCitations: `{
		"type": "object",
		"additionalProperties": {
			"anyOf": [
				{"type": "null"},
				{"type": "object", "properties": {"page": {"type": ["integer", "string", "null"]}, "quote": {"type": ["string", "null"]}}}
			]
		}
	}`,
	SectionConfidence: `{"type": "object"}`,
}

var compiledSchemas = mustCompileSections()

func mustCompileSections() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(sectionSchemas))
	for name, src := range sectionSchemas {
		compiler := jsonschema.NewCompiler()
		url := name + ".json"
		if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("extract: add %s schema: %v", name, err))
		}
		out[name] = compiler.MustCompile(url)
	}
	return out
}

// cleanJSON strips markdown fences and surrounding prose from a model reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// DecodeResponse parses the JSON object in a model reply. It fails only when
// no JSON object can be read; section problems are reported per section.
func DecodeResponse(text string) (*Response, error) {
	body := cleanJSON(text)
	if body == "" {
		return nil, eris.New("extract: no JSON object found in response")
	}

	var top map[string]any
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, eris.Wrap(err, "extract: parse response JSON")
	}

	return &Response{
		Extractions: decodeSection(SectionExtractions, top),
		Reasoning:   decodeSection(SectionReasoning, top),
		Citations:   decodeSection(SectionCitations, top),
		Confidence:  decodeSection(SectionConfidence, top),
	}, nil
}

func decodeSection(name string, top map[string]any) Section {
	raw, ok := top[name]
	if !ok || raw == nil {
		return Section{Name: name, Status: SectionAbsent, Entries: map[string]any{}}
	}
	if err := compiledSchemas[name].Validate(raw); err != nil {
		return Section{Name: name, Status: SectionMalformed, Err: err}
	}
	return Section{Name: name, Status: SectionPresent, Entries: raw.(map[string]any)}
}

// Pass converts the response into an extraction pass. A malformed section
// fails the whole pass; absent sections become empty maps and individual
// odd entries are dropped.
func (r *Response) Pass() (*model.ExtractionPass, error) {
	for _, s := range []Section{r.Extractions, r.Reasoning, r.Citations, r.Confidence} {
		if s.Status == SectionMalformed {
			return nil, eris.Wrapf(s.Err, "extract: malformed %s section", s.Name)
		}
	}

	p := model.NewExtractionPass()
	for k, v := range r.Extractions.Entries {
		p.Extractions[k] = scalar(v)
	}
	for k, v := range r.Reasoning.Entries {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			p.Reasoning[k] = s
		} else {
			p.Reasoning[k] = fmt.Sprint(scalar(v))
		}
	}
	for k, v := range r.Citations.Entries {
		if c, ok := citation(v); ok {
			p.Citations[k] = c
		}
	}
	for k, v := range r.Confidence.Entries {
		f, ok := toFloat64(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		p.Confidence[k] = math.Max(0, math.Min(1, f))
	}
	return p, nil
}

// ParseResponse decodes a model reply into an extraction pass.
func ParseResponse(text string) (*model.ExtractionPass, error) {
	resp, err := DecodeResponse(text)
	if err != nil {
		return nil, err
	}
	return resp.Pass()
}

// scalar keeps JSON scalars and re-encodes objects and arrays as JSON text.
func scalar(v any) any {
	switch v.(type) {
	case nil, string, float64, bool:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func citation(v any) (model.Citation, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Citation{}, false
	}
	var c model.Citation
	if page, ok := toFloat64(m["page"]); ok {
		c.Page = int(page)
	}
	if q, ok := m["quote"].(string); ok {
		c.Quote = q
	}
	if c.Page == 0 && c.Quote == "" {
		return model.Citation{}, false
	}
	return c, true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
