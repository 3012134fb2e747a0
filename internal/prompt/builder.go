// Package prompt renders the extraction and focused re-extraction prompts
// sent alongside a lease document.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/lease-abstract/internal/model"
)

// DefaultVersion identifies the built-in prompt.
const DefaultVersion = "1.0"

const defaultIntro = "You are a commercial lease abstraction expert. Extract structured information from this lease PDF."

const instructions = `For each field in the schema below:
1. Extract the exact value from the document
2. Explain your reasoning - why did you extract this specific value?
3. Cite the specific section (page number and brief quote) where you found it
4. Rate your confidence (0.0-1.0) based on how clear the information is

If a field is not present or cannot be determined from the document, set the value to null and explain why in the reasoning.

CRITICAL: Return ONLY valid JSON. Do not include any text before or after the JSON object.

Return a JSON object with this EXACT structure:
{
  "extractions": {"field_path": "value"},
  "reasoning": {"field_path": "explanation"},
  "citations": {"field_path": {"page": number, "quote": "brief relevant quote"}},
  "confidence": {"field_path": 0.95}
}`

const closing = "Now extract data from the provided lease document. Return ONLY the JSON object, no other text."

// Prompt is a rendered request: System is identical for every document and
// is sent as a cacheable block, User accompanies the document.
type Prompt struct {
	System string
	User   string
}

// Builder renders prompts for a field registry, an optional template and
// optional few-shot examples.
type Builder struct {
	registry *model.FieldRegistry
	template *Template
	examples []Example
}

// Option configures a Builder.
type Option func(*Builder)

// WithTemplate applies a prompt template.
func WithTemplate(t *Template) Option {
	return func(b *Builder) { b.template = t }
}

// WithExamples adds few-shot examples.
func WithExamples(ex []Example) Option {
	return func(b *Builder) { b.examples = SelectExamples(ex, MaxExamples) }
}

// NewBuilder creates a Builder.
func NewBuilder(reg *model.FieldRegistry, opts ...Option) *Builder {
	b := &Builder{registry: reg}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Version returns the prompt version recorded with each extraction.
func (b *Builder) Version() string {
	if b.template != nil && b.template.Version != "" {
		return b.template.Version
	}
	return DefaultVersion
}

// ExampleCount returns the number of few-shot examples in use.
func (b *Builder) ExampleCount() int {
	return len(b.examples)
}

// Registry returns the field registry the builder renders.
func (b *Builder) Registry() *model.FieldRegistry {
	return b.registry
}

// Extraction renders the full-document extraction prompt.
func (b *Builder) Extraction() Prompt {
	var sb strings.Builder

	intro := defaultIntro
	if b.template != nil && b.template.SystemPrompt != "" {
		intro = b.template.SystemPrompt
	}
	sb.WriteString(intro)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\nFIELD SCHEMA:\n")
	sb.WriteString(Schema(b.registry))
	sb.WriteString("\n")

	if b.template != nil {
		writeSection(&sb, "FIELD TYPE GUIDANCE", b.template.FieldTypeGuidance)
		writeSection(&sb, "NULL VALUE GUIDANCE", b.template.NullValueGuidance)
		writeSection(&sb, "EXTRACTION GUIDANCE", b.template.ExtractionExamples)
	}

	if len(b.examples) > 0 {
		sb.WriteString("\n\nEXAMPLES OF CORRECT EXTRACTIONS:\n\n")
		for _, ex := range b.examples {
			fmt.Fprintf(&sb, "Field: %s\n", ex.FieldPath)
			fmt.Fprintf(&sb, "Source: %s\n", ex.SourceText)
			fmt.Fprintf(&sb, "Correct Value: %s\n", ex.CorrectValue)
			fmt.Fprintf(&sb, "Reasoning: %s\n\n", ex.Reasoning)
		}
	}

	return Prompt{System: sb.String(), User: closing}
}

// Focused renders the re-extraction prompt for fields, using the other
// already-extracted values as read-only context.
func (b *Builder) Focused(fields []string, extracted map[string]any) Prompt {
	target := make(map[string]bool, len(fields))
	for _, f := range fields {
		target[f] = true
	}

	var sb strings.Builder
	sb.WriteString(b.Extraction().System)

	var ub strings.Builder
	ub.WriteString("A first pass over this lease returned low confidence for the fields below. ")
	ub.WriteString("Re-read the document carefully, paying attention to amendments, exhibits and defined terms, ")
	ub.WriteString("and extract ONLY these fields:\n\n")
	for _, path := range fields {
		line := "- " + path
		if f := b.registry.ByPath(path); f != nil {
			line += fmt.Sprintf(" (%s): %s", f.Type, f.Description)
		}
		ub.WriteString(line)
		ub.WriteString("\n")
	}

	ctxPaths := make([]string, 0, len(extracted))
	for path, v := range extracted {
		if v != nil && !target[path] {
			ctxPaths = append(ctxPaths, path)
		}
	}
	sort.Strings(ctxPaths)
	if len(ctxPaths) > 0 {
		ub.WriteString("\nValues already extracted for other fields (context only, do not return them):\n")
		for _, path := range ctxPaths {
			fmt.Fprintf(&ub, "- %s: %s\n", path, contextValue(extracted[path]))
		}
	}

	ub.WriteString("\nReturn the same JSON structure containing only the fields listed above. ")
	ub.WriteString("Return ONLY the JSON object, no other text.")

	return Prompt{System: sb.String(), User: ub.String()}
}

func writeSection(sb *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString(":\n")
	sb.WriteString(body)
	sb.WriteString("\n")
}

func contextValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
