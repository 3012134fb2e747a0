package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lease-abstract/internal/model"
)

func testRegistry() *model.FieldRegistry {
	return model.NewFieldRegistry([]model.FieldDef{
		{Path: "parties.tenant_name", Category: "parties", Type: model.TypeText,
			Description: "Full legal name of the tenant/lessee", Required: true},
		{Path: "dates.commencement_date", Category: "dates_term", Type: model.TypeDate,
			Description: "Date when the lease term begins", Required: true},
		{Path: "rent.base_rent_monthly", Category: "rent", Type: model.TypeCurrency,
			Description: "Monthly base rent amount"},
	})
}

func ptr(f float64) *float64 { return &f }

func TestCategoryTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Dates Term", CategoryTitle("dates_term"))
	assert.Equal(t, "Operating Expenses", CategoryTitle("operating_expenses"))
	assert.Equal(t, "Rent", CategoryTitle("rent"))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	got := Schema(testRegistry())
	want := "\n## Parties\n- parties.tenant_name: Full legal name of the tenant/lessee (REQUIRED)" +
		"\n## Dates Term\n- dates.commencement_date: Date when the lease term begins (REQUIRED)" +
		"\n## Rent\n- rent.base_rent_monthly: Monthly base rent amount"
	assert.Equal(t, want, got)
}

func TestBuilder_Extraction(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testRegistry())
	p := b.Extraction()

	assert.True(t, strings.HasPrefix(p.System, "You are a commercial lease abstraction expert."))
	assert.Contains(t, p.System, "FIELD SCHEMA:")
	assert.Contains(t, p.System, `"confidence": {"field_path": 0.95}`)
	assert.NotContains(t, p.System, "EXAMPLES OF CORRECT EXTRACTIONS")
	assert.Equal(t, closing, p.User)
	assert.Equal(t, DefaultVersion, b.Version())
	assert.Zero(t, b.ExampleCount())
}

func TestBuilder_WithTemplateAndExamples(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testRegistry(),
		WithTemplate(&Template{
			Version:           "2.1",
			SystemPrompt:      "You abstract retail leases.",
			FieldTypeGuidance: "Dates must be ISO.",
			NullValueGuidance: "Use null when silent.",
		}),
		WithExamples([]Example{
			{FieldPath: "rent.base_rent_monthly", SourceText: "Monthly Base Rent: $12,500", CorrectValue: "12500", Reasoning: "Stated directly", QualityScore: ptr(0.9)},
		}),
	)

	p := b.Extraction()
	assert.Equal(t, "2.1", b.Version())
	assert.Equal(t, 1, b.ExampleCount())
	assert.True(t, strings.HasPrefix(p.System, "You abstract retail leases."))
	assert.Contains(t, p.System, "FIELD TYPE GUIDANCE:\nDates must be ISO.")
	assert.Contains(t, p.System, "NULL VALUE GUIDANCE:\nUse null when silent.")
	assert.NotContains(t, p.System, "EXTRACTION GUIDANCE")
	assert.Contains(t, p.System, "EXAMPLES OF CORRECT EXTRACTIONS:\n\nField: rent.base_rent_monthly\nSource: Monthly Base Rent: $12,500\nCorrect Value: 12500\nReasoning: Stated directly\n")
}

func TestBuilder_Focused(t *testing.T) {
	t.Parallel()

	b := NewBuilder(testRegistry())
	p := b.Focused(
		[]string{"dates.commencement_date"},
		map[string]any{
			"parties.tenant_name":     "Acme LLC",
			"rent.base_rent_monthly":  12500.0,
			"dates.commencement_date": "2024-01-01",
			"use.permitted_use":       nil,
		},
	)

	assert.Equal(t, b.Extraction().System, p.System)
	assert.Contains(t, p.User, "- dates.commencement_date (date): Date when the lease term begins")
	assert.Contains(t, p.User, "- parties.tenant_name: Acme LLC\n")
	assert.Contains(t, p.User, "- rent.base_rent_monthly: 12500\n")
	assert.NotContains(t, p.User, "- dates.commencement_date: 2024-01-01")
	assert.NotContains(t, p.User, "use.permitted_use")
	assert.Less(t, strings.Index(p.User, "parties.tenant_name"), strings.Index(p.User, "rent.base_rent_monthly"))
}

func TestSelectExamples(t *testing.T) {
	t.Parallel()

	all := []Example{
		{FieldPath: "a"},
		{FieldPath: "b", QualityScore: ptr(0.5)},
		{FieldPath: "c", QualityScore: ptr(0.9)},
		{FieldPath: "d", QualityScore: ptr(0.99), Inactive: true},
	}
	got := SelectExamples(all, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].FieldPath)
	assert.Equal(t, "b", got[1].FieldPath)
	assert.Equal(t, "a", got[2].FieldPath)

	many := make([]Example, 40)
	assert.Len(t, SelectExamples(many, 0), MaxExamples)
	assert.Len(t, SelectExamples(all, 1), 1)
}

func TestLoadTemplateAndExamples(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tp := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(tp, []byte("version: \"3\"\nnull_value_guidance: leave null\n"), 0o644))
	ep := filepath.Join(dir, "examples.yaml")
	require.NoError(t, os.WriteFile(ep, []byte(`- field_path: rent.base_rent_monthly
  source_text: "$10,000 per month"
  correct_value: "10000"
  quality_score: 0.4
- field_path: dates.commencement_date
  source_text: "commencing January 1, 2024"
  correct_value: "2024-01-01"
  quality_score: 0.8
`), 0o644))

	tmpl, err := LoadTemplate(tp)
	require.NoError(t, err)
	assert.Equal(t, "3", tmpl.Version)
	assert.Equal(t, "leave null", tmpl.NullValueGuidance)

	ex, err := LoadExamples(ep, 30)
	require.NoError(t, err)
	require.Len(t, ex, 2)
	assert.Equal(t, "dates.commencement_date", ex[0].FieldPath)

	_, err = LoadTemplate(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
