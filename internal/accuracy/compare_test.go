package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare_Nulls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		gold      any
		extracted any
		field     string
		match     bool
		reason    string
	}{
		{"both nil", nil, nil, "tenant_legal_name", true, ReasonBothNull},
		{"null tokens", "N/A", "TBD", "permitted_use", true, ReasonBothNull},
		{"spreadsheet error", "#DIV/0!", "", "base_rent_monthly", true, ReasonBothNull},
		{"gold null", nil, "Acme", "tenant_legal_name", false, ReasonGoldNull},
		{"extracted null", "Acme", nil, "tenant_legal_name", false, ReasonExtractedNull},
		{"zero vs null", 0.0, nil, "security_deposit", true, ReasonZeroVsNull},
		{"zero text vs null", "$0", "not specified", "ti_total", true, ReasonZeroVsNull},
		{"null vs zero is not forgiven", nil, 0.0, "security_deposit", false, ReasonGoldNull},
		{"nonzero vs null", 5000.0, nil, "security_deposit", false, ReasonExtractedNull},
		{"zero date vs null", "0", nil, "lease_commencement", false, ReasonExtractedNull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			match, reason := Compare(tt.gold, tt.extracted, tt.field)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCompare_Dates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		gold      any
		extracted any
		match     bool
		reason    string
	}{
		{"textual vs iso", "January 15, 2024", "2024-01-15", true, ReasonExactDate},
		{"slash vs iso", "01/15/2024", "2024-01-15", true, ReasonExactDate},
		{"ordinal", "March 1st, 2024", "2024-03-01", true, ReasonExactDate},
		{"datetime", "2024-03-01T00:00:00", "March 1, 2024", true, ReasonExactDate},
		{"off by a day", "01/15/2024", "2024-01-16", false, "date_mismatch: gold=2024-01-15 ext=2024-01-16"},
		{"unparseable", "upon delivery", "2024-01-01", false, "date_mismatch: gold=upon delivery ext=2024-01-01"},
		{"none spelling", "2024-01-01", "None", false, "date_mismatch: gold=2024-01-01 ext=None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			match, reason := Compare(tt.gold, tt.extracted, "lease_commencement")
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCompare_NumberTolerance(t *testing.T) {
	t.Parallel()

	match, reason := Compare(100000.0, 105000.0, "base_rent_annual")
	assert.True(t, match)
	assert.Equal(t, "number_match (ratio=0.050)", reason)

	match, reason = Compare(100000.0, 105001.0, "base_rent_annual")
	assert.False(t, match)
	assert.Equal(t, "number_mismatch: gold=100000 ext=105001 (off by 5.0%)", reason)

	match, _ = Compare(100000.0, 95000.0, "base_rent_annual")
	assert.True(t, match)

	match, reason = Compare("$15,000.00", 15000.0, "base_rent_monthly")
	assert.True(t, match)
	assert.Equal(t, "number_match (ratio=0.000)", reason)
}

func TestCompare_Numbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		gold      any
		extracted any
		field     string
		match     bool
		reason    string
	}{
		{"zero both", 0.0, "0", "security_deposit", true, "zero_compare: gold=0 ext=0"},
		{"zero gold nonzero ext", "0", 500.0, "security_deposit", false, "zero_compare: gold=0 ext=500"},
		{"parse fail", "see lease", "5", "base_rent_monthly", false, "number_parse_fail: gold=see lease ext=5"},
		{"area with commas", "12,500", 12480.0, "tenant_sq_feet", true, "number_match (ratio=0.002)"},
		{"term years", "5 years", 60.0, "term_months", true, "number_match (ratio=0.000)"},
		{"term years and months", "5 years and 3 months", "63", "term_months", true, "number_match (ratio=0.000)"},
		{"term comma form", "10 yrs, 6 mos", 126.0, "term_months", true, "number_match (ratio=0.000)"},
		{"term months", "36 months", 36.0, "term_months", true, "number_match (ratio=0.000)"},
		{"term mismatch", "10 years", 60.0, "term_months", false, "number_mismatch: gold=120 ext=60 (off by 50.0%)"},
		{"pro rata decimal vs percent", 0.125, 12.5, "pro_rata_share", true, "number_match (ratio=0.000)"},
		{"pro rata percent vs decimal", "12.5%", 0.125, "pro_rata_share", true, "number_match (ratio=0.000)"},
		{"pro rata both decimal", 0.125, 0.5, "pro_rata_share", false, "number_mismatch: gold=0.13 ext=0.5 (off by 284.6%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			match, reason := Compare(tt.gold, tt.extracted, tt.field)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCompare_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		gold      string
		extracted string
		field     string
		match     bool
		reason    string
	}{
		{"none semantic", "None", "No renewal options.", "renewal_options", true, ReasonBothNone},
		{"none with period", "N/A.", "none", "expansion", true, ReasonBothNone},
		{"case insensitive", "Acme Holdings LLC", "ACME HOLDINGS LLC", "tenant_legal_name", true, ReasonExactText},
		{"nnn cluster", "NNN", "Triple Net", "lease_type", true, "nnn_match"},
		{"nn cluster", "Double Net", "NN", "lease_type", true, "nn_match"},
		{"gross cluster", "Full Service", "Gross", "lease_type", true, "gross_match"},
		{"modified cluster", "Modified Gross", "modified net lease", "lease_type", true, "modified_match"},
		{"modified is not gross", "Modified Gross", "Gross", "lease_type", false, ReasonTextMismatch},
		{"nnn is not nn", "NNN", "Net Net", "lease_type", false, ReasonTextMismatch},
		{"address abbreviations", "100 Main St., Austin, TX 78701", "100 Main Street Austin Texas 78701", "premise_address", true, ReasonAddressNormalized},
		{"address parkway", "500 Capital of Texas Hwy, Ste 200", "500 capital of texas highway suite 200", "premise_address", true, ReasonAddressNormalized},
		{"containment", "Acme Holdings", "Acme Holdings, a Delaware LLC", "tenant_legal_name", true, ReasonTextContains},
		{"short strings fall back to overlap", "Acme", "Acme Corp", "tenant_legal_name", true, "word_overlap (100%)"},
		{"long field overlap", "general office and administrative use", "office use only", "permitted_use", true, "word_overlap (50%)"},
		{"short field overlap too low", "Acme Property Holdings", "Acme Retail Partners", "tenant_legal_name", false, ReasonTextMismatch},
		{"short field overlap", "Acme Property Holdings Group", "Holdings of Acme Property", "tenant_legal_name", true, "word_overlap (75%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			match, reason := Compare(tt.gold, tt.extracted, tt.field)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCompare_UnknownField(t *testing.T) {
	t.Parallel()

	match, reason := Compare("x", "x", "parking_ratio")
	assert.False(t, match)
	assert.Equal(t, ReasonUnknownField, reason)
	assert.Equal(t, ClassUnknown, ClassOf("parking_ratio"))
	assert.Equal(t, "unknown", ClassOf("parking_ratio").String())
}

func TestClassOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ClassDate, ClassOf("execution_date"))
	assert.Equal(t, ClassNumber, ClassOf("pro_rata_share"))
	assert.Equal(t, ClassText, ClassOf("lease_type"))
}
