package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here is the result:\n{\"a\":1}\nLet me know.", `{"a":1}`},
		{"no object", "I could not read the document.", ""},
		{"reversed braces", "} {", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	text := "```json\n" + `{
		"extractions": {
			"parties.tenant_name": "Acme LLC",
			"rent.base_rent_monthly": 12500,
			"rights.renewal_options": ["two 5-year options"],
			"property.usable_area": null
		},
		"reasoning": {"parties.tenant_name": "Preamble", "rent.base_rent_monthly": null},
		"citations": {
			"parties.tenant_name": {"page": 1, "quote": "Acme LLC, a Delaware limited liability company"},
			"rent.base_rent_monthly": {"page": "4", "quote": "$12,500.00"},
			"property.usable_area": null
		},
		"confidence": {"parties.tenant_name": 0.95, "rent.base_rent_monthly": "0.8", "property.usable_area": "high"}
	}` + "\n```"

	p, err := ParseResponse(text)
	require.NoError(t, err)

	assert.Equal(t, "Acme LLC", p.Extractions["parties.tenant_name"])
	assert.Equal(t, 12500.0, p.Extractions["rent.base_rent_monthly"])
	assert.Equal(t, `["two 5-year options"]`, p.Extractions["rights.renewal_options"])
	v, ok := p.Extractions["property.usable_area"]
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.Equal(t, "Preamble", p.Reasoning["parties.tenant_name"])
	assert.NotContains(t, p.Reasoning, "rent.base_rent_monthly")

	assert.Equal(t, 1, p.Citations["parties.tenant_name"].Page)
	assert.Equal(t, 4, p.Citations["rent.base_rent_monthly"].Page)
	assert.NotContains(t, p.Citations, "property.usable_area")

	assert.InDelta(t, 0.95, p.Confidence["parties.tenant_name"], 1e-9)
	assert.InDelta(t, 0.8, p.Confidence["rent.base_rent_monthly"], 1e-9)
	assert.NotContains(t, p.Confidence, "property.usable_area")
}

func TestDecodeResponse_SectionStatus(t *testing.T) {
	t.Parallel()

	resp, err := DecodeResponse(`{"extractions": {"a": "b"}, "reasoning": "none given", "confidence": null}`)
	require.NoError(t, err)

	assert.Equal(t, SectionPresent, resp.Extractions.Status)
	assert.Equal(t, SectionMalformed, resp.Reasoning.Status)
	assert.Error(t, resp.Reasoning.Err)
	assert.Equal(t, SectionAbsent, resp.Citations.Status)
	assert.Equal(t, SectionAbsent, resp.Confidence.Status)
	assert.Equal(t, "malformed", resp.Reasoning.Status.String())

	_, err = resp.Pass()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed reasoning section")
}

func TestParseResponse_AbsentSectionsAreEmpty(t *testing.T) {
	t.Parallel()

	p, err := ParseResponse(`{"extractions": {"parties.tenant_name": "Acme"}}`)
	require.NoError(t, err)
	assert.Len(t, p.Extractions, 1)
	assert.NotNil(t, p.Reasoning)
	assert.Empty(t, p.Citations)
	assert.Empty(t, p.Confidence)
}

func TestParseResponse_ConfidenceBounded(t *testing.T) {
	t.Parallel()

	p, err := ParseResponse(`{
		"extractions": {"a": "x", "b": "y", "c": "z", "d": "w"},
		"confidence": {"a": "NaN", "b": 85, "c": -1, "d": "Inf"}
	}`)
	require.NoError(t, err)
	assert.NotContains(t, p.Confidence, "a")
	assert.NotContains(t, p.Confidence, "d")
	assert.Equal(t, 1.0, p.Confidence["b"])
	assert.Equal(t, 0.0, p.Confidence["c"])
}

func TestParseResponse_Failures(t *testing.T) {
	t.Parallel()

	_, err := ParseResponse("Sorry, I can't help with that.")
	assert.Error(t, err)

	_, err = ParseResponse(`{"extractions": {"a": }`)
	assert.Error(t, err)

	_, err = ParseResponse(`{"extractions": ["a", "b"]}`)
	assert.Error(t, err)

	_, err = ParseResponse(`{"citations": {"a": {"page": [1], "quote": "x"}}}`)
	assert.Error(t, err)
}
