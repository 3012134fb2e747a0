package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldRegistry(t *testing.T) {
	t.Parallel()

	reg := NewFieldRegistry([]FieldDef{
		{Path: "parties.tenant_name", Category: "parties", Type: TypeText, Required: true},
		{Path: "dates.commencement_date", Category: "dates", Type: TypeDate, Required: true},
		{Path: "parties.landlord_name", Category: "parties", Type: TypeText},
	})

	t.Run("ByPath returns definition", func(t *testing.T) {
		t.Parallel()
		f := reg.ByPath("dates.commencement_date")
		require.NotNil(t, f)
		assert.Equal(t, TypeDate, f.Type)
		assert.Equal(t, "commencement_date", f.Name())
	})

	t.Run("ByPath returns nil for unknown path", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, reg.ByPath("rent.unknown"))
	})

	t.Run("TypeOf", func(t *testing.T) {
		t.Parallel()
		ft, ok := reg.TypeOf("parties.tenant_name")
		assert.True(t, ok)
		assert.Equal(t, TypeText, ft)
		_, ok = reg.TypeOf("nope")
		assert.False(t, ok)
	})

	t.Run("Required returns only required fields", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, reg.Required(), 2)
	})

	t.Run("categories keep first appearance order", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"parties", "dates"}, reg.Categories())
		assert.Len(t, reg.InCategory("parties"), 2)
	})

	t.Run("Paths", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"parties.tenant_name", "dates.commencement_date", "parties.landlord_name"}, reg.Paths())
	})
}

func TestExtractionPass_NonNull(t *testing.T) {
	t.Parallel()

	p := NewExtractionPass()
	p.Extractions["a"] = "x"
	p.Extractions["b"] = nil
	p.Extractions["c"] = 0.0

	got := p.NonNull()
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "c")
}
