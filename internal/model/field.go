package model

import "strings"

// FieldType selects the normalization rule applied to a field value.
type FieldType string

// Supported field types.
const (
	TypeDate       FieldType = "date"
	TypeCurrency   FieldType = "currency"
	TypeNumber     FieldType = "number"
	TypePercentage FieldType = "percentage"
	TypeArea       FieldType = "area"
	TypeBoolean    FieldType = "boolean"
	TypeAddress    FieldType = "address"
	TypeText       FieldType = "text"
	TypeList       FieldType = "list"
)

// FieldDef describes a single extractable lease field.
type FieldDef struct {
	Path        string    `json:"path" yaml:"path"`
	Label       string    `json:"label" yaml:"label"`
	Category    string    `json:"category" yaml:"category"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
	Required    bool      `json:"required" yaml:"required"`
}

// Name returns the field name without its category prefix.
func (f FieldDef) Name() string {
	if i := strings.IndexByte(f.Path, '.'); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// FieldRegistry is an indexed collection of field definitions.
type FieldRegistry struct {
	Fields     []FieldDef
	byPath     map[string]*FieldDef
	required   []*FieldDef
	categories []string
}

// NewFieldRegistry creates a FieldRegistry with indexed lookups. Category
// order follows first appearance in fields.
func NewFieldRegistry(fields []FieldDef) *FieldRegistry {
	r := &FieldRegistry{
		Fields: fields,
		byPath: make(map[string]*FieldDef, len(fields)),
	}
	seen := make(map[string]bool)
	for i := range r.Fields {
		f := &r.Fields[i]
		r.byPath[f.Path] = f
		if f.Required {
			r.required = append(r.required, f)
		}
		if !seen[f.Category] {
			seen[f.Category] = true
			r.categories = append(r.categories, f.Category)
		}
	}
	return r
}

// ByPath returns the field definition for the given path, or nil if not found.
func (r *FieldRegistry) ByPath(path string) *FieldDef {
	return r.byPath[path]
}

// TypeOf returns the declared type of path and whether the path is known.
func (r *FieldRegistry) TypeOf(path string) (FieldType, bool) {
	f := r.byPath[path]
	if f == nil {
		return "", false
	}
	return f.Type, true
}

// Required returns all required field definitions.
func (r *FieldRegistry) Required() []*FieldDef {
	return r.required
}

// Categories returns category names in registration order.
func (r *FieldRegistry) Categories() []string {
	return r.categories
}

// InCategory returns the fields of a category in registration order.
func (r *FieldRegistry) InCategory(category string) []FieldDef {
	var out []FieldDef
	for _, f := range r.Fields {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// Paths returns every registered field path in registration order.
func (r *FieldRegistry) Paths() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Path
	}
	return out
}
