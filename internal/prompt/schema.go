package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lease-abstract/internal/model"
)

// CategoryTitle renders a category key such as "dates_term" as "Dates Term".
func CategoryTitle(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}

// Schema renders the field registry as the FIELD SCHEMA section of the
// extraction prompt, grouped by category.
func Schema(reg *model.FieldRegistry) string {
	var b strings.Builder
	for _, cat := range reg.Categories() {
		b.WriteString("\n## ")
		b.WriteString(CategoryTitle(cat))
		for _, f := range reg.InCategory(cat) {
			b.WriteString("\n- ")
			b.WriteString(f.Path)
			b.WriteString(": ")
			b.WriteString(f.Description)
			if f.Required {
				b.WriteString(" (REQUIRED)")
			}
		}
	}
	return b.String()
}
