// Package citation checks provider citations against the text of the
// cited document.
package citation

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/pdftext"
)

// fragments shorter than this are too common to prove anything
const minFragment = 4

var (
	ellipsis   = regexp.MustCompile(`\.\.\.+|…`)
	whitespace = regexp.MustCompile(`\s+`)
	quotes     = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'", "–", "-", "—", "-")
)

func normalize(s string) string {
	s = strings.ToLower(quotes.Replace(s))
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Verifier checks citations against page text from an Extractor.
type Verifier struct {
	text pdftext.Extractor
}

// NewVerifier creates a Verifier.
func NewVerifier(text pdftext.Extractor) *Verifier {
	return &Verifier{text: text}
}

// VerifyExtraction extracts the document's pages and verifies every
// citation of ext in place.
func (v *Verifier) VerifyExtraction(ctx context.Context, pdf []byte, ext *model.MergedExtraction) error {
	pages, err := v.text.Pages(ctx, pdf)
	if err != nil {
		return eris.Wrap(err, "citation: extract page text")
	}
	ext.Citations = Verify(pages, ext.Citations)

	verified := 0
	for _, c := range ext.Citations {
		if c.Verified != nil && *c.Verified {
			verified++
		}
	}
	zap.L().Info("citation: verified",
		zap.Int("pages", len(pages)),
		zap.Int("citations", len(ext.Citations)),
		zap.Int("verified", verified),
	)
	return nil
}

// Verify returns a copy of citations with Verified and FoundPage set.
// Pages are numbered from 1. The cited page is searched first, then the
// rest of the document in order. Citations without a quote are returned
// untouched.
func Verify(pages []string, citations map[string]model.Citation) map[string]model.Citation {
	norm := make([]string, len(pages))
	for i, p := range pages {
		norm[i] = normalize(p)
	}

	out := make(map[string]model.Citation, len(citations))
	for field, c := range citations {
		if strings.TrimSpace(c.Quote) == "" {
			out[field] = c
			continue
		}
		found := FindPage(norm, c.Quote, c.Page)
		ok := found > 0
		c.Verified = &ok
		c.FoundPage = found
		out[field] = c
	}
	return out
}

// FindPage returns the 1-based page holding quote, preferring page hint,
// or 0 when no page holds it. pages must already be normalized.
func FindPage(pages []string, quote string, hint int) int {
	frags := fragments(quote)
	if len(frags) == 0 {
		return 0
	}
	if hint >= 1 && hint <= len(pages) && containsInOrder(pages[hint-1], frags) {
		return hint
	}
	for i, p := range pages {
		if i+1 == hint {
			continue
		}
		if containsInOrder(p, frags) {
			return i + 1
		}
	}
	return 0
}

// fragments splits a quote on elided text.
func fragments(quote string) []string {
	var out []string
	for _, f := range ellipsis.Split(quote, -1) {
		f = strings.Trim(normalize(f), `"' `)
		if len(f) >= minFragment {
			out = append(out, f)
		}
	}
	return out
}

func containsInOrder(page string, frags []string) bool {
	rest := page
	for _, f := range frags {
		i := strings.Index(rest, f)
		if i < 0 {
			return false
		}
		rest = rest[i+len(f):]
	}
	return true
}
