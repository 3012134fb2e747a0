// Package dates parses the date spellings found in lease documents and
// lease abstracts into calendar dates.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// ISOLayout is the canonical date form.
const ISOLayout = "2006-01-02"

var (
	isoShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	ordinal  = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
)

// layouts are tried in order; the first that parses wins. US month-first
// forms come before day-first forms so 01/02/2024 reads as January 2.
var layouts = []string{
	"1/2/2006",
	"1/2/06",
	"2/1/2006",
	"2/1/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/1/2",
	"1-2-2006",
	"20060102",
	"Jan. 2, 2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"1-2-06",
}

// IsISO reports whether s already has the canonical YYYY-MM-DD shape. It
// does not check that the date exists.
func IsISO(s string) bool {
	return isoShape.MatchString(s)
}

// ParseISO parses a canonical YYYY-MM-DD date.
func ParseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !IsISO(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Parse reads s in any supported spelling. Ordinal suffixes ("1st",
// "22nd") are accepted.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if IsISO(s) {
		return ParseISO(s)
	}
	if t, ok := tryLayouts(s); ok {
		return t, true
	}
	if cleaned := ordinal.ReplaceAllString(s, "$1"); cleaned != s {
		return tryLayouts(cleaned)
	}
	return time.Time{}, false
}

func tryLayouts(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize returns s as YYYY-MM-DD.
func Normalize(s string) (string, bool) {
	t, ok := Parse(s)
	if !ok {
		return "", false
	}
	return Format(t), true
}

// Format renders t in canonical form.
func Format(t time.Time) string {
	return t.Format(ISOLayout)
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
