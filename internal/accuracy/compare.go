// Package accuracy scores extracted lease fields against a hand-labeled gold
// standard and writes run reports.
package accuracy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/lease-abstract/internal/dates"
)

// Class is the equivalence class a gold field is compared under.
type Class int

// Comparison classes.
const (
	ClassUnknown Class = iota
	ClassDate
	ClassNumber
	ClassText
)

func (c Class) String() string {
	switch c {
	case ClassDate:
		return "date"
	case ClassNumber:
		return "number"
	case ClassText:
		return "text"
	default:
		return "unknown"
	}
}

var fieldClasses = map[string]Class{
	"lease_commencement": ClassDate,
	"lease_expiration":   ClassDate,
	"rent_commencement":  ClassDate,
	"execution_date":     ClassDate,

	"tenant_sq_feet":     ClassNumber,
	"base_rent_monthly":  ClassNumber,
	"base_rent_annual":   ClassNumber,
	"rent_per_sf_annual": ClassNumber,
	"security_deposit":   ClassNumber,
	"ti_total":           ClassNumber,
	"term_months":        ClassNumber,
	"pro_rata_share":     ClassNumber,

	"tenant_legal_name": ClassText,
	"premise_address":   ClassText,
	"lease_type":        ClassText,
	"permitted_use":     ClassText,
	"exclusives":        ClassText,
	"renewal_options":   ClassText,
	"termination":       ClassText,
	"expansion":         ClassText,
}

// long descriptive fields use the looser overlap threshold
var longTextFields = map[string]bool{
	"permitted_use":   true,
	"exclusives":      true,
	"renewal_options": true,
	"termination":     true,
	"expansion":       true,
}

// ClassOf returns the comparison class of a gold field name.
func ClassOf(fieldName string) Class {
	return fieldClasses[fieldName]
}

// Tolerances.
const (
	NumberTolerance      = 0.05
	LongTextOverlap      = 0.4
	ShortTextOverlap     = 0.6
	minContainmentLength = 5

	toleranceEpsilon = 1e-12
)

// Reason codes. Mismatch reasons for dates and numbers carry details after
// the code.
const (
	ReasonBothNull          = "both_null"
	ReasonGoldNull          = "gold_null_extracted_present"
	ReasonExtractedNull     = "extracted_null"
	ReasonZeroVsNull        = "zero_vs_null"
	ReasonExactDate         = "exact_date_match"
	ReasonDateMismatch      = "date_mismatch"
	ReasonNumberParseFail   = "number_parse_fail"
	ReasonZeroCompare       = "zero_compare"
	ReasonNumberMatch       = "number_match"
	ReasonNumberMismatch    = "number_mismatch"
	ReasonBothNone          = "both_none_semantic"
	ReasonExactText         = "exact_text_match"
	ReasonAddressNormalized = "address_normalized_match"
	ReasonTextContains      = "text_contains"
	ReasonWordOverlap       = "word_overlap"
	ReasonTextMismatch      = "text_mismatch"
	ReasonUnknownField      = "unknown_field_type"
)

var nullTokens = map[string]bool{
	"":               true,
	"n/a":            true,
	"null":           true,
	"not specified":  true,
	"not applicable": true,
	"tbd":            true,
	"#div/0!":        true,
	"#n/a":           true,
	"#ref!":          true,
	"#value!":        true,
}

// Compare reports whether an extracted value matches the gold value for a
// gold field, and why.
func Compare(gold, extracted any, fieldName string) (bool, string) {
	g, gok := normalizeValue(gold)
	e, eok := normalizeValue(extracted)
	class := ClassOf(fieldName)

	switch {
	case !gok && !eok:
		return true, ReasonBothNull
	case !gok:
		return false, ReasonGoldNull
	case !eok:
		if class == ClassNumber {
			if n, ok := parseNumber(g); ok && n == 0 {
				return true, ReasonZeroVsNull
			}
		}
		return false, ReasonExtractedNull
	}

	switch class {
	case ClassDate:
		return compareDates(g, e)
	case ClassNumber:
		return compareNumbers(g, e, fieldName)
	case ClassText:
		return compareText(g, e, fieldName)
	default:
		return false, ReasonUnknownField
	}
}

// normalizeValue renders v as trimmed text, reporting false for null-ish
// values.
func normalizeValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(text(v))
	if nullTokens[strings.ToLower(s)] {
		return "", false
	}
	return s, true
}

func compareDates(g, e string) (bool, string) {
	gd, gok := normalizeDate(g)
	ed, eok := normalizeDate(e)
	if gok && eok && gd == ed {
		return true, ReasonExactDate
	}
	return false, fmt.Sprintf("%s: gold=%s ext=%s", ReasonDateMismatch, orNone(gd, gok), orNone(ed, eok))
}

// normalizeDate returns the ISO form of s, or s itself when it cannot be
// parsed. A "none" spelling has no date at all.
func normalizeDate(s string) (string, bool) {
	if strings.EqualFold(s, "none") {
		return "", false
	}
	if iso, ok := dates.Normalize(s); ok {
		return iso, true
	}
	return s, true
}

func compareNumbers(g, e, fieldName string) (bool, string) {
	var gn, en float64
	var gok, eok bool
	switch fieldName {
	case "term_months":
		gn, gok = termMonths(g)
		en, eok = termMonths(e)
	case "pro_rata_share":
		gn, en, gok, eok = proRata(g, e)
	default:
		gn, gok = number(g)
		en, eok = number(e)
	}
	if !gok || !eok {
		return false, fmt.Sprintf("%s: gold=%s ext=%s", ReasonNumberParseFail, g, e)
	}

	if gn == 0 {
		return en == 0, fmt.Sprintf("%s: gold=%s ext=%s", ReasonZeroCompare, formatFloat(gn), formatFloat(en))
	}
	ratio := math.Abs(en-gn) / math.Abs(gn)
	if ratio <= NumberTolerance+toleranceEpsilon {
		return true, fmt.Sprintf("%s (ratio=%.3f)", ReasonNumberMatch, ratio)
	}
	return false, fmt.Sprintf("%s: gold=%s ext=%s (off by %.1f%%)",
		ReasonNumberMismatch, formatFloat(gn), formatFloat(en), ratio*100)
}

var numberNoise = regexp.MustCompile(`[,$%\s]`)

// parseNumber reads s after stripping currency symbols, separators and
// percent signs.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(numberNoise.ReplaceAllString(s, ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func number(s string) (float64, bool) {
	f, ok := parseNumber(s)
	if !ok {
		return 0, false
	}
	return round2(f), true
}

var (
	yearsAndMonths = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:years?|yrs?)\s*(?:and|,)?\s*(\d+(?:\.\d+)?)\s*(?:months?|mos?)\s*$`)
	yearsOnly      = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:years?|yrs?)\s*$`)
	monthsOnly     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:months?|mos?)\s*$`)
)

// termMonths reads a lease term as months, accepting "N years [and M
// months]" phrasing.
func termMonths(s string) (float64, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if m := yearsAndMonths.FindStringSubmatch(lower); m != nil {
		years, _ := strconv.ParseFloat(m[1], 64)
		months, _ := strconv.ParseFloat(m[2], 64)
		return round2(years*12 + months), true
	}
	if m := yearsOnly.FindStringSubmatch(lower); m != nil {
		years, _ := strconv.ParseFloat(m[1], 64)
		return round2(years * 12), true
	}
	if m := monthsOnly.FindStringSubmatch(lower); m != nil {
		months, _ := strconv.ParseFloat(m[1], 64)
		return round2(months), true
	}
	return number(lower)
}

// proRata reads both sides of a pro-rata share. When one side is a decimal
// fraction and the other a percentage, the fraction is scaled to percent.
func proRata(g, e string) (float64, float64, bool, bool) {
	gn, gok := parseNumber(g)
	en, eok := parseNumber(e)
	if !gok || !eok {
		return 0, 0, gok, eok
	}
	switch {
	case gn > 0 && gn < 1 && en > 1:
		gn *= 100
	case en > 0 && en < 1 && gn > 1:
		en *= 100
	}
	return round2(gn), round2(en), true, true
}

var (
	noneExact = map[string]bool{
		"none":           true,
		"n/a":            true,
		"no":             true,
		"not applicable": true,
	}
	nonePhrase = regexp.MustCompile(`^no\s+(option|renewal|expansion|termination|right|provision|exclusive)`)

	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	separators = regexp.MustCompile(`[,\s]+`)

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "of": true, "and": true, "in": true,
		"for": true, "to": true, "at": true, "is": true, "be": true, "or": true,
		"llc": true, "inc": true, "ltd": true, "co": true, "shall": true,
		"will": true, "with": true, "its": true, "such": true, "any": true,
	}
)

func isNone(lower string) bool {
	return noneExact[strings.Trim(lower, ".")] || nonePhrase.MatchString(lower)
}

func compareText(g, e, fieldName string) (bool, string) {
	gl := strings.ToLower(g)
	el := strings.ToLower(e)

	if isNone(gl) && isNone(el) {
		return true, ReasonBothNone
	}
	if gl == el {
		return true, ReasonExactText
	}

	if fieldName == "lease_type" {
		gc, ec := leaseTypeCluster(gl), leaseTypeCluster(el)
		if gc != "" && ec != "" {
			if gc == ec {
				return true, gc + "_match"
			}
			return false, ReasonTextMismatch
		}
	}

	if fieldName == "premise_address" {
		gl, el = expandAddress(gl), expandAddress(el)
		if gl == el {
			return true, ReasonAddressNormalized
		}
	}

	if len([]rune(gl)) > minContainmentLength && (strings.Contains(el, gl) || strings.Contains(gl, el)) {
		return true, ReasonTextContains
	}

	gw, ew := contentWords(gl), contentWords(el)
	if len(gw) > 0 && len(ew) > 0 {
		shared := 0
		for w := range gw {
			if ew[w] {
				shared++
			}
		}
		overlap := float64(shared) / float64(len(gw))
		threshold := ShortTextOverlap
		if longTextFields[fieldName] {
			threshold = LongTextOverlap
		}
		if overlap >= threshold {
			return true, fmt.Sprintf("%s (%.0f%%)", ReasonWordOverlap, overlap*100)
		}
	}
	return false, ReasonTextMismatch
}

var leaseTypeClusters = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"modified", regexp.MustCompile(`\bmodified\s+(gross|net)\b`)},
	{"nnn", regexp.MustCompile(`\b(nnn|triple\s+net|net\s+net\s+net)\b`)},
	{"nn", regexp.MustCompile(`\b(nn|double\s+net|net\s+net)\b`)},
	{"gross", regexp.MustCompile(`\b(gross|full\s+service)\b`)},
}

// leaseTypeCluster returns the lease structure family named in s. Families
// are checked most specific first so "modified gross" never reads as gross.
func leaseTypeCluster(s string) string {
	for _, c := range leaseTypeClusters {
		if c.pattern.MatchString(s) {
			return c.name
		}
	}
	return ""
}

var addressAbbreviations = []struct {
	pattern *regexp.Regexp
	full    string
}{
	{regexp.MustCompile(`\bpkwy\b`), "parkway"},
	{regexp.MustCompile(`\bblvd\b`), "boulevard"},
	{regexp.MustCompile(`\bst\b`), "street"},
	{regexp.MustCompile(`\bave\b`), "avenue"},
	{regexp.MustCompile(`\bdr\b`), "drive"},
	{regexp.MustCompile(`\brd\b`), "road"},
	{regexp.MustCompile(`\bln\b`), "lane"},
	{regexp.MustCompile(`\bct\b`), "court"},
	{regexp.MustCompile(`\bpl\b`), "place"},
	{regexp.MustCompile(`\bhwy\b`), "highway"},
	{regexp.MustCompile(`\bste\b`), "suite"},
	{regexp.MustCompile(`\btx\b`), "texas"},
	{regexp.MustCompile(`\bca\b`), "california"},
	{regexp.MustCompile(`\bfl\b`), "florida"},
	{regexp.MustCompile(`\bny\b`), "new york"},
}

func expandAddress(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	for _, a := range addressAbbreviations {
		s = a.pattern.ReplaceAllString(s, a.full)
	}
	return strings.TrimSpace(separators.ReplaceAllString(s, " "))
}

func contentWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(nonAlnum.ReplaceAllString(s, "")) {
		if !stopWords[w] {
			words[w] = true
		}
	}
	return words
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatFloat(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}

func orNone(s string, ok bool) string {
	if !ok {
		return "None"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
