package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/lease-abstract/internal/dates"
	"github.com/sells-group/lease-abstract/internal/model"
)

// Penalty is the confidence adjustment for a value that could not be parsed.
const Penalty = -0.2

const (
	maxCurrency = 100_000_000
	maxArea     = 10_000_000
	maxMonths   = 1200
)

var (
	currencySymbols = regexp.MustCompile(`[$,€£¥]`)
	areaUnits       = regexp.MustCompile(`(?i)\s*(sf|square\s+feet|sq\.?\s*ft\.?|rsf|usf)`)
	suiteToken      = regexp.MustCompile(`(?i)(suite|ste\.?|unit|#)\s*[\w-]+`)
	streetNumber    = regexp.MustCompile(`\b\d+\b`)
	stateCode       = regexp.MustCompile(`\b[A-Z]{2}\b`)
	zipCode         = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)

	printer = message.NewPrinter(language.English)
)

// Outcome is the result of normalizing one field value.
type Outcome struct {
	Value                any
	Warnings             []string
	ConfidenceAdjustment float64
}

func (o *Outcome) warn(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Normalize applies the type rule for ft to raw. raw must not be nil.
func Normalize(fieldPath string, raw any, ft model.FieldType) Outcome {
	switch ft {
	case model.TypeDate:
		return normalizeDate(raw)
	case model.TypeCurrency:
		return normalizeCurrency(raw)
	case model.TypeNumber:
		return normalizeNumber(fieldPath, raw)
	case model.TypePercentage:
		return normalizePercentage(raw)
	case model.TypeArea:
		return normalizeArea(fieldPath, raw)
	case model.TypeBoolean:
		return normalizeBoolean(raw)
	case model.TypeAddress:
		return normalizeAddress(fieldPath, raw)
	default:
		return normalizeText(fieldPath, raw)
	}
}

func normalizeDate(raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	var out Outcome
	if dates.IsISO(s) {
		if _, ok := dates.ParseISO(s); ok {
			out.Value = s
			return out
		}
		out.Value = s
		out.ConfidenceAdjustment = Penalty
		out.warn("Invalid date: %s", s)
		return out
	}
	iso, ok := dates.Normalize(s)
	if !ok {
		out.Value = s
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse date: %s", s)
		return out
	}
	out.Value = iso
	out.warn("Date format normalized from '%s' to '%s'", s, iso)
	return out
}

func normalizeCurrency(raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	var out Outcome
	d, err := decimal.NewFromString(currencySymbols.ReplaceAllString(s, ""))
	if err != nil {
		out.Value = raw
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse currency: %s", s)
		return out
	}
	amount, _ := d.Round(2).Float64()
	out.Value = amount

	if amount < 0 {
		out.warn("Negative currency value: %s", formatFloat(amount))
	}
	if math.Abs(amount) > maxCurrency {
		out.warn("Unusually large currency value: %s", money(amount))
	}
	if s != formatFloat(amount) {
		out.warn("Currency normalized from '%s' to '%s'", s, formatFloat(amount))
	}
	return out
}

func normalizeNumber(fieldPath string, raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	var out Outcome
	n, ok := parseFloat(strings.ReplaceAll(s, ",", ""))
	if !ok {
		out.Value = raw
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse number: %s", s)
		return out
	}
	out.Value = n

	if strings.Contains(strings.ToLower(fieldPath), "month") && (n < 0 || n > maxMonths) {
		out.warn("Unusual month value: %s", formatFloat(n))
	}
	if s != formatFloat(n) {
		out.warn("Number normalized from '%s' to '%s'", s, formatFloat(n))
	}
	return out
}

func normalizePercentage(raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	var out Outcome
	pct, ok := parseFloat(strings.TrimSpace(strings.ReplaceAll(s, "%", "")))
	if !ok {
		out.Value = raw
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse percentage: %s", s)
		return out
	}
	if pct > 1 {
		pct /= 100
		out.warn("Percentage converted from %s to %s", s, formatFloat(pct))
	}
	if pct < 0 || pct > 1 {
		out.warn("Percentage %s outside valid range [0, 1]", formatFloat(pct))
	}
	out.Value = round(pct, 4)
	return out
}

func normalizeArea(fieldPath string, raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	var out Outcome
	cleaned := strings.TrimSpace(strings.ReplaceAll(areaUnits.ReplaceAllString(s, ""), ",", ""))
	area, ok := parseFloat(cleaned)
	if !ok {
		out.Value = raw
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse area: %s", s)
		return out
	}
	out.Value = area

	switch {
	case area < 1:
		out.warn("Very small area: %s SF", formatFloat(area))
	case area > maxArea:
		out.warn("Very large area: %s SF", printer.Sprintf("%.0f", area))
	}

	lower := strings.ToLower(fieldPath)
	switch {
	case strings.Contains(lower, "rentable") && area < 10:
		out.warn("Rentable area suspiciously small")
	case strings.Contains(lower, "usable") && area < 10:
		out.warn("Usable area suspiciously small")
	}

	if s != formatFloat(area) {
		out.warn("Area normalized from '%s' to '%s'", s, formatFloat(area))
	}
	return out
}

var (
	trueTokens  = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true}
	falseTokens = map[string]bool{"false": true, "f": true, "no": true, "n": true, "0": true}
)

func normalizeBoolean(raw any) Outcome {
	var out Outcome
	if b, ok := raw.(bool); ok {
		out.Value = b
		return out
	}
	token := strings.ToLower(strings.TrimSpace(text(raw)))
	switch {
	case trueTokens[token]:
		out.Value = true
	case falseTokens[token]:
		out.Value = false
	default:
		out.ConfidenceAdjustment = Penalty
		out.warn("Could not parse boolean: %s", text(raw))
	}
	return out
}

func normalizeAddress(fieldPath string, raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	out := Outcome{Value: s}

	if suiteToken.MatchString(s) && !strings.Contains(strings.ToLower(fieldPath), "suite") {
		out.warn("Suite/unit found in address - consider extracting separately")
	}
	if !streetNumber.MatchString(s) {
		out.warn("Address missing street number")
	}
	if !stateCode.MatchString(s) {
		out.warn("Address missing state abbreviation")
	}
	if !zipCode.MatchString(s) {
		out.warn("Address missing ZIP code")
	}
	return out
}

func normalizeText(fieldPath string, raw any) Outcome {
	s := strings.TrimSpace(text(raw))
	out := Outcome{Value: s}
	if len([]rune(s)) < 2 && strings.Contains(strings.ToLower(fieldPath), "name") {
		out.warn("Suspiciously short %s: '%s'", fieldPath, s)
	}
	return out
}

// text renders a raw JSON scalar the way it would appear in a document.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func money(f float64) string {
	return "$" + printer.Sprintf("%.2f", f)
}

func round(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}
