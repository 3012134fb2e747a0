package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/lease-abstract/internal/dates"
)

// Field paths with cross-field rules.
const (
	PathCommencement = "dates.commencement_date"
	PathExpiration   = "dates.expiration_date"
	PathTermMonths   = "dates.lease_term_months"
	PathRentMonthly  = "rent.base_rent_monthly"
	PathRentAnnual   = "rent.base_rent_annual"
	PathRentPerSF    = "rent.rent_per_sf_annual"
	PathRentableArea = "property.rentable_area"
	PathUsableArea   = "property.usable_area"
)

// ConsistencyPenalty is applied once when any cross-field rule fails.
const ConsistencyPenalty = -0.1

const (
	rentTolerance = 0.05
	termTolerance = 1.0
	daysPerMonth  = 30.44
)

// CheckConsistency compares a canonical value against its siblings. A rule
// is skipped when a sibling it needs is absent or cannot be parsed.
func CheckConsistency(fieldPath string, value any, siblings map[string]any) []string {
	var warnings []string

	switch fieldPath {
	case PathExpiration:
		exp, ok := asDate(value)
		if !ok {
			break
		}
		comm, ok := asDate(siblings[PathCommencement])
		if ok && !exp.After(comm) {
			warnings = append(warnings, "Expiration date should be after commencement date")
		}

	case PathRentAnnual:
		annual, ok := asAmount(value)
		if !ok || annual == 0 {
			break
		}
		monthly, ok := asAmount(siblings[PathRentMonthly])
		if !ok || monthly == 0 {
			break
		}
		expected := monthly * 12
		if math.Abs(annual-expected)/math.Abs(expected) > rentTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"Annual rent %s doesn't match monthly %s × 12 = %s",
				money(annual), money(monthly), money(expected),
			))
		}

	case PathRentPerSF:
		psf, ok := asAmount(value)
		if !ok || psf == 0 {
			break
		}
		annual, ok1 := asAmount(siblings[PathRentAnnual])
		sf, ok2 := asAmount(siblings[PathRentableArea])
		if !ok1 || !ok2 || annual == 0 || sf == 0 {
			break
		}
		expected := annual / sf
		if expected > 0 && math.Abs(psf-expected)/expected > rentTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"Rent/SF $%.2f doesn't match annual rent / SF: $%.2f", psf, expected,
			))
		}

	case PathUsableArea:
		usable, ok := asAmount(value)
		if !ok || usable == 0 {
			break
		}
		rentable, ok := asAmount(siblings[PathRentableArea])
		if ok && rentable != 0 && usable > rentable {
			warnings = append(warnings, fmt.Sprintf(
				"Usable area (%s) greater than rentable area (%s)",
				formatFloat(usable), formatFloat(rentable),
			))
		}

	case PathTermMonths:
		stated, ok := asAmount(value)
		if !ok || stated == 0 {
			break
		}
		comm, ok1 := asDate(siblings[PathCommencement])
		exp, ok2 := asDate(siblings[PathExpiration])
		if !ok1 || !ok2 {
			break
		}
		calculated := float64(dates.DaysBetween(comm, exp)) / daysPerMonth
		if math.Abs(calculated-stated) > termTolerance {
			warnings = append(warnings, fmt.Sprintf(
				"Stated term (%s months) differs from calculated term (%.1f months) based on dates",
				formatFloat(stated), calculated,
			))
		}
	}

	return warnings
}

func asDate(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return dates.Parse(text(v))
}

// asAmount reads a currency or area sibling in raw or canonical form.
func asAmount(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if f, ok := v.(float64); ok {
		return f, true
	}
	s := currencySymbols.ReplaceAllString(text(v), "")
	s = strings.TrimSpace(areaUnits.ReplaceAllString(s, ""))
	return parseFloat(s)
}
