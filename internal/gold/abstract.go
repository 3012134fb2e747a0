package gold

import (
	"strings"

	"github.com/sells-group/lease-abstract/internal/dates"
)

// Abstract template formats.
const (
	FormatA = "A"
	FormatB = "B"
)

// DetectFormat tells the full property template (A) from the compact
// template (B) by the section banner in row 4.
func DetectFormat(g *Grid) string {
	banner := g.Text(4, 2)
	if banner == "" {
		banner = g.Text(4, 3)
	}
	if strings.Contains(banner, "PROPERTY") {
		return FormatA
	}
	return FormatB
}

// ParseAbstract reads ground truth from a worksheet in either format.
func ParseAbstract(g *Grid) map[string]any {
	if DetectFormat(g) == FormatA {
		return ParseFormatA(g)
	}
	return ParseFormatB(g)
}

// single-value labels of format A, read from the right of the label
var formatALabels = []struct {
	key   string
	label string
}{
	{"property_name", "Property Name:"},
	{"property_number", "Property #:"},
	{"building_sf", "Building SF:"},
	{"percentage_leased", "Percentage Leased:"},
	{"tenant_legal_name", "Legal/Tenant Name:"},
	{"tenant_sq_feet", "SQ. Feet:"},
	{"tenant_dba", "Tenant DBA:"},
	{"guarantor", "Guarantor:"},
	{"occupancy_date", "Occupancy Date:"},
	{"term_months", "Term:"},
	{"rent_commencement", "Rent Commencement:"},
	{"lease_commencement", "Lease Commencement:"},
	{"execution_date", "Execution Date:"},
	{"lease_expiration", "Lease Expiration:"},
	{"move_in_date", "Move In Date:"},
	{"prepaid_rent", "Prepaid Rent:"},
	{"lease_type", "Type:"},
	{"security_deposit", "Security Deposit:"},
	{"holdover", "Holdover:"},
	{"exclusives", "Exclusives:"},
	{"free_rent", "Free Rent:"},
	{"late_charge", "Late Charge:"},
	{"due_date", "Due Date:"},
	{"pro_rata_share", "Pro Rata Share:"},
	{"parking_total_stalls", "Total # of Stalls:"},
	{"parking_reserved_stalls", "# of Reserved Stalls:"},
	{"parking_reserved_rate", "Reserved Rate:"},
	{"parking_unreserved_stalls", "# of Unreserved Stalls:"},
	{"parking_unreserved_rate", "Unreserved Rate:"},
}

// ParseFormatA reads the full property abstract template by searching for
// its labels rather than fixed rows.
func ParseFormatA(g *Grid) map[string]any {
	data := make(map[string]any)
	for _, l := range formatALabels {
		data[l.key] = g.RightOf(l.label)
	}

	if row, _, ok := g.Find("Billing Address:", defaultMaxRow); ok {
		data["billing_address"] = g.Join(row, 4, 3)
	}
	if row, _, ok := g.Find("Premise Address:", defaultMaxRow); ok {
		data["premise_address"] = g.Join(row, 11, 3)
	}

	data["phone"] = textOrNil(g.Offset("Phone:", 0, 2))
	email := g.Offset("Email:", 0, 2)
	if _, _, ok := g.Find("Email:", defaultMaxRow); !ok {
		email = g.Offset("E-mail:", 0, 2)
	}
	data["email"] = textOrNil(email)

	data["permitted_use"] = nil
	if row, _, ok := g.Find("Description/Use:", defaultMaxRow); ok {
		data["permitted_use"] = g.Join(row, 4, 3)
	}

	baseRow, _, hasBase := g.Find("Base Rent:", defaultMaxRow)
	schedule := rentScheduleA(g, baseRow, hasBase)
	data["rent_schedule"] = schedule
	firstFullPeriod(data, schedule)

	data["rent_comments"] = nil
	if row, _, ok := g.Find("Comments:", 50); ok && hasBase && row > baseRow {
		data["rent_comments"] = g.Join(row, 4, 3)
	}

	pct := map[string]any{}
	if row, _, ok := g.Find("Percent Rent:", defaultMaxRow); ok {
		pct["percent"] = g.At(row, 4)
		pct["breakpoint"] = g.RightOf("Breakpoint:")
	}
	data["percentage_rent"] = pct

	data["renewal_options"], data["renewal_notice"] = nil, nil
	if row, _, ok := g.Find("Renewal:", defaultMaxRow); ok {
		data["renewal_options"] = textOrNil(g.At(row, 4))
		data["renewal_notice"] = textOrNil(g.At(row, 11))
	}
	data["expansion"] = textOnLabelRow(g, "Expansion:", 4)
	data["termination"] = textOnLabelRow(g, "Termination:", 4)

	data["cam"], data["cam_comments"] = nil, nil
	if row, _, ok := g.Find("Common Area Maint", defaultMaxRow); ok {
		data["cam"] = g.At(row, 8)
		data["cam_comments"] = textOrNil(g.At(row, 11))
	}
	data["cam_additional_notes"] = textOnLabelRow(g, "Additional Notes:", 4)

	data["ti_per_sf"], data["ti_total"], data["ti_comments"] = nil, nil, nil
	tiRow, _, ok := g.Find("TI / SQ FT", defaultMaxRow)
	if !ok {
		tiRow, _, ok = g.Find("TI /SQ FT", defaultMaxRow)
	}
	if ok {
		data["ti_per_sf"] = g.At(tiRow, 4)
		data["ti_total"] = g.RightOf("TI - Total:")
		if row, _, found := g.Find("Comments:", tiRow+10); found && row > tiRow {
			data["ti_comments"] = g.Join(row, 4, 3)
		}
	}

	data["insurance_type"], data["insurance_amount"] = nil, nil
	if row, _, ok := g.Find("Insurance Coverage:", defaultMaxRow); ok {
		data["insurance_type"] = textOrNil(g.At(row, 5))
		data["insurance_amount"] = g.RightOf("Covg. Amount:")
	}

	return data
}

func rentScheduleA(g *Grid, baseRow int, ok bool) []map[string]any {
	schedule := []map[string]any{}
	if !ok {
		return schedule
	}
	for r := baseRow + 1; r < baseRow+15; r++ {
		start, end := g.At(r, 4), g.At(r, 6)
		if !truthy(start) || !truthy(end) {
			continue
		}
		// header rows carry text like "Start Date"
		if s, isText := start.(string); isText && !dates.IsISO(s) {
			continue
		}
		schedule = append(schedule, map[string]any{
			"label":      textOrNil(g.At(r, 2)),
			"start_date": start,
			"end_date":   end,
			"annual":     g.At(r, 8),
			"monthly":    g.At(r, 11),
			"psf":        g.At(r, 13),
		})
	}
	return schedule
}

// firstFullPeriod copies the first numeric, non-zero, non-prorated rent
// period into the comparable rent fields.
func firstFullPeriod(data map[string]any, schedule []map[string]any) {
	for _, p := range schedule {
		monthly, ok := p["monthly"].(float64)
		if !ok || monthly == 0 {
			continue
		}
		if _, isText := p["annual"].(string); isText {
			continue
		}
		if label, _ := p["label"].(string); strings.Contains(strings.ToLower(label), "prorat") {
			continue
		}
		data["base_rent_monthly"] = monthly
		data["base_rent_annual"] = p["annual"]
		data["rent_per_sf_annual"] = p["psf"]
		return
	}
}

// exact labels of format B mapped to ground-truth keys
var formatBLabels = map[string]string{
	"TENANT DBA":                "tenant_dba",
	"TENANT":                    "tenant_legal_name",
	"SQUARE FOOTAGE":            "tenant_sq_feet",
	"SPECIFIC USE":              "permitted_use",
	"RENT COMMENCEMENT DATE":    "rent_commencement",
	"LEASE EXPIRATION DATE":     "lease_expiration",
	"TERM":                      "term_months",
	"SECURITY DEPOSIT":          "security_deposit",
	"GUARANTOR":                 "guarantor",
	"EXCLUSIVES / RESTRICTIONS": "exclusives",
	"RENEWAL OPTION(S)":         "renewal_options",
}

// ParseFormatB reads the compact abstract template, where each value sits
// two columns right of its label.
func ParseFormatB(g *Grid) map[string]any {
	data := make(map[string]any)
	for row := 1; row <= g.MaxRow(); row++ {
		for col := 1; col <= g.MaxCol(); col++ {
			label := strings.TrimRight(g.Text(row, col), ":")
			if label == "" {
				continue
			}
			var val any
			if col+2 <= g.MaxCol() {
				val = g.At(row, col+2)
			}
			if key, ok := formatBLabels[label]; ok {
				data[key] = val
			} else if label == "PERCENTAGE RENT" {
				data["percentage_rent"] = map[string]any{"percent": val}
			}
		}
	}

	schedule := []map[string]any{}
	for r := 14; r < 30; r++ {
		period := textOrNil(g.At(r, 5))
		monthly := g.At(r, 6)
		if period == nil || !truthy(monthly) {
			continue
		}
		schedule = append(schedule, map[string]any{
			"period":  period,
			"monthly": monthly,
			"annual":  g.At(r, 7),
			"psf":     g.At(r, 8),
		})
	}
	data["rent_schedule"] = schedule
	if len(schedule) > 0 {
		data["base_rent_monthly"] = schedule[0]["monthly"]
		data["base_rent_annual"] = schedule[0]["annual"]
		data["rent_per_sf_annual"] = schedule[0]["psf"]
	}
	return data
}

func textOnLabelRow(g *Grid, label string, col int) any {
	row, _, ok := g.Find(label, defaultMaxRow)
	if !ok {
		return nil
	}
	return textOrNil(g.At(row, col))
}

func textOrNil(v any) any {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(valueText(v))
	if s == "" {
		return nil
	}
	return s
}
