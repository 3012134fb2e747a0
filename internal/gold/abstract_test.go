package gold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatAGrid() *Grid {
	return cells{
		{4, 2}:   "PROPERTY INFORMATION",
		{5, 2}:   "Property Name:",
		{5, 4}:   "Westheimer Plaza",
		{8, 2}:   "Legal/Tenant Name:",
		{8, 4}:   "Acme Holdings LLC",
		{9, 2}:   "SQ. Feet:",
		{9, 4}:   2500.0,
		{10, 2}:  "Premise Address:",
		{10, 11}: "515 Westheimer Rd",
		{11, 11}: "Suite 200",
		{12, 11}: "Houston, TX 77006",
		{14, 2}:  "Term:",
		{14, 4}:  60.0,
		{15, 2}:  "Lease Commencement:",
		{15, 4}:  "2024-01-01",
		{16, 2}:  "Lease Expiration:",
		{16, 4}:  "2028-12-31",
		{17, 2}:  "Type:",
		{17, 4}:  "NNN",
		{18, 2}:  "Security Deposit:",
		{18, 5}:  5000.0,
		{20, 2}:  "Base Rent:",
		{20, 4}:  "Start Date",
		{20, 6}:  "End Date",
		{20, 8}:  "Annual",
		{20, 11}: "Monthly",
		{20, 13}: "SF/Yr",
		{21, 2}:  "Prorated",
		{21, 4}:  "2024-01-01",
		{21, 6}:  "2024-01-31",
		{21, 8}:  14400.0,
		{21, 11}: 1200.0,
		{21, 13}: 5.76,
		{22, 4}:  "2024-02-01",
		{22, 6}:  "2025-01-31",
		{22, 8}:  60000.0,
		{22, 11}: 5000.0,
		{22, 13}: 24.0,
		{23, 4}:  "Totals",
		{23, 6}:  "x",
		{25, 2}:  "Comments:",
		{25, 4}:  "Rent abates in month 13",
		{28, 2}:  "Renewal:",
		{28, 4}:  "Two 5-year options",
		{28, 11}: "180 days",
		{29, 2}:  "Pro Rata Share:",
		{29, 4}:  0.125,
		{30, 2}:  "Termination:",
		{30, 4}:  "None",
	}.grid()
}

func TestParseFormatA(t *testing.T) {
	t.Parallel()

	g := formatAGrid()
	require.Equal(t, FormatA, DetectFormat(g))

	data := ParseAbstract(g)
	assert.Equal(t, "Westheimer Plaza", data["property_name"])
	assert.Equal(t, "Acme Holdings LLC", data["tenant_legal_name"])
	assert.Equal(t, 2500.0, data["tenant_sq_feet"])
	assert.Equal(t, "515 Westheimer Rd Suite 200 Houston, TX 77006", data["premise_address"])
	assert.Equal(t, 60.0, data["term_months"])
	assert.Equal(t, "2024-01-01", data["lease_commencement"])
	assert.Equal(t, "2028-12-31", data["lease_expiration"])
	assert.Equal(t, "NNN", data["lease_type"])
	assert.Equal(t, 5000.0, data["security_deposit"])
	assert.Equal(t, 0.125, data["pro_rata_share"])
	assert.Equal(t, "Two 5-year options", data["renewal_options"])
	assert.Equal(t, "180 days", data["renewal_notice"])
	assert.Equal(t, "None", data["termination"])
	assert.Equal(t, "Rent abates in month 13", data["rent_comments"])
	assert.Nil(t, data["expansion"])
	assert.Nil(t, data["ti_total"])
	assert.Equal(t, map[string]any{}, data["percentage_rent"])

	schedule, ok := data["rent_schedule"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, schedule, 2)
	assert.Equal(t, "Prorated", schedule[0]["label"])

	// the prorated first period is skipped
	assert.Equal(t, 5000.0, data["base_rent_monthly"])
	assert.Equal(t, 60000.0, data["base_rent_annual"])
	assert.Equal(t, 24.0, data["rent_per_sf_annual"])
}

func formatBGrid() *Grid {
	return cells{
		{4, 2}:  "TENANT INFORMATION",
		{5, 2}:  "TENANT DBA:",
		{5, 4}:  "Acme Coffee",
		{6, 2}:  "TENANT:",
		{6, 4}:  "Acme Holdings LLC",
		{7, 2}:  "SQUARE FOOTAGE",
		{7, 4}:  1800.0,
		{8, 2}:  "TERM",
		{8, 4}:  "5 years",
		{9, 2}:  "PERCENTAGE RENT",
		{9, 4}:  "6%",
		{14, 5}: "Yr 1",
		{14, 6}: 4500.0,
		{14, 7}: 54000.0,
		{14, 8}: 30.0,
		{15, 5}: "Yr 2",
		{15, 6}: 4635.0,
		{15, 7}: 55620.0,
		{15, 8}: 30.9,
		{16, 5}: "Yr 3",
	}.grid()
}

func TestParseFormatB(t *testing.T) {
	t.Parallel()

	g := formatBGrid()
	require.Equal(t, FormatB, DetectFormat(g))

	data := ParseAbstract(g)
	assert.Equal(t, "Acme Coffee", data["tenant_dba"])
	assert.Equal(t, "Acme Holdings LLC", data["tenant_legal_name"])
	assert.Equal(t, 1800.0, data["tenant_sq_feet"])
	assert.Equal(t, "5 years", data["term_months"])
	assert.Equal(t, map[string]any{"percent": "6%"}, data["percentage_rent"])

	schedule, ok := data["rent_schedule"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, schedule, 2)
	assert.Equal(t, 4500.0, data["base_rent_monthly"])
	assert.Equal(t, 54000.0, data["base_rent_annual"])
	assert.Equal(t, 30.0, data["rent_per_sf_annual"])
}

func TestParseFormatB_NoSchedule(t *testing.T) {
	t.Parallel()

	data := ParseFormatB(cells{{1, 1}: "TENANT", {1, 3}: "Solo LLC"}.grid())
	assert.Equal(t, "Solo LLC", data["tenant_legal_name"])
	assert.Equal(t, []map[string]any{}, data["rent_schedule"])
	assert.NotContains(t, data, "base_rent_monthly")
}
