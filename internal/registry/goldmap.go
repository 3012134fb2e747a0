package registry

// GoldFieldMap maps gold-standard abstract field names to lease field paths.
var GoldFieldMap = map[string]string{
	"tenant_legal_name":  "parties.tenant_name",
	"premise_address":    "property.address",
	"tenant_sq_feet":     "property.rentable_area",
	"lease_commencement": "dates.commencement_date",
	"lease_expiration":   "dates.expiration_date",
	"rent_commencement":  "dates.rent_commencement_date",
	"term_months":        "dates.lease_term_months",
	"execution_date":     "basic_info.execution_date",
	"base_rent_monthly":  "rent.base_rent_monthly",
	"base_rent_annual":   "rent.base_rent_annual",
	"rent_per_sf_annual": "rent.rent_per_sf_annual",
	"security_deposit":   "financial.security_deposit",
	"ti_total":           "financial.tenant_improvement_allowance",
	"lease_type":         "operating_expenses.structure_type",
	"pro_rata_share":     "operating_expenses.tenant_share_percentage",
	"permitted_use":      "use.permitted_use",
	"exclusives":         "use.exclusive_use",
	"renewal_options":    "rights.renewal_options",
	"termination":        "rights.termination_rights",
	"expansion":          "rights.expansion_rights",
}
