package registry

import "github.com/sells-group/lease-abstract/internal/model"

// Lease field categories.
const (
	CategoryBasicInfo         = "basic_info"
	CategoryParties           = "parties"
	CategoryProperty          = "property"
	CategoryDatesTerm         = "dates_term"
	CategoryRent              = "rent"
	CategoryOperatingExpenses = "operating_expenses"
	CategoryFinancial         = "financial"
	CategoryRightsOptions     = "rights_options"
	CategoryUseRestrictions   = "use_restrictions"
	CategoryMaintenance       = "maintenance"
	CategoryInsurance         = "insurance"
	CategoryOther             = "other"
)

// leaseFields is the built-in commercial lease schema.
var leaseFields = []model.FieldDef{
	{Path: "basic_info.lease_type", Label: "Lease Type", Category: CategoryBasicInfo, Type: model.TypeText,
		Description: "Type of lease (e.g., Office, Retail, Industrial, Ground)", Required: true},
	{Path: "basic_info.execution_date", Label: "Execution Date", Category: CategoryBasicInfo, Type: model.TypeDate,
		Description: "Date the lease was executed/signed", Required: true},

	{Path: "parties.landlord_name", Label: "Landlord Name", Category: CategoryParties, Type: model.TypeText,
		Description: "Full legal name of the landlord/lessor", Required: true},
	{Path: "parties.landlord_address", Label: "Landlord Address", Category: CategoryParties, Type: model.TypeAddress,
		Description: "Mailing address of the landlord"},
	{Path: "parties.tenant_name", Label: "Tenant Name", Category: CategoryParties, Type: model.TypeText,
		Description: "Full legal name of the tenant/lessee", Required: true},
	{Path: "parties.tenant_address", Label: "Tenant Address", Category: CategoryParties, Type: model.TypeAddress,
		Description: "Mailing address of the tenant"},

	{Path: "property.address", Label: "Property Address", Category: CategoryProperty, Type: model.TypeAddress,
		Description: "Full street address of the leased property", Required: true},
	{Path: "property.suite_unit", Label: "Suite/Unit Number", Category: CategoryProperty, Type: model.TypeText,
		Description: "Specific suite or unit number if applicable"},
	{Path: "property.rentable_area", Label: "Rentable Square Feet", Category: CategoryProperty, Type: model.TypeArea,
		Description: "Rentable square footage of the premises", Required: true},
	{Path: "property.usable_area", Label: "Usable Square Feet", Category: CategoryProperty, Type: model.TypeArea,
		Description: "Usable square footage of the premises"},

	{Path: "dates.commencement_date", Label: "Commencement Date", Category: CategoryDatesTerm, Type: model.TypeDate,
		Description: "Date when the lease term begins", Required: true},
	{Path: "dates.expiration_date", Label: "Expiration Date", Category: CategoryDatesTerm, Type: model.TypeDate,
		Description: "Date when the lease term ends", Required: true},
	{Path: "dates.rent_commencement_date", Label: "Rent Commencement Date", Category: CategoryDatesTerm, Type: model.TypeDate,
		Description: "Date when rent payments begin (may differ from lease commencement)"},
	{Path: "dates.lease_term_months", Label: "Lease Term (Months)", Category: CategoryDatesTerm, Type: model.TypeNumber,
		Description: "Total length of the lease term in months", Required: true},

	{Path: "rent.base_rent_monthly", Label: "Base Rent (Monthly)", Category: CategoryRent, Type: model.TypeCurrency,
		Description: "Monthly base rent amount", Required: true},
	{Path: "rent.base_rent_annual", Label: "Base Rent (Annual)", Category: CategoryRent, Type: model.TypeCurrency,
		Description: "Annual base rent amount"},
	{Path: "rent.rent_per_sf_annual", Label: "Rent per SF (Annual)", Category: CategoryRent, Type: model.TypeCurrency,
		Description: "Annual rent per square foot"},
	{Path: "rent.rent_escalations", Label: "Rent Escalations", Category: CategoryRent, Type: model.TypeText,
		Description: "Description of rent increase schedule or formula"},
	{Path: "rent.free_rent_months", Label: "Free Rent Period (Months)", Category: CategoryRent, Type: model.TypeNumber,
		Description: "Number of months of free rent, if any"},

	{Path: "operating_expenses.structure_type", Label: "Operating Expense Structure", Category: CategoryOperatingExpenses, Type: model.TypeText,
		Description: "Type of operating expense structure (e.g., NNN, Gross, Modified Gross)"},
	{Path: "operating_expenses.base_year", Label: "Base Year for Operating Expenses", Category: CategoryOperatingExpenses, Type: model.TypeText,
		Description: "Base year for calculating operating expense increases"},
	{Path: "operating_expenses.tenant_share_percentage", Label: "Tenant's Share Percentage", Category: CategoryOperatingExpenses, Type: model.TypePercentage,
		Description: "Tenant's proportionate share of operating expenses"},

	{Path: "financial.security_deposit", Label: "Security Deposit", Category: CategoryFinancial, Type: model.TypeCurrency,
		Description: "Amount of security deposit required"},
	{Path: "financial.tenant_improvement_allowance", Label: "Tenant Improvement Allowance", Category: CategoryFinancial, Type: model.TypeCurrency,
		Description: "Amount landlord will contribute for tenant improvements"},

	{Path: "rights.renewal_options", Label: "Renewal Options", Category: CategoryRightsOptions, Type: model.TypeText,
		Description: "Description of renewal option terms"},
	{Path: "rights.termination_rights", Label: "Termination Rights", Category: CategoryRightsOptions, Type: model.TypeText,
		Description: "Any early termination rights or conditions"},
	{Path: "rights.expansion_rights", Label: "Expansion Rights", Category: CategoryRightsOptions, Type: model.TypeText,
		Description: "Rights to expand into additional space"},

	{Path: "use.permitted_use", Label: "Permitted Use", Category: CategoryUseRestrictions, Type: model.TypeText,
		Description: "Permitted uses of the premises"},
	{Path: "use.exclusive_use", Label: "Exclusive Use Rights", Category: CategoryUseRestrictions, Type: model.TypeText,
		Description: "Any exclusive use rights granted to tenant"},

	{Path: "maintenance.landlord_responsibilities", Label: "Landlord Maintenance Responsibilities", Category: CategoryMaintenance, Type: model.TypeText,
		Description: "What the landlord is responsible for maintaining"},
	{Path: "maintenance.tenant_responsibilities", Label: "Tenant Maintenance Responsibilities", Category: CategoryMaintenance, Type: model.TypeText,
		Description: "What the tenant is responsible for maintaining"},

	{Path: "insurance.tenant_insurance_requirements", Label: "Tenant Insurance Requirements", Category: CategoryInsurance, Type: model.TypeText,
		Description: "Insurance coverage tenant must maintain"},

	{Path: "other.parking_spaces", Label: "Parking Spaces", Category: CategoryOther, Type: model.TypeNumber,
		Description: "Number of parking spaces allocated to tenant"},
	{Path: "other.parking_cost", Label: "Parking Cost", Category: CategoryOther, Type: model.TypeCurrency,
		Description: "Cost per parking space, if applicable"},
}

// LeaseFields returns a registry of the built-in lease schema.
func LeaseFields() *model.FieldRegistry {
	fields := make([]model.FieldDef, len(leaseFields))
	copy(fields, leaseFields)
	return model.NewFieldRegistry(fields)
}
