package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FilingStatus is the IRS filing status a report is estimated under.
type FilingStatus string

const (
	FilingSingle            FilingStatus = "single"
	FilingMarriedJointly    FilingStatus = "married_filing_jointly"
	FilingMarriedSeparately FilingStatus = "married_filing_separately"
	FilingHeadOfHousehold   FilingStatus = "head_of_household"

	// DefaultFilingStatus is assigned to newly created reports.
	DefaultFilingStatus = FilingSingle
)

const (
	minTaxYear          = 2000
	maxTaxYear          = 2100
	maxReportNameLength = 200
)

// FilingStatuses lists every supported filing status.
var FilingStatuses = []FilingStatus{
	FilingSingle,
	FilingMarriedJointly,
	FilingMarriedSeparately,
	FilingHeadOfHousehold,
}

// Valid reports whether s is one of the supported filing statuses.
func (s FilingStatus) Valid() bool {
	for _, fs := range FilingStatuses {
		if s == fs {
			return true
		}
	}
	return false
}

// Label returns the human readable form used in exported reports.
func (s FilingStatus) Label() string {
	switch s {
	case FilingSingle:
		return "Single"
	case FilingMarriedJointly:
		return "Married Filing Jointly"
	case FilingMarriedSeparately:
		return "Married Filing Separately"
	case FilingHeadOfHousehold:
		return "Head of Household"
	default:
		return string(s)
	}
}

// ReportStatus tracks whether derived fields are fresh.
type ReportStatus string

const (
	// StatusDraft means buckets may have changed since the last calculation.
	StatusDraft ReportStatus = "draft"
	// StatusCalculated means derived fields reflect the current buckets.
	StatusCalculated ReportStatus = "calculated"
)

// TaxReport is a per-user, per-year tax estimate. Bucket and derived field
// names match the Record Store column names.
type TaxReport struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"user_id"`
	Name                 string       `json:"name"`
	TaxYear              int          `json:"tax_year"`
	FilingStatus         FilingStatus `json:"filing_status"`
	UseStandardDeduction bool         `json:"use_standard_deduction"`
	Status               ReportStatus `json:"status"`

	// Income buckets
	W2Wages              decimal.Decimal `json:"w2_wages"`
	SelfEmploymentIncome decimal.Decimal `json:"self_employment_income"`
	RentalIncome         decimal.Decimal `json:"rental_income"`
	DividendIncome       decimal.Decimal `json:"dividend_income"`
	InterestIncome       decimal.Decimal `json:"interest_income"`
	CapitalGains         decimal.Decimal `json:"capital_gains"`
	OtherIncome          decimal.Decimal `json:"other_income"`

	// Deduction buckets
	BusinessExpenses         decimal.Decimal `json:"business_expenses"`
	VehicleExpenses          decimal.Decimal `json:"vehicle_expenses"`
	HomeOfficeDeduction      decimal.Decimal `json:"home_office_deduction"`
	HealthInsuranceDeduction decimal.Decimal `json:"health_insurance_deduction"`
	RetirementContributions  decimal.Decimal `json:"retirement_contributions"`
	CharitableContributions  decimal.Decimal `json:"charitable_contributions"`
	MedicalExpenses          decimal.Decimal `json:"medical_expenses"`
	StateLocalTaxes          decimal.Decimal `json:"state_local_taxes"`
	OtherDeductions          decimal.Decimal `json:"other_deductions"`

	// Derived fields, written only by a TaxCalculator
	GrossIncome         decimal.Decimal `json:"gross_income"`
	AdjustedGrossIncome decimal.Decimal `json:"adjusted_gross_income"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	FederalTax          decimal.Decimal `json:"federal_tax"`
	SelfEmploymentTax   decimal.Decimal `json:"self_employment_tax"`
	TotalTaxLiability   decimal.Decimal `json:"total_tax_liability"`

	CalculatedAt *time.Time `json:"calculated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Derived holds the fields a TaxCalculator produces.
type Derived struct {
	GrossIncome         decimal.Decimal `json:"gross_income"`
	AdjustedGrossIncome decimal.Decimal `json:"adjusted_gross_income"`
	TaxableIncome       decimal.Decimal `json:"taxable_income"`
	FederalTax          decimal.Decimal `json:"federal_tax"`
	SelfEmploymentTax   decimal.Decimal `json:"self_employment_tax"`
	TotalTaxLiability   decimal.Decimal `json:"total_tax_liability"`
}

// DefaultReportName is the name given to a freshly created report.
func DefaultReportName(year int) string {
	return fmt.Sprintf("%d Tax Report", year)
}

// NewTaxReport returns an empty draft report for the given user and year.
// Decimal zero values already read as 0, so buckets need no initialisation.
func NewTaxReport(id, userID string, year int, now time.Time) *TaxReport {
	return &TaxReport{
		ID:                   id,
		UserID:               userID,
		Name:                 DefaultReportName(year),
		TaxYear:              year,
		FilingStatus:         DefaultFilingStatus,
		UseStandardDeduction: true,
		Status:               StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// AmountPtr returns a pointer to the decimal backing field f, or nil when f
// is not an amount field.
func (r *TaxReport) AmountPtr(f Field) *decimal.Decimal {
	switch f {
	case FieldW2Wages:
		return &r.W2Wages
	case FieldSelfEmploymentIncome:
		return &r.SelfEmploymentIncome
	case FieldRentalIncome:
		return &r.RentalIncome
	case FieldDividendIncome:
		return &r.DividendIncome
	case FieldInterestIncome:
		return &r.InterestIncome
	case FieldCapitalGains:
		return &r.CapitalGains
	case FieldOtherIncome:
		return &r.OtherIncome
	case FieldBusinessExpenses:
		return &r.BusinessExpenses
	case FieldVehicleExpenses:
		return &r.VehicleExpenses
	case FieldHomeOfficeDeduction:
		return &r.HomeOfficeDeduction
	case FieldHealthInsuranceDeduction:
		return &r.HealthInsuranceDeduction
	case FieldRetirementContributions:
		return &r.RetirementContributions
	case FieldCharitableContributions:
		return &r.CharitableContributions
	case FieldMedicalExpenses:
		return &r.MedicalExpenses
	case FieldStateLocalTaxes:
		return &r.StateLocalTaxes
	case FieldOtherDeductions:
		return &r.OtherDeductions
	case FieldGrossIncome:
		return &r.GrossIncome
	case FieldAdjustedGrossIncome:
		return &r.AdjustedGrossIncome
	case FieldTaxableIncome:
		return &r.TaxableIncome
	case FieldFederalTax:
		return &r.FederalTax
	case FieldSelfEmploymentTax:
		return &r.SelfEmploymentTax
	case FieldTotalTaxLiability:
		return &r.TotalTaxLiability
	}
	return nil
}

// Amount returns the value of amount field f, zero for unknown fields.
func (r *TaxReport) Amount(f Field) decimal.Decimal {
	if p := r.AmountPtr(f); p != nil {
		return *p
	}
	return decimal.Zero
}

// SetAmount sets amount field f. It reports false for unknown fields.
func (r *TaxReport) SetAmount(f Field, v decimal.Decimal) bool {
	p := r.AmountPtr(f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// Derived returns the current derived fields.
func (r *TaxReport) Derived() Derived {
	return Derived{
		GrossIncome:         r.GrossIncome,
		AdjustedGrossIncome: r.AdjustedGrossIncome,
		TaxableIncome:       r.TaxableIncome,
		FederalTax:          r.FederalTax,
		SelfEmploymentTax:   r.SelfEmploymentTax,
		TotalTaxLiability:   r.TotalTaxLiability,
	}
}

// ApplyDerived stores calculator output and marks the report calculated.
func (r *TaxReport) ApplyDerived(d Derived, at time.Time) {
	r.GrossIncome = d.GrossIncome
	r.AdjustedGrossIncome = d.AdjustedGrossIncome
	r.TaxableIncome = d.TaxableIncome
	r.FederalTax = d.FederalTax
	r.SelfEmploymentTax = d.SelfEmploymentTax
	r.TotalTaxLiability = d.TotalTaxLiability
	r.Status = StatusCalculated
	r.CalculatedAt = &at
	r.UpdatedAt = at
}

// InvalidateDerived zeroes derived fields and returns the report to draft.
func (r *TaxReport) InvalidateDerived() {
	for _, f := range DerivedFields {
		r.SetAmount(f, decimal.Zero)
	}
	r.Status = StatusDraft
	r.CalculatedAt = nil
}

// Clone returns a copy that shares no mutable state with r.
func (r *TaxReport) Clone() *TaxReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.CalculatedAt != nil {
		at := *r.CalculatedAt
		c.CalculatedAt = &at
	}
	return &c
}

// ValidateTaxYear rejects years outside the range the service estimates for.
func ValidateTaxYear(year int) error {
	if year < minTaxYear || year > maxTaxYear {
		return &ValidationError{Field: "tax_year", Message: fmt.Sprintf("must be between %d and %d", minTaxYear, maxTaxYear)}
	}
	return nil
}
