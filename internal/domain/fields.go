package domain

// Field names an amount column on a tax report. The string value is the
// column name in every Record Store backend and the JSON key in the API.
type Field string

// Income buckets.
const (
	FieldW2Wages              Field = "w2_wages"
	FieldSelfEmploymentIncome Field = "self_employment_income"
	FieldRentalIncome         Field = "rental_income"
	FieldDividendIncome       Field = "dividend_income"
	FieldInterestIncome       Field = "interest_income"
	FieldCapitalGains         Field = "capital_gains"
	FieldOtherIncome          Field = "other_income"
)

// Deduction buckets.
const (
	FieldBusinessExpenses         Field = "business_expenses"
	FieldVehicleExpenses          Field = "vehicle_expenses"
	FieldHomeOfficeDeduction      Field = "home_office_deduction"
	FieldHealthInsuranceDeduction Field = "health_insurance_deduction"
	FieldRetirementContributions  Field = "retirement_contributions"
	FieldCharitableContributions  Field = "charitable_contributions"
	FieldMedicalExpenses          Field = "medical_expenses"
	FieldStateLocalTaxes          Field = "state_local_taxes"
	FieldOtherDeductions          Field = "other_deductions"
)

// Derived fields.
const (
	FieldGrossIncome         Field = "gross_income"
	FieldAdjustedGrossIncome Field = "adjusted_gross_income"
	FieldTaxableIncome       Field = "taxable_income"
	FieldFederalTax          Field = "federal_tax"
	FieldSelfEmploymentTax   Field = "self_employment_tax"
	FieldTotalTaxLiability   Field = "total_tax_liability"
)

// IncomeFields lists the income buckets in display order.
var IncomeFields = []Field{
	FieldW2Wages,
	FieldSelfEmploymentIncome,
	FieldRentalIncome,
	FieldDividendIncome,
	FieldInterestIncome,
	FieldCapitalGains,
	FieldOtherIncome,
}

// DeductionFields lists the deduction buckets in display order.
var DeductionFields = []Field{
	FieldBusinessExpenses,
	FieldVehicleExpenses,
	FieldHomeOfficeDeduction,
	FieldHealthInsuranceDeduction,
	FieldRetirementContributions,
	FieldCharitableContributions,
	FieldMedicalExpenses,
	FieldStateLocalTaxes,
	FieldOtherDeductions,
}

// DerivedFields lists the calculator-owned fields in display order.
var DerivedFields = []Field{
	FieldGrossIncome,
	FieldAdjustedGrossIncome,
	FieldTaxableIncome,
	FieldFederalTax,
	FieldSelfEmploymentTax,
	FieldTotalTaxLiability,
}

// BucketFields returns income then deduction buckets.
func BucketFields() []Field {
	out := make([]Field, 0, len(IncomeFields)+len(DeductionFields))
	out = append(out, IncomeFields...)
	return append(out, DeductionFields...)
}

// AmountFields returns every amount column: buckets then derived fields.
func AmountFields() []Field {
	return append(BucketFields(), DerivedFields...)
}

// IsBucket reports whether f is a user-editable bucket.
func (f Field) IsBucket() bool {
	return containsField(IncomeFields, f) || containsField(DeductionFields, f)
}

// IsDerived reports whether f is written only by a calculator.
func (f Field) IsDerived() bool {
	return containsField(DerivedFields, f)
}

// Label returns the caption used for f in exported reports.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

var fieldLabels = map[Field]string{
	FieldW2Wages:                  "W-2 Wages",
	FieldSelfEmploymentIncome:     "Self-Employment Income",
	FieldRentalIncome:             "Rental Income",
	FieldDividendIncome:           "Dividend Income",
	FieldInterestIncome:           "Interest Income",
	FieldCapitalGains:             "Capital Gains",
	FieldOtherIncome:              "Other Income",
	FieldBusinessExpenses:         "Business Expenses",
	FieldVehicleExpenses:          "Vehicle Expenses",
	FieldHomeOfficeDeduction:      "Home Office Deduction",
	FieldHealthInsuranceDeduction: "Health Insurance Deduction",
	FieldRetirementContributions:  "Retirement Contributions",
	FieldCharitableContributions:  "Charitable Contributions",
	FieldMedicalExpenses:          "Medical Expenses",
	FieldStateLocalTaxes:          "State and Local Taxes",
	FieldOtherDeductions:          "Other Deductions",
	FieldGrossIncome:              "Gross Income",
	FieldAdjustedGrossIncome:      "Adjusted Gross Income",
	FieldTaxableIncome:            "Taxable Income",
	FieldFederalTax:               "Federal Income Tax",
	FieldSelfEmploymentTax:        "Self-Employment Tax",
	FieldTotalTaxLiability:        "TOTAL TAX LIABILITY",
}

func containsField(fields []Field, f Field) bool {
	for _, candidate := range fields {
		if candidate == f {
			return true
		}
	}
	return false
}
