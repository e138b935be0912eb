package tax

import (
	"testing"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeIncome(t *testing.T) {
	tests := []struct {
		sourceType string
		want       domain.Field
	}{
		{"Salary", domain.FieldW2Wages},
		{"W-2 employer payroll", domain.FieldW2Wages},
		{"Consulting", domain.FieldSelfEmploymentIncome},
		{"IT CONSULTING retainer", domain.FieldSelfEmploymentIncome},
		{"freelance design", domain.FieldSelfEmploymentIncome},
		{"1099-NEC", domain.FieldSelfEmploymentIncome},
		{"Schedule C", domain.FieldSelfEmploymentIncome},
		{"Rental Income", domain.FieldRentalIncome},
		{"schedule e property", domain.FieldRentalIncome},
		{"Dividends", domain.FieldDividendIncome},
		{"Savings interest", domain.FieldInterestIncome},
		{"Lottery", domain.FieldOtherIncome},
		{"", domain.FieldOtherIncome},
		{"   ", domain.FieldOtherIncome},
	}

	for _, tt := range tests {
		t.Run(tt.sourceType, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeIncome(tt.sourceType))
		})
	}
}

func TestCategorizeDeduction(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		subcategory string
		want        domain.Field
	}{
		{"travel with mileage", "Transportation", "Mileage", domain.FieldVehicleExpenses},
		{"travel with gas", "travel", "Gas station", domain.FieldVehicleExpenses},
		{"travel without subcategory", "Travel", "", domain.FieldBusinessExpenses},
		{"travel flights", "Travel", "Flights", domain.FieldBusinessExpenses},
		{"utilities home office", "Utilities", "Home Office", domain.FieldHomeOfficeDeduction},
		{"utilities phone", "Utilities", "Phone", domain.FieldBusinessExpenses},
		{"health insurance", "Insurance", "Health", domain.FieldHealthInsuranceDeduction},
		{"liability insurance", "Insurance", "Liability", domain.FieldBusinessExpenses},
		{"office supplies", "Office Supplies", "", domain.FieldBusinessExpenses},
		{"software", "SOFTWARE", "Subscriptions", domain.FieldBusinessExpenses},
		{"business meals", "Business Meals", "", domain.FieldBusinessExpenses},
		{"donations", "Donations", "", domain.FieldCharitableContributions},
		{"charitable", "Charitable", "Church", domain.FieldCharitableContributions},
		{"healthcare", "Healthcare", "", domain.FieldMedicalExpenses},
		{"medical", "medical", "dentist", domain.FieldMedicalExpenses},
		{"unknown", "Groceries", "", domain.FieldOtherDeductions},
		{"empty", "", "Health", domain.FieldOtherDeductions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeDeduction(tt.category, tt.subcategory))
		})
	}
}

func TestCategorizeExpense_NonDeductible(t *testing.T) {
	_, ok := CategorizeExpense(&domain.Expense{Category: "Software", IsTaxDeductible: false})
	assert.False(t, ok)

	_, ok = CategorizeExpense(nil)
	assert.False(t, ok)

	bucket, ok := CategorizeExpense(&domain.Expense{Category: "Software", IsTaxDeductible: true})
	assert.True(t, ok)
	assert.Equal(t, domain.FieldBusinessExpenses, bucket)
}
