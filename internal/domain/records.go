package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// IncomeRecord is one logged payment received by the user.
type IncomeRecord struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	SourceType   string          `json:"source_type"`
	DateReceived civil.Date      `json:"date_received"`
	ClientName   string          `json:"client_name,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Validate checks the fields a user supplies.
func (r *IncomeRecord) Validate() error {
	if err := ValidateAmount("amount", r.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(r.SourceType) == "" {
		return &ValidationError{Field: "source_type", Message: "is required"}
	}
	if !r.DateReceived.IsValid() {
		return &ValidationError{Field: "date_received", Message: "must be a valid date"}
	}
	return nil
}

// Expense is one logged payment made by the user.
type Expense struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory,omitempty"`
	DateIncurred    civil.Date      `json:"date_incurred"`
	IsTaxDeductible bool            `json:"is_tax_deductible"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate checks the fields a user supplies.
func (e *Expense) Validate() error {
	if err := ValidateAmount("amount", e.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}
	if !e.DateIncurred.IsValid() {
		return &ValidationError{Field: "date_incurred", Message: "must be a valid date"}
	}
	return nil
}

// DateRange bounds a record listing. A zero From or To leaves that side open.
type DateRange struct {
	From civil.Date
	To   civil.Date
}

// Contains reports whether d falls inside the range, bounds inclusive.
func (r DateRange) Contains(d civil.Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}
	return nil
}

// TaxYearWindow returns the inclusive [Jan 1, Dec 31] range of year.
func TaxYearWindow(year int) DateRange {
	return DateRange{
		From: civil.Date{Year: year, Month: time.January, Day: 1},
		To:   civil.Date{Year: year, Month: time.December, Day: 31},
	}
}

// ParseDate parses a YYYY-MM-DD date. Empty input is rejected.
func ParseDate(field, raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, &ValidationError{Field: field, Message: "is required"}
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, &ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

// ParseDateRange builds a range from optional YYYY-MM-DD bounds.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if strings.TrimSpace(from) != "" {
		if r.From, err = ParseDate("start_date", from); err != nil {
			return DateRange{}, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if r.To, err = ParseDate("end_date", to); err != nil {
			return DateRange{}, err
		}
	}
	return r, r.Validate()
}
