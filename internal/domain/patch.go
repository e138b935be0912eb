package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ReportPatch is a field-level update of a tax report. Nil fields and absent
// amounts are left untouched.
type ReportPatch struct {
	Name                 *string
	TaxYear              *int
	FilingStatus         *FilingStatus
	UseStandardDeduction *bool
	Amounts              map[Field]decimal.Decimal
}

// SetAmount adds a bucket amount to the patch.
func (p *ReportPatch) SetAmount(f Field, v decimal.Decimal) {
	if p.Amounts == nil {
		p.Amounts = make(map[Field]decimal.Decimal)
	}
	p.Amounts[f] = v
}

// IsEmpty reports whether the patch changes nothing.
func (p ReportPatch) IsEmpty() bool {
	return p.Name == nil && p.TaxYear == nil && p.FilingStatus == nil &&
		p.UseStandardDeduction == nil && len(p.Amounts) == 0
}

// Validate checks every present field.
func (p ReportPatch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return &ValidationError{Field: "name", Message: "must not be empty"}
		}
		if len(name) > maxReportNameLength {
			return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxReportNameLength)}
		}
	}
	if p.TaxYear != nil {
		if err := ValidateTaxYear(*p.TaxYear); err != nil {
			return err
		}
	}
	if p.FilingStatus != nil && !p.FilingStatus.Valid() {
		return &ValidationError{Field: "filing_status", Message: fmt.Sprintf("unknown filing status %q", *p.FilingStatus)}
	}
	for f, v := range p.Amounts {
		if f.IsDerived() {
			return &ValidationError{Field: string(f), Message: "derived fields are set by the tax calculation"}
		}
		if !f.IsBucket() {
			return &ValidationError{Field: string(f), Message: "unknown field"}
		}
		if err := ValidateAmount(string(f), v); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into r. It reports whether a field that feeds the
// tax calculation changed, in which case derived fields are stale.
func (p ReportPatch) Apply(r *TaxReport) (stale bool) {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.TaxYear != nil && *p.TaxYear != r.TaxYear {
		r.TaxYear = *p.TaxYear
		stale = true
	}
	if p.FilingStatus != nil && *p.FilingStatus != r.FilingStatus {
		r.FilingStatus = *p.FilingStatus
		stale = true
	}
	if p.UseStandardDeduction != nil && *p.UseStandardDeduction != r.UseStandardDeduction {
		r.UseStandardDeduction = *p.UseStandardDeduction
		stale = true
	}
	for f, v := range p.Amounts {
		if !r.Amount(f).Equal(v) {
			r.SetAmount(f, v)
			stale = true
		}
	}
	return stale
}

// UnmarshalJSON decodes a flat PATCH body such as
// {"w2_wages": "2000.00", "filing_status": "single"}. Unknown keys, derived
// fields and malformed amounts fail with a ValidationError.
func (p *ReportPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ValidationError{Message: "request body must be a JSON object"}
	}

	for key, value := range raw {
		switch key {
		case "name":
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return &ValidationError{Field: key, Message: "must be a string"}
			}
			p.Name = &name
		case "tax_year":
			var year int
			if err := json.Unmarshal(value, &year); err != nil {
				return &ValidationError{Field: key, Message: "must be an integer"}
			}
			p.TaxYear = &year
		case "filing_status":
			var status FilingStatus
			if err := json.Unmarshal(value, &status); err != nil {
				return &ValidationError{Field: key, Message: "must be a string"}
			}
			p.FilingStatus = &status
		case "use_standard_deduction":
			var use bool
			if err := json.Unmarshal(value, &use); err != nil {
				return &ValidationError{Field: key, Message: "must be a boolean"}
			}
			p.UseStandardDeduction = &use
		default:
			f := Field(key)
			if !f.IsBucket() && !f.IsDerived() {
				return &ValidationError{Field: key, Message: "unknown field"}
			}
			amount, err := ParseJSONAmount(key, value)
			if err != nil {
				return err
			}
			p.SetAmount(f, amount)
		}
	}
	return nil
}

// MarshalJSON emits the same flat shape UnmarshalJSON accepts.
func (p ReportPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Amounts)+4)
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.TaxYear != nil {
		out["tax_year"] = *p.TaxYear
	}
	if p.FilingStatus != nil {
		out["filing_status"] = *p.FilingStatus
	}
	if p.UseStandardDeduction != nil {
		out["use_standard_deduction"] = *p.UseStandardDeduction
	}
	for f, v := range p.Amounts {
		out[string(f)] = v.StringFixed(2)
	}
	return json.Marshal(out)
}
