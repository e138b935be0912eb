package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds every stored amount. Money columns are NUMERIC(14, 2).
var MaxAmount = decimal.New(1, 12)

// ParseAmount parses a user-entered money amount such as "1200", "1,200.50"
// or "$75". Empty, malformed and negative input is rejected, as are exponent
// forms like "1e6".
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, &ValidationError{Field: field, Message: "amount is required"}
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, &ValidationError{Field: field, Message: "must be a plain decimal number"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: "must be a number"}
	}
	return d, ValidateAmount(field, d)
}

// ValidateAmount rejects negative amounts, fractions of a cent and values
// at or above MaxAmount. Direction is carried by the record type (income or
// expense), never by the sign.
func ValidateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	if !d.Equal(d.Round(2)) {
		return &ValidationError{Field: field, Message: "must have at most 2 decimal places"}
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return &ValidationError{Field: field, Message: "must be less than " + MaxAmount.String()}
	}
	return nil
}

// ParseJSONAmount parses an amount given as a JSON number or JSON string.
func ParseJSONAmount(field string, raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, &ValidationError{Field: field, Message: "amount is required"}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(field, s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: "must be a number"}
	}
	return ParseAmount(field, n.String())
}
