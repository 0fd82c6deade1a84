package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places prices and totals are kept at.
const Places = 2

var ErrNegativeAmount = errors.New("amount must not be negative")

// Round rounds half-up to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Number renders an amount as a JSON number with two decimals.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(Places))
}

// Parse reads a JSON number back into a rounded, non-negative amount.
func Parse(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", n, err)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return Round(d), nil
}
