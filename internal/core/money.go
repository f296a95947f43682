// Package core provides money parsing and rounding utilities.
//
// Amounts travel as float64 through the calculators; rounding happens only
// at the presentation edge and goes through decimal to avoid binary
// representation surprises like 1.005 rounding down.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(v float64) float64 {
	return roundPlaces(v, 2)
}

// RoundRatio rounds ratios and percentages to four places.
func RoundRatio(v float64) float64 {
	return roundPlaces(v, 4)
}

// roundPlaces leaves NaN and ±Inf untouched; decimal cannot represent them.
func roundPlaces(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// ParseAmount converts a spreadsheet-style amount into a float.
//
// It tolerates a leading currency symbol, thousands separators and
// surrounding whitespace. Blank cells read as zero. Negative or
// non-numeric input returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("115000")     -> 115000, nil
//	ParseAmount("$1,234.50")  -> 1234.5, nil
//	ParseAmount("")           -> 0, nil
//	ParseAmount("-3")         -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Float64()
	if err := ValidateAmount(f); err != nil {
		return 0, err
	}
	return f, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
