// Package core provides money parsing and handling utilities.
//
// Amounts are whole tenge held in float64. Intermediate math keeps full
// precision; Round is applied once, at the boundary of each stored or
// displayed field.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round rounds to the nearest integer currency unit, halves up.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// ParseAmount converts user input into a non-negative amount.
//
// It accepts dot (12.5) and comma (12,5) decimal separators as well as
// space, non-breaking space and underscore digit grouping. Fractions are
// kept to two decimal places with half-up rounding.
//
// Examples:
//
//	ParseAmount("1 250 000") -> 1250000, nil
//	ParseAmount("12,345")    -> 12.35, nil
//	ParseAmount("-1")        -> 0, ErrNegativeAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "_", "", ",", ".").Replace(s)
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	f := d.Round(2).InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// FormatTenge renders an amount rounded to whole tenge with space grouping,
// e.g. "1 250 000 ₸".
func FormatTenge(amount float64) string {
	v := int64(Round(amount))
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(" ₸")
	return b.String()
}

// FormatPercent renders a ratio as a percentage with one decimal, e.g. 0.1234 -> "12.3%".
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
}
