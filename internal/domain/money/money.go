// Package money handles fixed-point monetary amounts. Values are carried
// through the system as int64 minor units (cents); decimal strings are the
// only external representation, so binary floating point never touches a
// balance.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by every amount.
const Scale = 2

var (
	ErrMalformed   = errors.New("amount is not a valid decimal number")
	ErrNotPositive = errors.New("amount must be positive")
	ErrTooPrecise  = errors.New("amount has more than two decimal places")
	ErrOutOfRange  = errors.New("amount does not fit in minor units")
)

// maxMinor bounds parsed amounts so that minor-unit arithmetic cannot
// overflow int64 when two balances are summed.
const maxMinor = int64(1) << 62

// Parse converts a decimal string such as "30.00" into minor units.
// Amounts must be strictly positive and carry at most Scale decimal
// places of real precision; "30.000" is accepted, "30.005" is not.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMalformed
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal value into minor units under the same
// rules as Parse.
func FromDecimal(d decimal.Decimal) (int64, error) {
	if d.Sign() <= 0 {
		return 0, ErrNotPositive
	}
	if !d.Equal(d.Truncate(Scale)) {
		return 0, ErrTooPrecise
	}
	minor := d.Shift(Scale)
	if !minor.IsInteger() || minor.Cmp(decimal.NewFromInt(maxMinor)) >= 0 {
		return 0, ErrOutOfRange
	}
	return minor.IntPart(), nil
}

// ParseNonNegative is Parse but also accepts zero, for opening balances.
func ParseNonNegative(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMalformed
	}
	if d.IsZero() {
		return 0, nil
	}
	return FromDecimal(d)
}

// Format renders minor units as a decimal string with exactly Scale
// decimal places, e.g. 7000 -> "70.00".
func Format(minor int64) string {
	return decimal.New(minor, -Scale).StringFixed(Scale)
}

// Decimal returns the decimal value of minor units.
func Decimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}
