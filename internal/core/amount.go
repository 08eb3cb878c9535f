package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a decimal amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs,
// exponents and textual values such as "NaN" or "Inf" are rejected, so the
// result is always finite. A leading minus yields ErrNegativeAmount so callers
// can tell a sign problem from garbage input. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("15000")  -> 15000, nil
//	ParseAmount("12,50")  -> 12.5, nil
//	ParseAmount("-3")     -> 0, ErrNegativeAmount
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", ".")

	intPart, fracPart, found := strings.Cut(s, ".")
	if found && strings.Contains(fracPart, ".") {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// MaxAmountDigits bounds both the digits an amount expands to and its
// fractional scale.
const MaxAmountDigits = 64

// CheckAmount rejects negative amounts and amounts whose plain decimal form
// would exceed MaxAmountDigits. Values decoded from JSON may carry an exponent
// such as 1e900000000, which is cheap to hold but never finishes printing or
// summing.
func CheckAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	exp := int64(d.Exponent())
	if exp < -MaxAmountDigits {
		return ErrInvalidAmount
	}
	if exp > MaxAmountDigits || int64(d.NumDigits())+max(exp, 0) > MaxAmountDigits {
		return ErrInvalidAmount
	}
	return nil
}
