package domain

import (
	"github.com/shopspring/decimal"
)

// Money limits follow the NUMERIC(19, 4) columns that store balances and amounts.
const (
	MoneyScale         = 4
	MoneyIntegerDigits = 15
)

// ParseMoney parses s as an amount of money.
//
// It reports false when s is not a decimal number, has more than MoneyScale fractional
// digits or more than MoneyIntegerDigits integer digits. The limits are checked on the
// coefficient and exponent before any rescaling, so "1e100000000" is rejected without
// expanding it.
func ParseMoney(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}

	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return decimal.Zero, true
	}

	digits := len(coef.Abs(coef).String())
	exp := int(d.Exponent())

	if exp+digits > MoneyIntegerDigits {
		return decimal.Decimal{}, false
	}

	if exp < -MoneyScale {
		// Digits past the scale must all be zero, and there are only so many digits.
		if -exp-MoneyScale > digits {
			return decimal.Decimal{}, false
		}

		if !d.Equal(d.Truncate(MoneyScale)) {
			return decimal.Decimal{}, false
		}
	}

	return d, true
}
