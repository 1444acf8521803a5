package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency amount in centavos. All wallet and escrow
// arithmetic happens on this type; decimals exist only at the API edge.
type Amount int64

var hundred = decimal.NewFromInt(100)

// Parse converts a user-supplied amount string ("1200", "1200.50") to
// centavos. Amounts with more than 2 fractional digits are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("invalid amount %q: more than 2 decimal places", s)
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: more than 2 decimal places", s)
	}
	return Amount(cents.IntPart()), nil
}

// String renders the amount with exactly 2 fractional digits.
func (a Amount) String() string {
	return decimal.New(int64(a), -2).StringFixed(2)
}

func (a Amount) IsPositive() bool {
	return a > 0
}
