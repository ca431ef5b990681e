package tools

import (
	"math"

	"github.com/shopspring/decimal"
)

const _cents = 2

// Money renders v as dollars with two decimals: 1234.5 -> "$1234.50",
// -5 -> "-$5.00".
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(_cents)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(_cents)
	}
	return "$" + d.StringFixed(_cents)
}

// Quantity drops trailing zeros: 10.0 -> "10", 0.50 -> "0.5".
func Quantity(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// PerShare divides total by qty in decimal and rounds to cents. A zero
// quantity yields zero.
func PerShare(total, qty float64) float64 {
	if qty == 0 {
		return 0
	}
	q := decimal.NewFromFloat(math.Abs(qty))
	per, _ := decimal.NewFromFloat(total).DivRound(q, _cents+2).Round(_cents).Float64()
	return per
}
