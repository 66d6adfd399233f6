package offer

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// amountLimit bounds the magnitude of every dollar figure the pipeline
// accepts, from the form, the model reply or a returned bundle.
var amountLimit = decimal.New(1, 12)

// maxExponent bounds the decimal exponent in both directions so rounding and
// comparison stay cheap.
const maxExponent = 12

// InRange reports whether d is a plain figure below $1,000,000,000,000 in
// magnitude with at most 12 decimal places.
func InRange(d decimal.Decimal) bool {
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return false
	}
	return d.Abs().Cmp(amountLimit) < 0
}

// FormatMoney renders whole dollars with thousands separators, e.g. $268,500.
// Negative amounts render as -$1,200.
func FormatMoney(d decimal.Decimal) string {
	whole := d.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	return sign + "$" + humanize.BigComma(whole.BigInt())
}

func FormatPercent(d decimal.Decimal) string {
	return d.Round(2).String() + "%"
}

// FormatWeight prints a weight without trailing zeros: 80, 62.5.
func FormatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
