package checkout

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeTax returns VAT on the taxable amount rounded to two places, half
// away from zero. Negative taxable amounts are treated as zero and a
// non-positive rate yields no tax.
func ComputeTax(taxable, vatPercent decimal.Decimal) decimal.Decimal {
	if !vatPercent.IsPositive() || !taxable.IsPositive() {
		return decimal.Zero
	}
	return taxable.Mul(vatPercent).Div(hundred).Round(2)
}
