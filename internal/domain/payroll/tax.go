package payroll

import "github.com/shopspring/decimal"

var twelve = decimal.NewFromInt(12)

// AnnualTax maps an estimated annual income to the tax payable for the year after the
// primary rebate. It never returns a negative amount.
func AnnualTax(table TaxTable, income decimal.Decimal) decimal.Decimal {
	if income.LessThan(table.EffectiveThreshold()) {
		return decimal.Zero
	}
	tax := BracketTax(table.Brackets, income).Sub(table.PrimaryRebate)
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

// BracketTax sums each bracket's marginal rate over the slice of income that falls inside it.
func BracketTax(brackets []TaxBracket, income decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	lower := decimal.Zero
	for _, b := range brackets {
		if !income.GreaterThan(lower) {
			break
		}
		if !b.UpTo.Valid || income.LessThanOrEqual(b.UpTo.Decimal) {
			total = total.Add(income.Sub(lower).Mul(b.Rate))
			break
		}
		total = total.Add(b.UpTo.Decimal.Sub(lower).Mul(b.Rate))
		lower = b.UpTo.Decimal
	}
	return total
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
