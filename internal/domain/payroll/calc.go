package payroll

import "github.com/shopspring/decimal"

type Totals struct {
	Gross      decimal.Decimal
	Bonuses    decimal.Decimal
	Misc       decimal.Decimal
	Deductions decimal.Decimal
}

// Taxable is the period income the reconciler annualizes.
func (t Totals) Taxable() decimal.Decimal {
	return t.Gross.Add(t.Bonuses).Add(t.Misc)
}

// ComputeTotals sums the line items. Missing bonus and misc lists contribute zero.
func ComputeTotals(p Payslip) Totals {
	totals := Totals{
		Gross:      decimal.Zero,
		Bonuses:    sumItems(p.Bonuses),
		Misc:       sumItems(p.MiscEarnings),
		Deductions: sumItems(p.Deductions),
	}
	for _, line := range p.Earnings {
		totals.Gross = totals.Gross.Add(line.Total)
	}
	return totals
}

func sumItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// NetPay applies the payslip identity to already rounded withholding figures.
func NetPay(totals Totals, w Withholding) decimal.Decimal {
	return round2(totals.Taxable().Sub(totals.Deductions).Sub(w.PAYE).Sub(w.UIF))
}

// LineTotal is quantity times rate plus the optional base rate.
func LineTotal(quantity, rate, baseRate decimal.Decimal) decimal.Decimal {
	return round2(quantity.Mul(rate).Add(baseRate))
}

// ApplyTotals writes computed totals and rounded withholding onto the payslip.
func ApplyTotals(p *Payslip, totals Totals, w Withholding) {
	p.GrossEarnings = totals.Gross
	p.TotalBonuses = totals.Bonuses
	p.TotalMiscEarnings = totals.Misc
	p.TotalDeductions = totals.Deductions
	p.PAYE = round2(w.PAYE)
	p.UIF = round2(w.UIF)
	p.NetPay = NetPay(totals, Withholding{PAYE: p.PAYE, UIF: p.UIF})
}
