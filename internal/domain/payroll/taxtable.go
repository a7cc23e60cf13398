package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBracket taxes income up to UpTo at Rate. An invalid UpTo marks the unbounded top bracket.
type TaxBracket struct {
	UpTo decimal.NullDecimal
	Rate decimal.Decimal
}

// TaxTable is read-only configuration shared by every computation.
type TaxTable struct {
	Brackets      []TaxBracket
	PrimaryRebate decimal.Decimal
	// Threshold is the practical exemption threshold. Zero means derive it from the
	// brackets and rebate.
	Threshold  decimal.Decimal
	UIFRate    decimal.Decimal
	UIFCeiling decimal.Decimal
}

func bracket(upTo int64, rate string) TaxBracket {
	return TaxBracket{
		UpTo: decimal.NewNullDecimal(decimal.NewFromInt(upTo)),
		Rate: decimal.RequireFromString(rate),
	}
}

func topBracket(rate string) TaxBracket {
	return TaxBracket{Rate: decimal.RequireFromString(rate)}
}

// DefaultTaxTable carries the 2024/25 individual rates, primary rebate and UIF limits.
func DefaultTaxTable() TaxTable {
	return TaxTable{
		Brackets: []TaxBracket{
			bracket(237100, "0.18"),
			bracket(370500, "0.26"),
			bracket(512800, "0.31"),
			bracket(673000, "0.36"),
			bracket(857900, "0.39"),
			bracket(1817000, "0.41"),
			topBracket("0.45"),
		},
		PrimaryRebate: decimal.NewFromInt(17235),
		Threshold:     decimal.NewFromInt(95750),
		UIFRate:       decimal.RequireFromString("0.01"),
		UIFCeiling:    decimal.NewFromInt(17712),
	}
}

func (t TaxTable) Validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("%w: no brackets", ErrInvalidTaxTable)
	}
	one := decimal.NewFromInt(1)
	lower := decimal.Zero
	for i, b := range t.Brackets {
		last := i == len(t.Brackets)-1
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: bracket %d rate %s outside 0..1", ErrInvalidTaxTable, i, b.Rate)
		}
		if !b.UpTo.Valid {
			if !last {
				return fmt.Errorf("%w: only the last bracket may be unbounded", ErrInvalidTaxTable)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: last bracket must be unbounded", ErrInvalidTaxTable)
		}
		if !b.UpTo.Decimal.GreaterThan(lower) {
			return fmt.Errorf("%w: bracket %d boundary %s is not ascending", ErrInvalidTaxTable, i, b.UpTo.Decimal)
		}
		lower = b.UpTo.Decimal
	}
	if t.PrimaryRebate.IsNegative() || t.Threshold.IsNegative() {
		return fmt.Errorf("%w: rebate and threshold must not be negative", ErrInvalidTaxTable)
	}
	if t.UIFRate.IsNegative() || t.UIFRate.GreaterThan(one) {
		return fmt.Errorf("%w: uif rate %s outside 0..1", ErrInvalidTaxTable, t.UIFRate)
	}
	if !t.UIFCeiling.IsPositive() {
		return fmt.Errorf("%w: uif ceiling must be positive", ErrInvalidTaxTable)
	}
	return nil
}

// EffectiveThreshold returns the configured threshold, or the income at which bracket tax
// first equals the primary rebate.
func (t TaxTable) EffectiveThreshold() decimal.Decimal {
	if t.Threshold.IsPositive() {
		return t.Threshold
	}
	lower := decimal.Zero
	accumulated := decimal.Zero
	for _, b := range t.Brackets {
		if b.Rate.IsZero() {
			if b.UpTo.Valid {
				lower = b.UpTo.Decimal
			}
			continue
		}
		remaining := t.PrimaryRebate.Sub(accumulated)
		reach := lower.Add(remaining.Div(b.Rate))
		if !b.UpTo.Valid || reach.LessThanOrEqual(b.UpTo.Decimal) {
			return reach.Round(2)
		}
		accumulated = accumulated.Add(b.UpTo.Decimal.Sub(lower).Mul(b.Rate))
		lower = b.UpTo.Decimal
	}
	return lower
}

// UIF is the capped unemployment insurance contribution on one period's gross.
func (t TaxTable) UIF(gross decimal.Decimal) decimal.Decimal {
	if gross.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(gross, t.UIFCeiling).Mul(t.UIFRate)
}
