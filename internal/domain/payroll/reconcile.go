package payroll

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// HistoryReader lists a user's finalized payslips with from <= period < to.
type HistoryReader interface {
	ListFinalized(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error)
}

// Reconciler derives a period's PAYE from the annualized year-to-date position so that
// cumulative withholding converges on the annual liability as periods are finalized.
type Reconciler struct {
	table   TaxTable
	history HistoryReader
}

func NewReconciler(table TaxTable, history HistoryReader) *Reconciler {
	return &Reconciler{table: table, history: history}
}

func (r *Reconciler) Table() TaxTable {
	return r.table
}

func (r *Reconciler) Reconcile(ctx context.Context, userID, period string, currentGross decimal.Decimal) (Withholding, error) {
	months, err := MonthsIntoTaxYear(period)
	if err != nil {
		return Withholding{}, err
	}
	ytd, err := r.YearToDate(ctx, userID, period)
	if err != nil {
		return Withholding{}, err
	}
	return Withholding{
		PAYE: PeriodPAYE(r.table, ytd, months, currentGross),
		UIF:  r.table.UIF(currentGross),
	}, nil
}

// YearToDate sums gross and withheld PAYE over finalized payslips earlier in the tax year.
// Drafts and other unfinalized payslips never count as already withheld.
func (r *Reconciler) YearToDate(ctx context.Context, userID, period string) (YearToDate, error) {
	taxYear, err := TaxYear(period)
	if err != nil {
		return YearToDate{}, err
	}
	from := TaxYearStart(taxYear)
	ytd := YearToDate{Earnings: decimal.Zero, PAYE: decimal.Zero}
	if from == period {
		return ytd, nil
	}
	prior, err := r.history.ListFinalized(ctx, userID, from, period)
	if err != nil {
		return YearToDate{}, fmt.Errorf("load year-to-date payslips: %w", err)
	}
	for _, p := range prior {
		if !p.Status.Finalized() || p.UserID != userID || p.PayPeriod < from || p.PayPeriod >= period {
			continue
		}
		totals := ComputeTotals(p)
		ytd.Earnings = ytd.Earnings.Add(totals.Taxable())
		ytd.PAYE = ytd.PAYE.Add(p.PAYE)
		ytd.Periods++
	}
	return ytd, nil
}

// PeriodPAYE annualizes year-to-date earnings including the current period, prorates the
// annual tax to the months elapsed and subtracts what was already withheld. It never
// returns a refund.
func PeriodPAYE(table TaxTable, ytd YearToDate, monthsSoFar int, currentGross decimal.Decimal) decimal.Decimal {
	var annualIncome decimal.Decimal
	if monthsSoFar <= 0 {
		annualIncome = currentGross.Mul(twelve)
		monthsSoFar = 1
	} else {
		annualIncome = ytd.Earnings.Add(currentGross).
			Div(decimal.NewFromInt(int64(monthsSoFar))).
			Mul(twelve)
	}
	annualTax := AnnualTax(table, annualIncome)
	taxDue := annualTax.Div(twelve).Mul(decimal.NewFromInt(int64(monthsSoFar)))
	paye := taxDue.Sub(ytd.PAYE)
	if paye.IsNegative() {
		return decimal.Zero
	}
	return paye
}
