package payroll

import (
	"fmt"
	"time"
)

// ParsePeriod validates a "YYYY-MM" pay period token.
func ParsePeriod(raw string) (time.Time, error) {
	if len(raw) != len(PeriodLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	t, err := time.Parse(PeriodLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return t, nil
}

func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// TaxYear returns the calendar year in which the period's tax year began.
func TaxYear(period string) (int, error) {
	t, err := ParsePeriod(period)
	if err != nil {
		return 0, err
	}
	return taxYearOf(t), nil
}

func taxYearOf(t time.Time) int {
	if int(t.Month()) >= TaxYearStartMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// TaxYearStart is the first pay period of the tax year.
func TaxYearStart(taxYear int) string {
	return fmt.Sprintf("%04d-%02d", taxYear, TaxYearStartMonth)
}

// MonthsIntoTaxYear counts the months from the start of the tax year up to and including
// the period, so March is 1 and February is 12.
func MonthsIntoTaxYear(period string) (int, error) {
	t, err := ParsePeriod(period)
	if err != nil {
		return 0, err
	}
	start := taxYearOf(t)*12 + TaxYearStartMonth
	return t.Year()*12 + int(t.Month()) - start + 1, nil
}

// TaxYearPeriods lists every pay period of the tax year in order.
func TaxYearPeriods(taxYear int) []string {
	start := time.Date(taxYear, time.Month(TaxYearStartMonth), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		periods = append(periods, PeriodOf(start.AddDate(0, i, 0)))
	}
	return periods
}

// ParseDate validates a "YYYY-MM-DD" work date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, raw)
	}
	return t, nil
}
