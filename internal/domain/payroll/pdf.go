package payroll

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

type Encrypter interface {
	Configured() bool
	Encrypt(plain []byte) ([]byte, error)
}

func WithEncrypter(e Encrypter) Option {
	return func(s *Service) { s.encrypter = e }
}

// PayslipPDF renders the payslip. The second result reports whether the bytes were
// encrypted with the configured data key.
func (s *Service) PayslipPDF(ctx context.Context, id string) ([]byte, bool, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	data, err := RenderPDF(p)
	if err != nil {
		return nil, false, err
	}
	if s.encrypter == nil || !s.encrypter.Configured() {
		return data, false, nil
	}
	encrypted, err := s.encrypter.Encrypt(data)
	if err != nil {
		return nil, false, fmt.Errorf("encrypt payslip pdf: %w", err)
	}
	return encrypted, true, nil
}

func RenderPDF(p Payslip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Tutor: %s", p.UserID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s", p.PayPeriod))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", p.Status))
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
	}
	row := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(140, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	section("Earnings")
	for _, line := range p.Earnings {
		row(fmt.Sprintf("%s (%s x %s)", line.Description, line.Quantity.String(), line.Rate.StringFixed(2)), line.Total)
	}
	if len(p.Bonuses) > 0 {
		section("Bonuses")
		for _, item := range p.Bonuses {
			row(item.Description, item.Amount)
		}
	}
	if len(p.MiscEarnings) > 0 {
		section("Other earnings")
		for _, item := range p.MiscEarnings {
			row(item.Description, item.Amount)
		}
	}
	if len(p.Deductions) > 0 {
		section("Deductions")
		for _, item := range p.Deductions {
			row(item.Description, item.Amount)
		}
	}

	section("Summary")
	row("Gross earnings", p.GrossEarnings)
	row("Bonuses", p.TotalBonuses)
	row("Other earnings", p.TotalMiscEarnings)
	row("Deductions", p.TotalDeductions)
	row("PAYE", p.PAYE)
	row("UIF", p.UIF)
	pdf.SetFont("Helvetica", "B", 11)
	row("Net pay", p.NetPay)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render payslip pdf: %w", err)
	}
	return buf.Bytes(), nil
}
