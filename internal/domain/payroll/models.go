package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payslip struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	PayPeriod         string          `json:"payPeriod"`
	Status            Status          `json:"status"`
	Earnings          []EarningLine   `json:"earnings"`
	Bonuses           []LineItem      `json:"bonuses,omitempty"`
	MiscEarnings      []LineItem      `json:"miscEarnings,omitempty"`
	Deductions        []LineItem      `json:"deductions"`
	GrossEarnings     decimal.Decimal `json:"grossEarnings"`
	TotalBonuses      decimal.Decimal `json:"totalBonuses"`
	TotalMiscEarnings decimal.Decimal `json:"totalMiscEarnings"`
	TotalDeductions   decimal.Decimal `json:"totalDeductions"`
	UIF               decimal.Decimal `json:"uif"`
	PAYE              decimal.Decimal `json:"paye"`
	NetPay            decimal.Decimal `json:"netPay"`
	History           []StatusEntry   `json:"history"`
	QueryNotes        []QueryNote     `json:"queryNotes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// EarningLine is one unit of billable work. Its description embeds the work date and
// doubles as the duplicate-suppression key.
type EarningLine struct {
	Description string          `json:"description"`
	BaseRate    decimal.Decimal `json:"baseRate"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Total       decimal.Decimal `json:"total"`
	Date        string          `json:"date"`
}

type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type QueryNote struct {
	ItemRef        string     `json:"itemRef"`
	Note           string     `json:"note"`
	Resolved       bool       `json:"resolved"`
	ResolutionNote string     `json:"resolutionNote,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	ResolvedBy     string     `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

type StatusEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Cause  Cause     `json:"cause"`
}

// CompletedEvent is a finished piece of work, typically a lesson, reported by an
// upstream workflow. Delivery is at least once.
type CompletedEvent struct {
	UserID      string          `json:"userId"`
	EventDate   time.Time       `json:"eventDate"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	BaseRate    decimal.Decimal `json:"baseRate"`
}

type EarningUpdate struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	BaseRate    decimal.Decimal `json:"baseRate"`
	Date        string          `json:"date"`
}

type Withholding struct {
	PAYE decimal.Decimal `json:"paye"`
	UIF  decimal.Decimal `json:"uif"`
}

// YearToDate holds figures from finalized payslips earlier in the same tax year.
type YearToDate struct {
	Earnings decimal.Decimal
	PAYE     decimal.Decimal
	Periods  int
}

type PayslipSummary struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	PayPeriod string          `json:"payPeriod"`
	Status    Status          `json:"status"`
	Gross     decimal.Decimal `json:"gross"`
	PAYE      decimal.Decimal `json:"paye"`
	NetPay    decimal.Decimal `json:"netPay"`
}

func (p Payslip) Summary() PayslipSummary {
	return PayslipSummary{
		ID:        p.ID,
		UserID:    p.UserID,
		PayPeriod: p.PayPeriod,
		Status:    p.Status,
		Gross:     p.GrossEarnings.Add(p.TotalBonuses).Add(p.TotalMiscEarnings),
		PAYE:      p.PAYE,
		NetPay:    p.NetPay,
	}
}

func (p *Payslip) HasEarning(description string) bool {
	for _, line := range p.Earnings {
		if line.Description == description {
			return true
		}
	}
	return false
}
