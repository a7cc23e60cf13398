// Package lessons turns completed tutoring lessons into payroll earning lines.
package lessons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/domain/rates"
)

const DefaultDescription = "Lesson with %s"

// Completed is the payload published when a lesson remark is submitted.
type Completed struct {
	UserID        string              `json:"userId" validate:"required"`
	StudentName   string              `json:"studentName" validate:"required"`
	LessonDate    string              `json:"lessonDate" validate:"required"`
	DurationHours decimal.Decimal     `json:"durationHours"`
	BaseRate      decimal.NullDecimal `json:"baseRate"`
}

type Ingester interface {
	AddCompletedEvent(ctx context.Context, ev payroll.CompletedEvent) (payroll.Payslip, bool, error)
}

type RateSource interface {
	EffectiveRate(ctx context.Context, userID string, asOf time.Time) (rates.Quote, error)
}

type Recorder struct {
	payroll     Ingester
	rates       RateSource
	description string
}

func NewRecorder(ingester Ingester, rateSource RateSource, descriptionFormat string) *Recorder {
	if strings.Count(descriptionFormat, "%s") != 1 {
		descriptionFormat = DefaultDescription
	}
	return &Recorder{payroll: ingester, rates: rateSource, description: descriptionFormat}
}

// Record prices the lesson at the tutor's effective rate on the lesson date and adds it to
// that month's draft. The boolean reports whether a new line was written.
func (r *Recorder) Record(ctx context.Context, lesson Completed) (payroll.Payslip, bool, error) {
	ev, err := r.Event(ctx, lesson)
	if err != nil {
		return payroll.Payslip{}, false, err
	}
	return r.payroll.AddCompletedEvent(ctx, ev)
}

func (r *Recorder) Event(ctx context.Context, lesson Completed) (payroll.CompletedEvent, error) {
	if strings.TrimSpace(lesson.UserID) == "" || strings.TrimSpace(lesson.StudentName) == "" {
		return payroll.CompletedEvent{}, fmt.Errorf("%w: user id and student name are required", payroll.ErrInvalidInput)
	}
	date, err := payroll.ParseDate(lesson.LessonDate)
	if err != nil {
		return payroll.CompletedEvent{}, err
	}
	if !lesson.DurationHours.IsPositive() {
		return payroll.CompletedEvent{}, fmt.Errorf("%w: duration must be positive", payroll.ErrInvalidInput)
	}

	quote, err := r.rates.EffectiveRate(ctx, lesson.UserID, date)
	if err != nil {
		return payroll.CompletedEvent{}, err
	}

	base := decimal.Zero
	if lesson.BaseRate.Valid {
		base = lesson.BaseRate.Decimal
	}
	return payroll.CompletedEvent{
		UserID:      strings.TrimSpace(lesson.UserID),
		EventDate:   date,
		Description: fmt.Sprintf(r.description, strings.TrimSpace(lesson.StudentName)),
		Quantity:    lesson.DurationHours,
		Rate:        quote.Rate,
		BaseRate:    base,
	}, nil
}
