package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"tutordesk/internal/domain/payroll"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store  StoreAPI
	Mailer Mailer
	From   string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "payroll@tutordesk.local"
	}
	return &Service{store: store, Mailer: mailer, From: from}
}

// Create stores the notification and emails the tutor when a mailer is configured. Email
// failures are logged, not returned.
func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "userId", userID, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.From, email, title, body); err != nil {
		slog.Warn("notification email send failed", "userId", userID, "err", err)
	}
	return nil
}

// PayslipStatusChanged tells the tutor that one of their payslips moved.
func (s *Service) PayslipStatusChanged(ctx context.Context, p payroll.Payslip, from payroll.Status) error {
	ntype, title := describeStatus(p)
	body := fmt.Sprintf("Your payslip for %s moved from %s to %s. Net pay: %s.",
		p.PayPeriod, displayStatus(from), p.Status, p.NetPay.StringFixed(2))
	return s.Create(ctx, p.UserID, ntype, title, body)
}

func describeStatus(p payroll.Payslip) (string, string) {
	switch p.Status {
	case payroll.StatusLocked:
		return TypePayslipLocked, fmt.Sprintf("Payslip %s locked", p.PayPeriod)
	case payroll.StatusPaid:
		return TypePayslipPaid, fmt.Sprintf("Payslip %s paid", p.PayPeriod)
	case payroll.StatusDraft:
		return TypePayslipReopened, fmt.Sprintf("Payslip %s reopened", p.PayPeriod)
	case payroll.StatusQueryHandled:
		return TypePayslipQueryHandled, fmt.Sprintf("Query on payslip %s handled", p.PayPeriod)
	default:
		return TypePayslipStatusChanged, fmt.Sprintf("Payslip %s is now %s", p.PayPeriod, p.Status)
	}
}

func displayStatus(s payroll.Status) string {
	if s == "" {
		return "NEW"
	}
	return string(s)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}
