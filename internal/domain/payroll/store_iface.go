package payroll

import "context"

// StoreAPI persists payslip documents. Lookups that match nothing return ErrPayslipNotFound.
type StoreAPI interface {
	HistoryReader
	FindByID(ctx context.Context, id string) (Payslip, error)
	FindByUserPeriod(ctx context.Context, userID, period string) (Payslip, error)
	Create(ctx context.Context, p Payslip) (Payslip, error)
	Save(ctx context.Context, p Payslip) (Payslip, error)
	// ListByUser returns the user's payslips with from <= period < to, oldest first.
	ListByUser(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error)
}

// Locker serializes read-modify-write sequences that share a key.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Notifier interface {
	PayslipStatusChanged(ctx context.Context, p Payslip, from Status) error
}

type Scheduler interface {
	Enqueue(jobType, key string, run func(context.Context) (any, error))
}
