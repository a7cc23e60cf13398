package payroll

import "errors"

var (
	ErrPayslipNotFound = errors.New("payslip not found")
	ErrInvalidState    = errors.New("payslip status does not allow this change")
	ErrInvalidIndex    = errors.New("line index out of range")
	ErrInvalidInput    = errors.New("invalid payslip input")
	ErrInvalidPeriod   = errors.New("invalid pay period, expected YYYY-MM")
	ErrInvalidStatus   = errors.New("unknown payslip status")
	ErrInvalidTaxTable = errors.New("invalid tax table")
)

// ErrPayslipExists is returned by stores when (user, period) is already taken.
var ErrPayslipExists = errors.New("payslip already exists for user and period")
