package notifications

const (
	TypePayslipStatusChanged = "payslip_status_changed"
	TypePayslipLocked        = "payslip_locked"
	TypePayslipPaid          = "payslip_paid"
	TypePayslipReopened      = "payslip_reopened"
	TypePayslipQueryHandled  = "payslip_query_handled"
)
