package auth

const (
	RoleTutor        = "tutor"
	RolePayrollAdmin = "payroll_admin"
	RoleLessonSystem = "lesson_system"
)

const (
	PermPayrollReadOwn  = "payroll.read.own"
	PermPayrollRead     = "payroll.read"
	PermPayrollWrite    = "payroll.write"
	PermPayrollStatus   = "payroll.status"
	PermPayrollQuery    = "payroll.query"
	PermPayrollResolve  = "payroll.resolve"
	PermLessonEventsAdd = "lessons.events.add"
)

var DefaultPermissions = []string{
	PermPayrollReadOwn,
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollStatus,
	PermPayrollQuery,
	PermPayrollResolve,
	PermLessonEventsAdd,
}

// RolePermissions is the static role map. Tutors may only read and query their own payslips;
// handlers enforce ownership for PermPayrollReadOwn.
var RolePermissions = map[string][]string{
	RoleTutor: {
		PermPayrollReadOwn,
		PermPayrollQuery,
	},
	RolePayrollAdmin: {
		PermPayrollReadOwn,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollStatus,
		PermPayrollQuery,
		PermPayrollResolve,
		PermLessonEventsAdd,
	},
	RoleLessonSystem: {
		PermLessonEventsAdd,
	},
}

func HasPermission(role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
