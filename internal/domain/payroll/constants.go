package payroll

type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusQuery        Status = "QUERY"
	StatusQueryHandled Status = "QUERY_HANDLED"
	StatusLocked       Status = "LOCKED"
	StatusPaid         Status = "PAID"
)

var Statuses = []Status{
	StatusDraft,
	StatusQuery,
	StatusQueryHandled,
	StatusLocked,
	StatusPaid,
}

// Cause records why a status entry was appended to a payslip's history.
type Cause string

const (
	CauseDraftCreated Cause = "draft_created"
	CauseManual       Cause = "manual"
	CauseNoteRaised   Cause = "note_raised"
	CauseNoteEdited   Cause = "note_edited"
	CauseNoteDeleted  Cause = "note_deleted"
	CauseNoteResolved Cause = "note_resolved"
)

const (
	ActorSystem = "system"

	PeriodLayout = "2006-01"
	DateLayout   = "2006-01-02"

	// The agency's tax year starts in March.
	TaxYearStartMonth = 3

	JobRecalculateDrafts = "payroll_recalculate_drafts"
)

func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Finalized reports whether payslips in this status count toward year-to-date figures.
func (s Status) Finalized() bool {
	return s == StatusLocked || s == StatusPaid
}
