package payroll

import (
	"fmt"
	"time"
)

// causeTargets holds every status move that happens as a side effect of another operation.
// Manual transitions take their target from the caller and may go anywhere.
var causeTargets = map[Cause]Status{
	CauseDraftCreated: StatusDraft,
	CauseNoteRaised:   StatusDraft,
	CauseNoteEdited:   StatusDraft,
	CauseNoteDeleted:  StatusDraft,
	CauseNoteResolved: StatusQueryHandled,
}

type Transition struct {
	To    Status
	Cause Cause
	Actor string
	At    time.Time
}

// ApplyTransition is the only place a payslip's status changes. It appends exactly one
// history entry per change and reports whether it did. Side-effect transitions that would
// leave the status unchanged append nothing; manual ones are always recorded.
func ApplyTransition(p *Payslip, t Transition) (bool, error) {
	to := t.To
	if t.Cause != CauseManual {
		target, ok := causeTargets[t.Cause]
		if !ok {
			return false, fmt.Errorf("%w: unknown transition cause %q", ErrInvalidInput, t.Cause)
		}
		to = target
	}
	if _, ok := ParseStatus(string(to)); !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	switch t.Cause {
	case CauseManual, CauseDraftCreated:
	default:
		if p.Status == StatusPaid {
			return false, fmt.Errorf("%w: paid payslips cannot be reopened by query notes", ErrInvalidState)
		}
		if p.Status == to {
			return false, nil
		}
	}

	actor := t.Actor
	if actor == "" {
		actor = ActorSystem
	}
	p.Status = to
	p.History = append(p.History, StatusEntry{Status: to, At: t.At.UTC(), Actor: actor, Cause: t.Cause})
	return true, nil
}

// CanEditLines gates bonus, deduction and misc earning changes.
func CanEditLines(s Status) bool {
	return s == StatusDraft
}

// CanEditEarnings is wider than CanEditLines so that queried work can be corrected.
func CanEditEarnings(s Status) bool {
	return s == StatusDraft || s == StatusQuery || s == StatusQueryHandled
}

func CanEditNotes(s Status) bool {
	return s != StatusPaid
}

func requireStatus(p *Payslip, allowed func(Status) bool, what string) error {
	if allowed(p.Status) {
		return nil
	}
	return fmt.Errorf("%w: cannot change %s while payslip is %s", ErrInvalidState, what, p.Status)
}
