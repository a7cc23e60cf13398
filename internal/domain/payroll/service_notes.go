package payroll

import (
	"context"
	"fmt"
	"strings"
)

// Query notes never trigger recalculation. Their status side effects go through
// ApplyTransition, which rejects them on PAID payslips.

func (s *Service) AddQueryNote(ctx context.Context, id, itemRef, note, actorID string) (Payslip, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Payslip{}, fmt.Errorf("%w: note is required", ErrInvalidInput)
	}
	return s.transition(ctx, id, func(p *Payslip) (bool, error) {
		if err := requireStatus(p, CanEditNotes, "query notes"); err != nil {
			return false, err
		}
		now := s.now()
		p.QueryNotes = append(p.QueryNotes, QueryNote{
			ItemRef:   strings.TrimSpace(itemRef),
			Note:      note,
			CreatedBy: actorOrSystem(actorID),
			CreatedAt: now.UTC(),
		})
		return ApplyTransition(p, Transition{Cause: CauseNoteRaised, Actor: actorID, At: now})
	})
}

// UpdateQueryNote rewrites the note text and reopens it.
func (s *Service) UpdateQueryNote(ctx context.Context, id string, index int, note, actorID string) (Payslip, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Payslip{}, fmt.Errorf("%w: note is required", ErrInvalidInput)
	}
	return s.transition(ctx, id, func(p *Payslip) (bool, error) {
		if err := requireStatus(p, CanEditNotes, "query notes"); err != nil {
			return false, err
		}
		if err := checkIndex(index, len(p.QueryNotes)); err != nil {
			return false, err
		}
		n := &p.QueryNotes[index]
		n.Note = note
		n.Resolved = false
		n.ResolutionNote = ""
		n.ResolvedBy = ""
		n.ResolvedAt = nil
		return ApplyTransition(p, Transition{Cause: CauseNoteEdited, Actor: actorID, At: s.now()})
	})
}

// DeleteQueryNote removes a note. Only removing an unresolved note resets the payslip to DRAFT.
func (s *Service) DeleteQueryNote(ctx context.Context, id string, index int, actorID string) (Payslip, error) {
	return s.transition(ctx, id, func(p *Payslip) (bool, error) {
		if err := requireStatus(p, CanEditNotes, "query notes"); err != nil {
			return false, err
		}
		if err := checkIndex(index, len(p.QueryNotes)); err != nil {
			return false, err
		}
		resolved := p.QueryNotes[index].Resolved
		p.QueryNotes = append(p.QueryNotes[:index], p.QueryNotes[index+1:]...)
		if resolved {
			return false, nil
		}
		return ApplyTransition(p, Transition{Cause: CauseNoteDeleted, Actor: actorID, At: s.now()})
	})
}

func (s *Service) ResolveQueryNote(ctx context.Context, id string, index int, resolution, actorID string) (Payslip, error) {
	return s.transition(ctx, id, func(p *Payslip) (bool, error) {
		if err := requireStatus(p, CanEditNotes, "query notes"); err != nil {
			return false, err
		}
		if err := checkIndex(index, len(p.QueryNotes)); err != nil {
			return false, err
		}
		now := s.now().UTC()
		n := &p.QueryNotes[index]
		n.Resolved = true
		n.ResolutionNote = strings.TrimSpace(resolution)
		n.ResolvedBy = actorOrSystem(actorID)
		n.ResolvedAt = &now
		return ApplyTransition(p, Transition{Cause: CauseNoteResolved, Actor: actorID, At: now})
	})
}

func actorOrSystem(actorID string) string {
	if strings.TrimSpace(actorID) == "" {
		return ActorSystem
	}
	return actorID
}
