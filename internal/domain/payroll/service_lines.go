package payroll

import (
	"context"
	"fmt"
	"strings"
)

type lineList int

const (
	listBonuses lineList = iota
	listDeductions
	listMisc
)

func (l lineList) String() string {
	switch l {
	case listBonuses:
		return "bonuses"
	case listDeductions:
		return "deductions"
	default:
		return "misc earnings"
	}
}

func (l lineList) of(p *Payslip) *[]LineItem {
	switch l {
	case listBonuses:
		return &p.Bonuses
	case listDeductions:
		return &p.Deductions
	default:
		return &p.MiscEarnings
	}
}

func validateItem(item LineItem) error {
	if strings.TrimSpace(item.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if item.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidIndex, index, length)
	}
	return nil
}

func (s *Service) addItem(ctx context.Context, id string, list lineList, item LineItem) (Payslip, error) {
	if err := validateItem(item); err != nil {
		return Payslip{}, err
	}
	return s.withPayslip(ctx, id, func(p *Payslip) error {
		if err := requireStatus(p, CanEditLines, list.String()); err != nil {
			return err
		}
		items := list.of(p)
		*items = append(*items, LineItem{Description: strings.TrimSpace(item.Description), Amount: round2(item.Amount)})
		return nil
	})
}

func (s *Service) updateItem(ctx context.Context, id string, list lineList, index int, item LineItem) (Payslip, error) {
	if err := validateItem(item); err != nil {
		return Payslip{}, err
	}
	return s.withPayslip(ctx, id, func(p *Payslip) error {
		if err := requireStatus(p, CanEditLines, list.String()); err != nil {
			return err
		}
		items := list.of(p)
		if err := checkIndex(index, len(*items)); err != nil {
			return err
		}
		(*items)[index] = LineItem{Description: strings.TrimSpace(item.Description), Amount: round2(item.Amount)}
		return nil
	})
}

func (s *Service) removeItem(ctx context.Context, id string, list lineList, index int) (Payslip, error) {
	return s.withPayslip(ctx, id, func(p *Payslip) error {
		if err := requireStatus(p, CanEditLines, list.String()); err != nil {
			return err
		}
		items := list.of(p)
		if err := checkIndex(index, len(*items)); err != nil {
			return err
		}
		*items = append((*items)[:index], (*items)[index+1:]...)
		return nil
	})
}

func (s *Service) AddBonus(ctx context.Context, id string, item LineItem) (Payslip, error) {
	return s.addItem(ctx, id, listBonuses, item)
}

func (s *Service) UpdateBonus(ctx context.Context, id string, index int, item LineItem) (Payslip, error) {
	return s.updateItem(ctx, id, listBonuses, index, item)
}

func (s *Service) RemoveBonus(ctx context.Context, id string, index int) (Payslip, error) {
	return s.removeItem(ctx, id, listBonuses, index)
}

func (s *Service) AddDeduction(ctx context.Context, id string, item LineItem) (Payslip, error) {
	return s.addItem(ctx, id, listDeductions, item)
}

func (s *Service) UpdateDeduction(ctx context.Context, id string, index int, item LineItem) (Payslip, error) {
	return s.updateItem(ctx, id, listDeductions, index, item)
}

func (s *Service) RemoveDeduction(ctx context.Context, id string, index int) (Payslip, error) {
	return s.removeItem(ctx, id, listDeductions, index)
}

func (s *Service) AddMiscEarning(ctx context.Context, id string, item LineItem) (Payslip, error) {
	return s.addItem(ctx, id, listMisc, item)
}

func (s *Service) UpdateMiscEarning(ctx context.Context, id string, index int, item LineItem) (Payslip, error) {
	return s.updateItem(ctx, id, listMisc, index, item)
}

func (s *Service) RemoveMiscEarning(ctx context.Context, id string, index int) (Payslip, error) {
	return s.removeItem(ctx, id, listMisc, index)
}

// UpdateEarning replaces one earning line. Empty description or date keep the current
// values so the line's duplicate-suppression key survives rate corrections.
func (s *Service) UpdateEarning(ctx context.Context, id string, index int, upd EarningUpdate) (Payslip, error) {
	if upd.Quantity.IsNegative() || upd.Rate.IsNegative() || upd.BaseRate.IsNegative() {
		return Payslip{}, fmt.Errorf("%w: quantity and rates must not be negative", ErrInvalidInput)
	}
	if upd.Date != "" {
		if _, err := ParseDate(upd.Date); err != nil {
			return Payslip{}, err
		}
	}
	return s.withPayslip(ctx, id, func(p *Payslip) error {
		if err := requireStatus(p, CanEditEarnings, "earnings"); err != nil {
			return err
		}
		if err := checkIndex(index, len(p.Earnings)); err != nil {
			return err
		}
		line := p.Earnings[index]
		if d := strings.TrimSpace(upd.Description); d != "" {
			line.Description = d
		}
		if upd.Date != "" {
			line.Date = upd.Date
		}
		line.Quantity = upd.Quantity
		line.Rate = upd.Rate
		line.BaseRate = upd.BaseRate
		line.Total = LineTotal(upd.Quantity, upd.Rate, upd.BaseRate)
		p.Earnings[index] = line
		return nil
	})
}

func (s *Service) RemoveEarning(ctx context.Context, id string, index int) (Payslip, error) {
	return s.withPayslip(ctx, id, func(p *Payslip) error {
		if err := requireStatus(p, CanEditEarnings, "earnings"); err != nil {
			return err
		}
		if err := checkIndex(index, len(p.Earnings)); err != nil {
			return err
		}
		p.Earnings = append(p.Earnings[:index], p.Earnings[index+1:]...)
		return nil
	})
}
