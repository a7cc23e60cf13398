package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tutordesk/internal/platform/lock"
)

type Service struct {
	store      StoreAPI
	reconciler *Reconciler
	locker     Locker
	notifier   Notifier
	scheduler  Scheduler
	encrypter  Encrypter
	now        func() time.Time
	newID      func() string
	log        *slog.Logger
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithScheduler enables background recalculation of later drafts.
func WithScheduler(sc Scheduler) Option {
	return func(s *Service) { s.scheduler = sc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store StoreAPI, reconciler *Reconciler, opts ...Option) *Service {
	s := &Service{
		store:      store,
		reconciler: reconciler,
		locker:     lock.NewLocal(),
		now:        time.Now,
		newID:      uuid.NewString,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "payroll")
	return s
}

func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

func UserLockKey(userID string) string {
	return "payroll:user:" + userID
}

func (s *Service) lockUser(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, UserLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("lock payroll for user %s: %w", userID, err)
	}
	return unlock, nil
}

func (s *Service) Get(ctx context.Context, id string) (Payslip, error) {
	return s.store.FindByID(ctx, id)
}

// ListForUser returns the user's payslips for one tax year, oldest first.
func (s *Service) ListForUser(ctx context.Context, userID string, taxYear int) ([]Payslip, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.ListByUser(ctx, userID, TaxYearStart(taxYear), TaxYearStart(taxYear+1))
}

// GetOrCreateDraft returns the user's payslip for the period, creating an empty DRAFT when
// none exists. An existing payslip that has moved past DRAFT is reported as ErrInvalidState
// rather than duplicated.
func (s *Service) GetOrCreateDraft(ctx context.Context, userID, period, actorID string) (Payslip, error) {
	if strings.TrimSpace(userID) == "" {
		return Payslip{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if _, err := ParsePeriod(period); err != nil {
		return Payslip{}, err
	}
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return Payslip{}, err
	}
	defer unlock()
	return s.getOrCreateDraftLocked(ctx, userID, period, actorID)
}

func (s *Service) getOrCreateDraftLocked(ctx context.Context, userID, period, actorID string) (Payslip, error) {
	existing, err := s.store.FindByUserPeriod(ctx, userID, period)
	switch {
	case err == nil:
		if existing.Status != StatusDraft {
			return Payslip{}, fmt.Errorf("%w: payslip %s for %s is %s", ErrInvalidState, existing.ID, period, existing.Status)
		}
		return existing, nil
	case !errors.Is(err, ErrPayslipNotFound):
		return Payslip{}, err
	}

	now := s.now()
	p := Payslip{
		ID:                s.newID(),
		UserID:            userID,
		PayPeriod:         period,
		Earnings:          []EarningLine{},
		Bonuses:           []LineItem{},
		MiscEarnings:      []LineItem{},
		Deductions:        []LineItem{},
		QueryNotes:        []QueryNote{},
		GrossEarnings:     decimal.Zero,
		TotalBonuses:      decimal.Zero,
		TotalMiscEarnings: decimal.Zero,
		TotalDeductions:   decimal.Zero,
		UIF:               decimal.Zero,
		PAYE:              decimal.Zero,
		NetPay:            decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := ApplyTransition(&p, Transition{Cause: CauseDraftCreated, Actor: actorID, At: now}); err != nil {
		return Payslip{}, err
	}
	created, err := s.store.Create(ctx, p)
	if errors.Is(err, ErrPayslipExists) {
		// Another process won the insert; use its document.
		return s.getOrCreateDraftLocked(ctx, userID, period, actorID)
	}
	if err != nil {
		return Payslip{}, err
	}
	s.log.Info("payslip draft created", "payslipId", created.ID, "userId", userID, "period", period)
	return created, nil
}

// AddCompletedEvent appends the event as an earning line on the period's draft. Redelivered
// events are recognized by their dated description and leave the payslip untouched,
// whatever its status.
func (s *Service) AddCompletedEvent(ctx context.Context, ev CompletedEvent) (Payslip, bool, error) {
	if err := validateEvent(ev); err != nil {
		return Payslip{}, false, err
	}
	date := ev.EventDate.Format(DateLayout)
	key := fmt.Sprintf("%s on %s", strings.TrimSpace(ev.Description), date)

	unlock, err := s.lockUser(ctx, ev.UserID)
	if err != nil {
		return Payslip{}, false, err
	}
	defer unlock()

	period := PeriodOf(ev.EventDate)
	existing, err := s.store.FindByUserPeriod(ctx, ev.UserID, period)
	switch {
	case err == nil && existing.HasEarning(key):
		// Redelivery is a no-op whatever the payslip's status.
		s.log.Debug("duplicate completed event ignored", "payslipId", existing.ID, "status", existing.Status, "description", key)
		return existing, false, nil
	case err != nil && !errors.Is(err, ErrPayslipNotFound):
		return Payslip{}, false, err
	}

	p, err := s.getOrCreateDraftLocked(ctx, ev.UserID, period, ActorSystem)
	if err != nil {
		return Payslip{}, false, err
	}

	p.Earnings = append(p.Earnings, EarningLine{
		Description: key,
		BaseRate:    ev.BaseRate,
		Quantity:    ev.Quantity,
		Rate:        ev.Rate,
		Total:       LineTotal(ev.Quantity, ev.Rate, ev.BaseRate),
		Date:        date,
	})
	p.UpdatedAt = s.now()
	p, err = s.store.Save(ctx, p)
	if err != nil {
		return Payslip{}, false, err
	}
	p, err = s.recalculateLocked(ctx, p)
	if err != nil {
		return Payslip{}, false, err
	}
	s.log.Info("earning added", "payslipId", p.ID, "userId", p.UserID, "description", key)
	return p, true, nil
}

func validateEvent(ev CompletedEvent) error {
	switch {
	case strings.TrimSpace(ev.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case strings.TrimSpace(ev.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	case ev.EventDate.IsZero():
		return fmt.Errorf("%w: event date is required", ErrInvalidInput)
	case ev.Quantity.IsNegative():
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	case ev.Rate.IsNegative():
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidInput)
	case ev.BaseRate.IsNegative():
		return fmt.Errorf("%w: base rate must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Recalculate(ctx context.Context, id string) (Payslip, error) {
	return s.withPayslip(ctx, id, func(p *Payslip) error { return nil })
}

// withPayslip loads the payslip under its user's lock, applies fn and recalculates.
func (s *Service) withPayslip(ctx context.Context, id string, fn func(p *Payslip) error) (Payslip, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Payslip{}, err
	}
	unlock, err := s.lockUser(ctx, p.UserID)
	if err != nil {
		return Payslip{}, err
	}
	defer unlock()

	p, err = s.store.FindByID(ctx, id)
	if err != nil {
		return Payslip{}, err
	}
	if err := fn(&p); err != nil {
		return Payslip{}, err
	}
	return s.recalculateLocked(ctx, p)
}

func (s *Service) recalculateLocked(ctx context.Context, p Payslip) (Payslip, error) {
	totals := ComputeTotals(p)
	w, err := s.reconciler.Reconcile(ctx, p.UserID, p.PayPeriod, totals.Taxable())
	if err != nil {
		return Payslip{}, fmt.Errorf("reconcile payslip %s: %w", p.ID, err)
	}
	ApplyTotals(&p, totals, w)
	p.UpdatedAt = s.now()
	return s.store.Save(ctx, p)
}

// UpdateStatus moves the payslip to any known status on behalf of an operator.
func (s *Service) UpdateStatus(ctx context.Context, id, status, actorID string) (Payslip, error) {
	p, _, err := s.ChangeStatus(ctx, id, status, actorID)
	return p, err
}

// ChangeStatus is UpdateStatus that also reports the status read under the user's lock
// before the change.
func (s *Service) ChangeStatus(ctx context.Context, id, status, actorID string) (Payslip, Status, error) {
	to, ok := ParseStatus(status)
	if !ok {
		return Payslip{}, "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	saved, from, changed, err := s.transitionLocked(ctx, id, func(p *Payslip) (bool, error) {
		return ApplyTransition(p, Transition{To: to, Cause: CauseManual, Actor: actorID, At: s.now()})
	})
	if err != nil {
		return Payslip{}, "", err
	}
	if changed {
		s.afterStatusChange(ctx, saved, from)
	}
	return saved, from, nil
}

// transition runs fn under the user's lock and saves the result without recalculating.
// When fn reports a status change the notifier and the later-draft job run after the
// lock is released.
func (s *Service) transition(ctx context.Context, id string, fn func(p *Payslip) (bool, error)) (Payslip, error) {
	saved, from, changed, err := s.transitionLocked(ctx, id, fn)
	if err != nil {
		return Payslip{}, err
	}
	if changed {
		s.afterStatusChange(ctx, saved, from)
	}
	return saved, nil
}

func (s *Service) transitionLocked(ctx context.Context, id string, fn func(p *Payslip) (bool, error)) (Payslip, Status, bool, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Payslip{}, "", false, err
	}
	unlock, err := s.lockUser(ctx, p.UserID)
	if err != nil {
		return Payslip{}, "", false, err
	}
	defer unlock()

	p, err = s.store.FindByID(ctx, id)
	if err != nil {
		return Payslip{}, "", false, err
	}
	from := p.Status
	changed, err := fn(&p)
	if err != nil {
		return Payslip{}, "", false, err
	}
	p.UpdatedAt = s.now()
	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return Payslip{}, "", false, err
	}
	return saved, from, changed, nil
}

func (s *Service) afterStatusChange(ctx context.Context, p Payslip, from Status) {
	s.log.Info("payslip status changed", "payslipId", p.ID, "userId", p.UserID, "from", from, "to", p.Status)
	if s.notifier != nil {
		if err := s.notifier.PayslipStatusChanged(ctx, p, from); err != nil {
			s.log.Warn("payslip notification failed", "payslipId", p.ID, "err", err)
		}
	}
	if from.Finalized() != p.Status.Finalized() {
		s.scheduleLaterDrafts(p.UserID, p.PayPeriod)
	}
}

func (s *Service) scheduleLaterDrafts(userID, period string) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Enqueue(JobRecalculateDrafts, userID, func(ctx context.Context) (any, error) {
		n, err := s.RecalculateLaterDrafts(ctx, userID, period)
		return map[string]any{"userId": userID, "fromPeriod": period, "recalculated": n}, err
	})
}

// RecalculateLaterDrafts refreshes withholding on DRAFT payslips after period in the same
// tax year. It returns how many were recalculated.
func (s *Service) RecalculateLaterDrafts(ctx context.Context, userID, period string) (int, error) {
	taxYear, err := TaxYear(period)
	if err != nil {
		return 0, err
	}
	later, err := s.store.ListByUser(ctx, userID, nextPeriod(period), TaxYearStart(taxYear+1))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, p := range later {
		if p.Status != StatusDraft {
			continue
		}
		if _, err := s.withPayslip(ctx, p.ID, func(current *Payslip) error {
			return requireStatus(current, CanEditLines, "withholding")
		}); err != nil {
			if errors.Is(err, ErrInvalidState) {
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}

func nextPeriod(period string) string {
	t, err := ParsePeriod(period)
	if err != nil {
		return period
	}
	return PeriodOf(t.AddDate(0, 1, 0))
}
