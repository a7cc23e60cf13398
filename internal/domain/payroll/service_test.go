package payroll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	mu    sync.Mutex
	saves int
}

func (c *countingStore) Save(ctx context.Context, p Payslip) (Payslip, error) {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.MemoryStore.Save(ctx, p)
}

func (c *countingStore) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

type statusChange struct {
	id       string
	from, to Status
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []statusChange
}

func (r *recordingNotifier) PayslipStatusChanged(ctx context.Context, p Payslip, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, statusChange{id: p.ID, from: from, to: p.Status})
	return nil
}

// inlineScheduler runs jobs on the caller's goroutine.
type inlineScheduler struct {
	jobs []string
	errs []error
}

func (s *inlineScheduler) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	s.jobs = append(s.jobs, jobType+":"+key)
	if _, err := run(context.Background()); err != nil {
		s.errs = append(s.errs, err)
	}
}

type serviceFixture struct {
	svc       *Service
	store     *countingStore
	notifier  *recordingNotifier
	scheduler *inlineScheduler
}

func newFixture(t *testing.T) serviceFixture {
	t.Helper()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	notifier := &recordingNotifier{}
	scheduler := &inlineScheduler{}
	seq := 0
	svc := NewService(store, NewReconciler(DefaultTaxTable(), store),
		WithNotifier(notifier),
		WithScheduler(scheduler),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("ps-%d", seq)
		}),
	)
	return serviceFixture{svc: svc, store: store, notifier: notifier, scheduler: scheduler}
}

func lesson(userID, date, hours, rate string) CompletedEvent {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	return CompletedEvent{
		UserID:      userID,
		EventDate:   day,
		Description: "Lesson with Sam",
		Quantity:    dec(hours),
		Rate:        dec(rate),
	}
}

func assertNetPayIdentity(t *testing.T, p Payslip) {
	t.Helper()
	totals := ComputeTotals(p)
	assertDecimal(t, totals.Gross.String(), p.GrossEarnings, "gross")
	want := round2(totals.Taxable().Sub(totals.Deductions).Sub(p.PAYE).Sub(p.UIF))
	assertDecimal(t, want.String(), p.NetPay, "net pay")
}

func TestGetOrCreateDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.GetOrCreateDraft(ctx, "u1", "2025-04", "admin")
	require.NoError(t, err)
	assert.Equal(t, "ps-1", p.ID)
	assert.Equal(t, StatusDraft, p.Status)
	require.Len(t, p.History, 1)
	assert.Equal(t, CauseDraftCreated, p.History[0].Cause)
	assert.Equal(t, "admin", p.History[0].Actor)
	assert.Empty(t, p.Earnings)
	assert.NotNil(t, p.Bonuses)

	again, err := f.svc.GetOrCreateDraft(ctx, "u1", "2025-04", "admin")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Len(t, again.History, 1)
}

func TestGetOrCreateDraftValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetOrCreateDraft(context.Background(), "u1", "2025-4", "")
	require.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = f.svc.GetOrCreateDraft(context.Background(), " ", "2025-04", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddCompletedEventIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := lesson("u1", "2025-04-03", "1.5", "200")
	ev.BaseRate = dec("50")

	p, added, err := f.svc.AddCompletedEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, added)
	require.Len(t, p.Earnings, 1)
	assert.Equal(t, "Lesson with Sam on 2025-04-03", p.Earnings[0].Description)
	assert.Equal(t, "2025-04-03", p.Earnings[0].Date)
	assertDecimal(t, "350", p.Earnings[0].Total)
	assertDecimal(t, "350", p.GrossEarnings)
	assertDecimal(t, "3.5", p.UIF)
	assertDecimal(t, "0", p.PAYE)
	assertDecimal(t, "346.5", p.NetPay)

	saves := f.store.saveCount()
	p, added, err = f.svc.AddCompletedEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, p.Earnings, 1)
	assert.Equal(t, saves, f.store.saveCount(), "duplicate delivery must not save")
}

func TestAddCompletedEventSameDescriptionOtherDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	p, added, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-10", "1", "200"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, p.Earnings, 2)
	assertDecimal(t, "400", p.GrossEarnings)
}

func TestAddCompletedEventValidation(t *testing.T) {
	valid := lesson("u1", "2025-04-03", "1", "200")
	cases := map[string]func(ev *CompletedEvent){
		"missing user":        func(ev *CompletedEvent) { ev.UserID = "" },
		"missing description": func(ev *CompletedEvent) { ev.Description = "  " },
		"missing date":        func(ev *CompletedEvent) { ev.EventDate = time.Time{} },
		"negative quantity":   func(ev *CompletedEvent) { ev.Quantity = dec("-1") },
		"negative rate":       func(ev *CompletedEvent) { ev.Rate = dec("-200") },
		"negative base rate":  func(ev *CompletedEvent) { ev.BaseRate = dec("-5") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ev := valid
			mutate(&ev)
			_, _, err := f.svc.AddCompletedEvent(context.Background(), ev)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 0, f.store.saveCount())
		})
	}
}

func TestAddCompletedEventOnFinalizedPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusLocked), "admin")
	require.NoError(t, err)

	_, _, err = f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-04", "1", "200"))
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAddCompletedEventRedeliveredAfterLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := lesson("u1", "2025-04-03", "1", "200")
	p, added, err := f.svc.AddCompletedEvent(ctx, ev)
	require.NoError(t, err)
	require.True(t, added)
	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusLocked), "admin")
	require.NoError(t, err)

	again, added, err := f.svc.AddCompletedEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, StatusLocked, again.Status)
	assert.Len(t, again.Earnings, 1)
}

func TestChangeStatusReportsPriorStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)

	locked, from, err := f.svc.ChangeStatus(ctx, p.ID, string(StatusLocked), "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, from)
	assert.Equal(t, StatusLocked, locked.Status)

	_, from, err = f.svc.ChangeStatus(ctx, p.ID, string(StatusPaid), "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, from)
}

func TestConcurrentEventsForOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for day := 1; day <= 20; day++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			_, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", fmt.Sprintf("2025-04-%02d", day), "1", "100"))
			assert.NoError(t, err)
		}(day)
	}
	wg.Wait()

	p, err := f.store.FindByUserPeriod(ctx, "u1", "2025-04")
	require.NoError(t, err)
	assert.Len(t, p.Earnings, 20)
	assertDecimal(t, "2000", p.GrossEarnings)
}

func TestRecalculateNetPayIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-03-10", "40", "250"))
	require.NoError(t, err)
	assertDecimal(t, "363.75", p.PAYE)
	assertDecimal(t, "100", p.UIF)

	p, err = f.svc.AddBonus(ctx, p.ID, LineItem{Description: "Top tutor", Amount: dec("500")})
	require.NoError(t, err)
	p, err = f.svc.AddMiscEarning(ctx, p.ID, LineItem{Description: "Travel", Amount: dec("250")})
	require.NoError(t, err)
	p, err = f.svc.AddDeduction(ctx, p.ID, LineItem{Description: "Materials", Amount: dec("100")})
	require.NoError(t, err)

	assertDecimal(t, "500", p.TotalBonuses)
	assertDecimal(t, "250", p.TotalMiscEarnings)
	assertDecimal(t, "100", p.TotalDeductions)
	assertDecimal(t, "498.75", p.PAYE)
	assertDecimal(t, "107.5", p.UIF)
	assertDecimal(t, "10043.75", p.NetPay)
	assertNetPayIdentity(t, p)
}

func TestRecalculateMissingOptionalLists(t *testing.T) {
	f := newFixture(t)
	f.store.Put(Payslip{
		ID:        "legacy",
		UserID:    "u1",
		PayPeriod: "2025-03",
		Status:    StatusDraft,
		Earnings:  []EarningLine{{Description: "Lesson on 2025-03-02", Total: dec("10000")}},
	})

	p, err := f.svc.Recalculate(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Nil(t, p.Bonuses)
	assert.Nil(t, p.MiscEarnings)
	assertDecimal(t, "0", p.TotalBonuses)
	assertDecimal(t, "0", p.TotalMiscEarnings)
	assertDecimal(t, "363.75", p.PAYE)
	assertNetPayIdentity(t, p)
}

func TestRecalculateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Recalculate(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPayslipNotFound)
	_, err = f.svc.AddBonus(context.Background(), "missing", LineItem{Description: "x", Amount: dec("1")})
	require.ErrorIs(t, err, ErrPayslipNotFound)
	_, err = f.svc.UpdateStatus(context.Background(), "missing", "LOCKED", "admin")
	require.ErrorIs(t, err, ErrPayslipNotFound)
}

func TestLineMutatorsRequireDraft(t *testing.T) {
	ctx := context.Background()
	for _, status := range []Status{StatusQuery, StatusQueryHandled, StatusLocked, StatusPaid} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-03-10", "2", "200"))
			require.NoError(t, err)
			p, err = f.svc.AddBonus(ctx, p.ID, LineItem{Description: "b", Amount: dec("10")})
			require.NoError(t, err)
			p, err = f.svc.UpdateStatus(ctx, p.ID, string(status), "admin")
			require.NoError(t, err)

			item := LineItem{Description: "x", Amount: dec("5")}
			calls := map[string]func() (Payslip, error){
				"add bonus":     func() (Payslip, error) { return f.svc.AddBonus(ctx, p.ID, item) },
				"update bonus":  func() (Payslip, error) { return f.svc.UpdateBonus(ctx, p.ID, 0, item) },
				"remove bonus":  func() (Payslip, error) { return f.svc.RemoveBonus(ctx, p.ID, 0) },
				"add deduction": func() (Payslip, error) { return f.svc.AddDeduction(ctx, p.ID, item) },
				"add misc":      func() (Payslip, error) { return f.svc.AddMiscEarning(ctx, p.ID, item) },
				"remove misc":   func() (Payslip, error) { return f.svc.RemoveMiscEarning(ctx, p.ID, 0) },
			}
			for name, call := range calls {
				_, err := call()
				require.ErrorIs(t, err, ErrInvalidState, name)
			}

			after, err := f.store.FindByID(ctx, p.ID)
			require.NoError(t, err)
			assertDecimal(t, p.TotalBonuses.String(), after.TotalBonuses)
			assertDecimal(t, p.NetPay.String(), after.NetPay)
			assert.Len(t, after.Bonuses, 1)
		})
	}
}

func TestUpdateEarningWhileQueried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusQuery), "tutor")
	require.NoError(t, err)

	p, err = f.svc.UpdateEarning(ctx, p.ID, 0, EarningUpdate{Quantity: dec("2"), Rate: dec("200")})
	require.NoError(t, err)
	assert.Equal(t, "Lesson with Sam on 2025-04-03", p.Earnings[0].Description)
	assertDecimal(t, "400", p.Earnings[0].Total)
	assertDecimal(t, "400", p.GrossEarnings)
	assertNetPayIdentity(t, p)

	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusLocked), "admin")
	require.NoError(t, err)
	_, err = f.svc.UpdateEarning(ctx, p.ID, 0, EarningUpdate{Quantity: dec("3"), Rate: dec("200")})
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.RemoveEarning(ctx, p.ID, 0)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestMutatorsRejectBadIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)

	_, err = f.svc.UpdateBonus(ctx, p.ID, 0, LineItem{Description: "x", Amount: dec("1")})
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = f.svc.RemoveDeduction(ctx, p.ID, -1)
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = f.svc.UpdateEarning(ctx, p.ID, 1, EarningUpdate{Quantity: dec("1"), Rate: dec("1")})
	require.ErrorIs(t, err, ErrInvalidIndex)
	_, err = f.svc.ResolveQueryNote(ctx, p.ID, 0, "", "admin")
	require.ErrorIs(t, err, ErrInvalidIndex)
}

func TestRemoveLinesRecalculates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	p, err = f.svc.AddDeduction(ctx, p.ID, LineItem{Description: "Materials", Amount: dec("20")})
	require.NoError(t, err)
	assertDecimal(t, "178", p.NetPay)

	p, err = f.svc.RemoveDeduction(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, p.Deductions)
	assertDecimal(t, "198", p.NetPay)

	p, err = f.svc.RemoveEarning(ctx, p.ID, 0)
	require.NoError(t, err)
	assertDecimal(t, "0", p.NetPay)
}

func TestQueryNoteReopensDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusQuery), "tutor")
	require.NoError(t, err)

	p, err = f.svc.AddQueryNote(ctx, p.ID, "earnings[0]", "Lesson ran two hours", "tutor")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, p.Status)
	require.Len(t, p.QueryNotes, 1)
	assert.Equal(t, "tutor", p.QueryNotes[0].CreatedBy)

	p, err = f.svc.ResolveQueryNote(ctx, p.ID, 0, "Corrected", "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusQueryHandled, p.Status)
	assert.True(t, p.QueryNotes[0].Resolved)
	assert.Equal(t, "Corrected", p.QueryNotes[0].ResolutionNote)
	require.NotNil(t, p.QueryNotes[0].ResolvedAt)

	_, err = f.svc.AddBonus(ctx, p.ID, LineItem{Description: "b", Amount: dec("10")})
	require.ErrorIs(t, err, ErrInvalidState)

	p, err = f.svc.UpdateQueryNote(ctx, p.ID, 0, "Still two hours", "tutor")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, p.Status)
	assert.False(t, p.QueryNotes[0].Resolved)
	assert.Nil(t, p.QueryNotes[0].ResolvedAt)

	p, err = f.svc.AddBonus(ctx, p.ID, LineItem{Description: "b", Amount: dec("10")})
	require.NoError(t, err)
	assertDecimal(t, "10", p.TotalBonuses)

	causes := make([]Cause, 0, len(p.History))
	for _, h := range p.History {
		causes = append(causes, h.Cause)
	}
	assert.Equal(t, []Cause{CauseDraftCreated, CauseManual, CauseNoteRaised, CauseNoteResolved, CauseNoteEdited}, causes)
}

func TestQueryNotesDoNotRecalculate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)

	f.store.Put(func() Payslip { p.Earnings[0].Total = dec("999"); return p }())
	p, err = f.svc.AddQueryNote(ctx, p.ID, "", "check", "tutor")
	require.NoError(t, err)
	assertDecimal(t, "200", p.GrossEarnings)
}

func TestDeleteQueryNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	p, err = f.svc.AddQueryNote(ctx, p.ID, "", "first", "tutor")
	require.NoError(t, err)
	p, err = f.svc.AddQueryNote(ctx, p.ID, "", "second", "tutor")
	require.NoError(t, err)
	p, err = f.svc.ResolveQueryNote(ctx, p.ID, 0, "", "admin")
	require.NoError(t, err)
	require.Equal(t, StatusQueryHandled, p.Status)
	historyLen := len(p.History)

	p, err = f.svc.DeleteQueryNote(ctx, p.ID, 0, "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusQueryHandled, p.Status, "deleting a resolved note keeps the status")
	assert.Len(t, p.History, historyLen)

	p, err = f.svc.DeleteQueryNote(ctx, p.ID, 0, "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Empty(t, p.QueryNotes)
	assert.Equal(t, CauseNoteDeleted, p.History[len(p.History)-1].Cause)
}

func TestQueryNotesRejectedWhenPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, p.ID, string(StatusPaid), "admin")
	require.NoError(t, err)

	_, err = f.svc.AddQueryNote(ctx, p.ID, "", "wrong", "tutor")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.AddQueryNote(ctx, p.ID, "", " ", "tutor")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.GetOrCreateDraft(ctx, "u1", "2025-04", "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, p.ID, "ARCHIVED", "admin")
	require.ErrorIs(t, err, ErrInvalidStatus)

	p, err = f.svc.UpdateStatus(ctx, p.ID, "PAID", "admin")
	require.NoError(t, err)
	p, err = f.svc.UpdateStatus(ctx, p.ID, "DRAFT", "admin")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, p.Status)
	require.Len(t, p.History, 3)
	assert.Equal(t, StatusEntry{Status: StatusPaid, At: testNow, Actor: "admin", Cause: CauseManual}, p.History[1])

	assert.Equal(t, []statusChange{
		{id: p.ID, from: StatusDraft, to: StatusPaid},
		{id: p.ID, from: StatusPaid, to: StatusDraft},
	}, f.notifier.changes)
}

func TestFinalizingRecalculatesLaterDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	march, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-03-10", "40", "250"))
	require.NoError(t, err)
	april, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-10", "40", "250"))
	require.NoError(t, err)
	assertDecimal(t, "0", april.PAYE, "nothing finalized yet, April annualizes to 60000")

	_, err = f.svc.UpdateStatus(ctx, march.ID, string(StatusLocked), "admin")
	require.NoError(t, err)
	require.Empty(t, f.scheduler.errs)
	assert.Equal(t, []string{JobRecalculateDrafts + ":u1"}, f.scheduler.jobs)

	april, err = f.svc.Get(ctx, april.ID)
	require.NoError(t, err)
	assertDecimal(t, "363.75", april.PAYE)
	assertNetPayIdentity(t, april)

	_, err = f.svc.UpdateStatus(ctx, march.ID, string(StatusPaid), "admin")
	require.NoError(t, err)
	assert.Len(t, f.scheduler.jobs, 1, "LOCKED to PAID keeps the year-to-date figures")
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, date := range []string{"2025-02-10", "2025-03-10", "2026-01-05", "2026-03-01"} {
		_, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", date, "1", "100"))
		require.NoError(t, err)
	}
	_, _, err := f.svc.AddCompletedEvent(ctx, lesson("u2", "2025-05-01", "1", "100"))
	require.NoError(t, err)

	list, err := f.svc.ListForUser(ctx, "u1", 2025)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-03", list[0].PayPeriod)
	assert.Equal(t, "2026-01", list[1].PayPeriod)
}

func TestPayslipPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.AddCompletedEvent(ctx, lesson("u1", "2025-04-03", "1", "200"))
	require.NoError(t, err)

	data, encrypted, err := f.svc.PayslipPDF(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, "%PDF", string(data[:4]))

	_, _, err = f.svc.PayslipPDF(ctx, "missing")
	require.ErrorIs(t, err, ErrPayslipNotFound)
}
