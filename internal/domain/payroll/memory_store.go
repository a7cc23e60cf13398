package payroll

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process StoreAPI for tests and offline simulation. Documents are
// copied on the way in and out so callers never share slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Payslip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Payslip)}
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return Payslip{}, ErrPayslipNotFound
	}
	return clonePayslip(p), nil
}

func (m *MemoryStore) FindByUserPeriod(ctx context.Context, userID, period string) (Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.byID {
		if p.UserID == userID && p.PayPeriod == period {
			return clonePayslip(p), nil
		}
	}
	return Payslip{}, ErrPayslipNotFound
}

func (m *MemoryStore) Create(ctx context.Context, p Payslip) (Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ID == p.ID || (existing.UserID == p.UserID && existing.PayPeriod == p.PayPeriod) {
			return Payslip{}, ErrPayslipExists
		}
	}
	m.byID[p.ID] = clonePayslip(p)
	return clonePayslip(p), nil
}

func (m *MemoryStore) Save(ctx context.Context, p Payslip) (Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return Payslip{}, ErrPayslipNotFound
	}
	m.byID[p.ID] = clonePayslip(p)
	return clonePayslip(p), nil
}

// Put stores a document as is, replacing any with the same id. Used to seed fixtures.
func (m *MemoryStore) Put(p Payslip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = clonePayslip(p)
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error) {
	return m.list(func(p Payslip) bool {
		return p.UserID == userID && p.PayPeriod >= fromPeriod && p.PayPeriod < toPeriod
	}), nil
}

func (m *MemoryStore) ListFinalized(ctx context.Context, userID, fromPeriod, toPeriod string) ([]Payslip, error) {
	return m.list(func(p Payslip) bool {
		return p.UserID == userID && p.PayPeriod >= fromPeriod && p.PayPeriod < toPeriod && p.Status.Finalized()
	}), nil
}

func (m *MemoryStore) list(match func(Payslip) bool) []Payslip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Payslip
	for _, p := range m.byID {
		if match(p) {
			out = append(out, clonePayslip(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PayPeriod < out[j].PayPeriod })
	return out
}

func clonePayslip(p Payslip) Payslip {
	p.Earnings = cloneSlice(p.Earnings)
	p.Bonuses = cloneSlice(p.Bonuses)
	p.MiscEarnings = cloneSlice(p.MiscEarnings)
	p.Deductions = cloneSlice(p.Deductions)
	p.History = cloneSlice(p.History)
	p.QueryNotes = cloneSlice(p.QueryNotes)
	for i, n := range p.QueryNotes {
		if n.ResolvedAt != nil {
			at := *n.ResolvedAt
			p.QueryNotes[i].ResolvedAt = &at
		}
	}
	return p
}

// cloneSlice keeps nil as nil so documents without optional lists round-trip unchanged.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
