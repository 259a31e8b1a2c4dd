// Package store provides the in-memory ledger.TxStore used by engine tests
// and demo setups. The SQLite and PostgreSQL implementations live under
// store/ at the repository root.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type schedKey struct {
	Kind    ledger.ScheduleKind
	Subject ledger.SubjectID
}

// Memory implements ledger.TxStore entirely in process. Reserved expense
// categories are provisioned at construction, matching the database
// migrations.
type Memory struct {
	mu sync.RWMutex

	clock ledger.Clock

	entries    map[ledger.SubjectID][]ledger.Entry
	schedules  map[schedKey]ledger.Schedule
	expenses   []ledger.Expense
	properties map[ledger.PropertyID]ledger.Property
	tenants    map[ledger.SubjectID]ledger.Tenant
	employees  map[ledger.SubjectID]ledger.Employee
	categories map[ledger.CategoryID]ledger.ExpenseCategory

	salariesCat   ledger.CategoryID
	commissionCat ledger.CategoryID
}

func NewMemory() *Memory {
	m := &Memory{
		clock:      ledger.SystemClock{},
		entries:    make(map[ledger.SubjectID][]ledger.Entry),
		schedules:  make(map[schedKey]ledger.Schedule),
		properties: make(map[ledger.PropertyID]ledger.Property),
		tenants:    make(map[ledger.SubjectID]ledger.Tenant),
		employees:  make(map[ledger.SubjectID]ledger.Employee),
		categories: make(map[ledger.CategoryID]ledger.ExpenseCategory),
	}
	commission := ledger.ExpenseCategory{
		ID:          ledger.CategoryID(ledger.NewID(ledger.PrefixCategory)),
		Name:        ledger.CategoryCommission,
		Description: "Commission fees on collected rent",
	}
	salaries := ledger.ExpenseCategory{
		ID:          ledger.CategoryID(ledger.NewID(ledger.PrefixCategory)),
		Name:        ledger.CategorySalaries,
		Description: "Employee salary payouts",
	}
	m.categories[commission.ID] = commission
	m.categories[salaries.ID] = salaries
	m.commissionCat = commission.ID
	m.salariesCat = salaries.ID
	return m
}

// NewMemoryWithClock pins CreatedAt stamping for deterministic tests.
func NewMemoryWithClock(clock ledger.Clock) *Memory {
	m := NewMemory()
	m.clock = clock
	return m
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) AppendEntries(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntriesLocked(entries)
}

func (m *Memory) appendEntriesLocked(entries []ledger.Entry) error {
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ledger.NewValidationError("amount", "entry amount must be positive, got %v", e.Amount)
		}
	}
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = m.clock.Now()
		}
		m.entries[e.Subject] = append(m.entries[e.Subject], e)
	}
	return nil
}

func (m *Memory) EntriesBySubject(_ context.Context, subject ledger.SubjectID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesBySubjectLocked(subject), nil
}

func (m *Memory) entriesBySubjectLocked(subject ledger.SubjectID) []ledger.Entry {
	src := m.entries[subject]
	// Newest insertion first, then stable-sorted to newest month first.
	out := make([]ledger.Entry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ForMonth.After(out[j].ForMonth)
	})
	return out
}

func (m *Memory) SumByMonth(_ context.Context, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sumByMonthLocked(subject, from, to), nil
}

func (m *Memory) sumByMonthLocked(subject ledger.SubjectID, from, to ledger.Month) map[ledger.Month]decimal.Decimal {
	sums := make(map[ledger.Month]decimal.Decimal)
	for _, e := range m.entries[subject] {
		if e.ForMonth.AfterOrEqual(from) && e.ForMonth.BeforeOrEqual(to) {
			sums[e.ForMonth] = sums[e.ForMonth].Add(e.Amount)
		}
	}
	return sums
}

func (m *Memory) LatestEntryMonth(_ context.Context, subject ledger.SubjectID) (ledger.Month, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestEntryMonthLocked(subject)
}

func (m *Memory) latestEntryMonthLocked(subject ledger.SubjectID) (ledger.Month, bool, error) {
	var latest ledger.Month
	found := false
	for _, e := range m.entries[subject] {
		if !found || e.ForMonth.After(latest) {
			latest = e.ForMonth
			found = true
		}
	}
	return latest, found, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

func (m *Memory) SetScheduleValue(_ context.Context, entry ledger.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setScheduleValueLocked(entry)
}

func (m *Memory) setScheduleValueLocked(entry ledger.ScheduleEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.clock.Now()
	}
	k := schedKey{Kind: entry.Kind, Subject: entry.Subject}
	sched := m.schedules[k]
	sched.Set(entry)
	m.schedules[k] = sched
	return nil
}

func (m *Memory) ScheduleFor(_ context.Context, kind ledger.ScheduleKind, subject ledger.SubjectID) (ledger.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scheduleForLocked(kind, subject), nil
}

func (m *Memory) scheduleForLocked(kind ledger.ScheduleKind, subject ledger.SubjectID) ledger.Schedule {
	// Copy so callers never alias the stored history.
	return ledger.NewSchedule(m.schedules[schedKey{Kind: kind, Subject: subject}].Entries())
}

// =============================================================================
// EXPENSES
// =============================================================================

func (m *Memory) AddExpense(_ context.Context, e ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addExpenseLocked(e)
}

func (m *Memory) addExpenseLocked(e ledger.Expense) error {
	if !e.Amount.IsPositive() {
		return ledger.NewValidationError("amount", "expense amount must be positive, got %v", e.Amount)
	}
	if _, ok := m.categories[e.Category]; !ok {
		return ledger.ErrCategoryNotFound
	}
	if e.Employee != "" && !e.ForMonth.IsZero() {
		if existing, found := m.findSalaryLocked(e.Employee, e.ForMonth, e.Category); found {
			return &ledger.DuplicatePaymentError{Subject: e.Employee, Month: e.ForMonth, Existing: existing}
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.clock.Now()
	}
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *Memory) findSalaryLocked(employee ledger.SubjectID, month ledger.Month, category ledger.CategoryID) (ledger.ExpenseID, bool) {
	for _, e := range m.expenses {
		if e.Employee == employee && e.Category == category && !e.ForMonth.IsZero() && e.ForMonth.Equal(month) {
			return e.ID, true
		}
	}
	return "", false
}

func (m *Memory) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listExpensesLocked(f), nil
}

func (m *Memory) listExpensesLocked(f ledger.ExpenseFilter) []ledger.Expense {
	var out []ledger.Expense
	for _, e := range m.expenses {
		if f.Property != "" && e.Property != f.Property {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Employee != "" && e.Employee != f.Employee {
			continue
		}
		if !f.From.IsZero() && e.SpentOn.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.SpentOn.After(f.To) {
			continue
		}
		out = append(out, e)
	}
	// Newest spend first, matching the database ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SpentOn.After(out[j].SpentOn) })
	return out
}

func (m *Memory) FindSalaryExpense(_ context.Context, employee ledger.SubjectID, month ledger.Month) (ledger.ExpenseID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, found := m.findSalaryLocked(employee, month, m.salariesCat)
	return id, found, nil
}

func (m *Memory) SalaryPaidByMonth(_ context.Context, employee ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.salaryPaidByMonthLocked(employee, from, to), nil
}

func (m *Memory) salaryPaidByMonthLocked(employee ledger.SubjectID, from, to ledger.Month) map[ledger.Month]decimal.Decimal {
	sums := make(map[ledger.Month]decimal.Decimal)
	for _, e := range m.expenses {
		if e.Employee != employee || e.Category != m.salariesCat || e.ForMonth.IsZero() {
			continue
		}
		if e.ForMonth.AfterOrEqual(from) && e.ForMonth.BeforeOrEqual(to) {
			sums[e.ForMonth] = sums[e.ForMonth].Add(e.Amount)
		}
	}
	return sums
}

func (m *Memory) LatestSalaryMonth(_ context.Context, employee ledger.SubjectID) (ledger.Month, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest ledger.Month
	found := false
	for _, e := range m.expenses {
		if e.Employee != employee || e.Category != m.salariesCat || e.ForMonth.IsZero() {
			continue
		}
		if !found || e.ForMonth.After(latest) {
			latest = e.ForMonth
			found = true
		}
	}
	return latest, found, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SaveProperty(_ context.Context, p ledger.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePropertyLocked(p)
}

func (m *Memory) savePropertyLocked(p ledger.Property) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.clock.Now()
	}
	m.properties[p.ID] = p
	return nil
}

func (m *Memory) PropertyByID(_ context.Context, id ledger.PropertyID) (ledger.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return ledger.Property{}, ledger.ErrPropertyNotFound
	}
	return p, nil
}

func (m *Memory) Properties(_ context.Context) ([]ledger.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Property, 0, len(m.properties))
	for _, p := range m.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveTenant(_ context.Context, t ledger.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTenantLocked(t)
}

func (m *Memory) saveTenantLocked(t ledger.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.clock.Now()
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) TenantByID(_ context.Context, id ledger.SubjectID) (ledger.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenantByIDLocked(id)
}

func (m *Memory) tenantByIDLocked(id ledger.SubjectID) (ledger.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return ledger.Tenant{}, ledger.ErrSubjectNotFound
	}
	return t, nil
}

func (m *Memory) Tenants(_ context.Context) ([]ledger.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenantsLocked(), nil
}

func (m *Memory) tenantsLocked() []ledger.Tenant {
	out := make([]ledger.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) SaveEmployee(_ context.Context, e ledger.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEmployeeLocked(e)
}

func (m *Memory) saveEmployeeLocked(e ledger.Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.clock.Now()
	}
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) EmployeeByID(_ context.Context, id ledger.SubjectID) (ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employeeByIDLocked(id)
}

func (m *Memory) employeeByIDLocked(id ledger.SubjectID) (ledger.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return ledger.Employee{}, ledger.ErrSubjectNotFound
	}
	return e, nil
}

func (m *Memory) Employees(_ context.Context) ([]ledger.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employeesLocked(), nil
}

func (m *Memory) employeesLocked() []ledger.Employee {
	out := make([]ledger.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) SaveCategory(_ context.Context, c ledger.ExpenseCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) CategoryByName(_ context.Context, name string) (ledger.ExpenseCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categoryByNameLocked(name)
}

func (m *Memory) categoryByNameLocked(name string) (ledger.ExpenseCategory, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return ledger.ExpenseCategory{}, ledger.ErrCategoryNotFound
}

func (m *Memory) Categories(_ context.Context) ([]ledger.ExpenseCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.ExpenseCategory, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and rollback
// =============================================================================

// WithTx simulates a database transaction: state is snapshotted up front
// and restored when fn fails. The store lock is held for the duration, so
// allocations for the same subject cannot interleave.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()
	view := &txMemoryView{parent: m}
	if err := fn(view); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	entries    map[ledger.SubjectID][]ledger.Entry
	schedules  map[schedKey]ledger.Schedule
	expenses   []ledger.Expense
	properties map[ledger.PropertyID]ledger.Property
	tenants    map[ledger.SubjectID]ledger.Tenant
	employees  map[ledger.SubjectID]ledger.Employee
	categories map[ledger.CategoryID]ledger.ExpenseCategory
}

func (m *Memory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		entries:    make(map[ledger.SubjectID][]ledger.Entry, len(m.entries)),
		schedules:  make(map[schedKey]ledger.Schedule, len(m.schedules)),
		expenses:   append([]ledger.Expense{}, m.expenses...),
		properties: make(map[ledger.PropertyID]ledger.Property, len(m.properties)),
		tenants:    make(map[ledger.SubjectID]ledger.Tenant, len(m.tenants)),
		employees:  make(map[ledger.SubjectID]ledger.Employee, len(m.employees)),
		categories: make(map[ledger.CategoryID]ledger.ExpenseCategory, len(m.categories)),
	}
	for k, v := range m.entries {
		s.entries[k] = append([]ledger.Entry{}, v...)
	}
	for k, v := range m.schedules {
		s.schedules[k] = ledger.NewSchedule(v.Entries())
	}
	for k, v := range m.properties {
		s.properties[k] = v
	}
	for k, v := range m.tenants {
		s.tenants[k] = v
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.categories {
		s.categories[k] = v
	}
	return s
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.entries = s.entries
	m.schedules = s.schedules
	m.expenses = s.expenses
	m.properties = s.properties
	m.tenants = s.tenants
	m.employees = s.employees
	m.categories = s.categories
}

// txMemoryView routes Store calls to the parent's locked internals while
// WithTx holds the lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) AppendEntries(_ context.Context, entries []ledger.Entry) error {
	return tv.parent.appendEntriesLocked(entries)
}

func (tv *txMemoryView) EntriesBySubject(_ context.Context, subject ledger.SubjectID) ([]ledger.Entry, error) {
	return tv.parent.entriesBySubjectLocked(subject), nil
}

func (tv *txMemoryView) SumByMonth(_ context.Context, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	return tv.parent.sumByMonthLocked(subject, from, to), nil
}

func (tv *txMemoryView) LatestEntryMonth(_ context.Context, subject ledger.SubjectID) (ledger.Month, bool, error) {
	return tv.parent.latestEntryMonthLocked(subject)
}

func (tv *txMemoryView) SetScheduleValue(_ context.Context, entry ledger.ScheduleEntry) error {
	return tv.parent.setScheduleValueLocked(entry)
}

func (tv *txMemoryView) ScheduleFor(_ context.Context, kind ledger.ScheduleKind, subject ledger.SubjectID) (ledger.Schedule, error) {
	return tv.parent.scheduleForLocked(kind, subject), nil
}

func (tv *txMemoryView) AddExpense(_ context.Context, e ledger.Expense) error {
	return tv.parent.addExpenseLocked(e)
}

func (tv *txMemoryView) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]ledger.Expense, error) {
	return tv.parent.listExpensesLocked(f), nil
}

func (tv *txMemoryView) FindSalaryExpense(_ context.Context, employee ledger.SubjectID, month ledger.Month) (ledger.ExpenseID, bool, error) {
	id, found := tv.parent.findSalaryLocked(employee, month, tv.parent.salariesCat)
	return id, found, nil
}

func (tv *txMemoryView) SalaryPaidByMonth(_ context.Context, employee ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	return tv.parent.salaryPaidByMonthLocked(employee, from, to), nil
}

func (tv *txMemoryView) LatestSalaryMonth(_ context.Context, employee ledger.SubjectID) (ledger.Month, bool, error) {
	var latest ledger.Month
	found := false
	for _, e := range tv.parent.expenses {
		if e.Employee != employee || e.Category != tv.parent.salariesCat || e.ForMonth.IsZero() {
			continue
		}
		if !found || e.ForMonth.After(latest) {
			latest = e.ForMonth
			found = true
		}
	}
	return latest, found, nil
}

func (tv *txMemoryView) SaveProperty(_ context.Context, p ledger.Property) error {
	return tv.parent.savePropertyLocked(p)
}

func (tv *txMemoryView) PropertyByID(_ context.Context, id ledger.PropertyID) (ledger.Property, error) {
	p, ok := tv.parent.properties[id]
	if !ok {
		return ledger.Property{}, ledger.ErrPropertyNotFound
	}
	return p, nil
}

func (tv *txMemoryView) Properties(_ context.Context) ([]ledger.Property, error) {
	out := make([]ledger.Property, 0, len(tv.parent.properties))
	for _, p := range tv.parent.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (tv *txMemoryView) SaveTenant(_ context.Context, t ledger.Tenant) error {
	return tv.parent.saveTenantLocked(t)
}

func (tv *txMemoryView) TenantByID(_ context.Context, id ledger.SubjectID) (ledger.Tenant, error) {
	return tv.parent.tenantByIDLocked(id)
}

func (tv *txMemoryView) Tenants(_ context.Context) ([]ledger.Tenant, error) {
	return tv.parent.tenantsLocked(), nil
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, e ledger.Employee) error {
	return tv.parent.saveEmployeeLocked(e)
}

func (tv *txMemoryView) EmployeeByID(_ context.Context, id ledger.SubjectID) (ledger.Employee, error) {
	return tv.parent.employeeByIDLocked(id)
}

func (tv *txMemoryView) Employees(_ context.Context) ([]ledger.Employee, error) {
	return tv.parent.employeesLocked(), nil
}

func (tv *txMemoryView) SaveCategory(_ context.Context, c ledger.ExpenseCategory) error {
	tv.parent.categories[c.ID] = c
	return nil
}

func (tv *txMemoryView) CategoryByName(_ context.Context, name string) (ledger.ExpenseCategory, error) {
	return tv.parent.categoryByNameLocked(name)
}

func (tv *txMemoryView) Categories(_ context.Context) ([]ledger.ExpenseCategory, error) {
	out := make([]ledger.ExpenseCategory, 0, len(tv.parent.categories))
	for _, c := range tv.parent.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
