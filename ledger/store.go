/*
store.go - Persistence interfaces between the engine and the database

PURPOSE:
  Defines what the engine needs from storage. Implementations exist for
  SQLite (production default), PostgreSQL (pgx stdlib driver), and an
  in-memory store for engine tests and demos.

KEY INTERFACES:
  EntrySource:   read side consumed by the reconciler and allocator
  EntryStore:    append-only payment entries
  ScheduleStore: time-effective tables (rent, salary, commission)
  ExpenseStore:  money out, including the salary-payout uniqueness probe
  DirectoryStore: properties and expense categories
  Store:         everything above, one backend
  TxStore:       Store + WithTx for atomic multi-write operations

APPEND-ONLY CONTRACT:
  Payment entries and expenses have no Update or Delete. One allocation call
  writes all of its entries (and the commission fee) inside WithTx: either
  the whole batch commits or none of it does.

SEE ALSO:
  - store/sqlite: production implementation
  - store/postgres: pgx implementation
  - ledger/store (memory.go): test implementation
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY PERSISTENCE
// =============================================================================

// EntrySource is the read side the engine computes from. Rent reads payment
// entries; payroll reads salary expenses through the same shape.
type EntrySource interface {
	// SumByMonth returns per-month paid totals for the subject over
	// [from, to] inclusive. Months with no payments are absent from the map.
	SumByMonth(ctx context.Context, subject SubjectID, from, to Month) (map[Month]decimal.Decimal, error)

	// LatestEntryMonth returns the most recent month carrying any payment,
	// or ok=false when the subject has none. Extends reconciliation windows
	// so advance payments stay visible.
	LatestEntryMonth(ctx context.Context, subject SubjectID) (Month, bool, error)
}

// EntryStore persists payment entries. Append-only.
type EntryStore interface {
	EntrySource

	// AppendEntries writes a batch atomically: all entries or none.
	AppendEntries(ctx context.Context, entries []Entry) error

	// EntriesBySubject returns the subject's entries, newest ForMonth first,
	// ties broken by CreatedAt descending.
	EntriesBySubject(ctx context.Context, subject SubjectID) ([]Entry, error)
}

// =============================================================================
// SCHEDULE PERSISTENCE
// =============================================================================

// ScheduleStore persists time-effective values.
type ScheduleStore interface {
	// SetScheduleValue upserts on (kind, subject, effective_from): an
	// existing row for the same month is overwritten in place.
	SetScheduleValue(ctx context.Context, entry ScheduleEntry) error

	// ScheduleFor loads one subject's full ordered history.
	ScheduleFor(ctx context.Context, kind ScheduleKind, subject SubjectID) (Schedule, error)
}

// =============================================================================
// EXPENSE PERSISTENCE
// =============================================================================

// ExpenseFilter narrows expense listings. Zero fields match everything.
type ExpenseFilter struct {
	Property PropertyID
	Category CategoryID
	Employee SubjectID
	From     time.Time // SpentOn >= From
	To       time.Time // SpentOn <= To
}

// ExpenseStore persists money out. Append-only.
type ExpenseStore interface {
	AddExpense(ctx context.Context, e Expense) error
	ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error)

	// FindSalaryExpense probes the structured (employee, month, Salaries)
	// key, the duplicate-payment check behind payOnce.
	FindSalaryExpense(ctx context.Context, employee SubjectID, month Month) (ExpenseID, bool, error)

	// SalaryPaidByMonth and LatestSalaryMonth expose salary payouts in
	// EntrySource shape so the reconciler runs unchanged for payroll.
	SalaryPaidByMonth(ctx context.Context, employee SubjectID, from, to Month) (map[Month]decimal.Decimal, error)
	LatestSalaryMonth(ctx context.Context, employee SubjectID) (Month, bool, error)
}

// =============================================================================
// DIRECTORY PERSISTENCE
// =============================================================================

// DirectoryStore persists shared reference records. Save is an upsert for
// every record kind; active flags flip through it.
type DirectoryStore interface {
	SaveProperty(ctx context.Context, p Property) error
	PropertyByID(ctx context.Context, id PropertyID) (Property, error)
	Properties(ctx context.Context) ([]Property, error)

	SaveTenant(ctx context.Context, t Tenant) error
	TenantByID(ctx context.Context, id SubjectID) (Tenant, error)
	Tenants(ctx context.Context) ([]Tenant, error)

	SaveEmployee(ctx context.Context, e Employee) error
	EmployeeByID(ctx context.Context, id SubjectID) (Employee, error)
	Employees(ctx context.Context) ([]Employee, error)

	SaveCategory(ctx context.Context, c ExpenseCategory) error
	CategoryByName(ctx context.Context, name string) (ExpenseCategory, error)
	Categories(ctx context.Context) ([]ExpenseCategory, error)
}

// =============================================================================
// COMPOSITE STORES
// =============================================================================

// Store is one backend implementing every persistence concern the engine
// and its domain services consume.
type Store interface {
	EntryStore
	ScheduleStore
	ExpenseStore
	DirectoryStore
}

// TxStore adds transactional composition. WithTx runs fn against a Store
// view bound to one database transaction; fn returning an error rolls the
// whole unit back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
