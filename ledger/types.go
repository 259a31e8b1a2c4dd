/*
Package ledger provides the core property-ledger engine.

PURPOSE:
  This package contains the domain-agnostic types and algorithms for
  month-granular money tracking: time-effective schedules (what is owed per
  month), append-only payment entries (what was paid), reconciliation
  (due vs paid vs arrears), lump-sum allocation, and commission fees.
  Tenants and employees are both just subjects to this engine.

KEY CONCEPTS IN THIS FILE (types.go):
  - SubjectID / PropertyID / CategoryID: type-safe identifiers
  - Entry: an immutable payment record for (subject, month)
  - Expense: money out (operating costs, commission fees, salary payouts)
  - ScheduleKind: which time-effective table a value belongs to

DESIGN PRINCIPLES:
  1. Immutability: entries and expenses are appended, never mutated
  2. Precision: decimal.Decimal everywhere, no floats in money paths
  3. Month granularity: all keys and comparisons use Month, never dates
  4. Determinism: the current month comes from an injected Clock

SEE ALSO:
  - schedule.go: time-effective value container
  - reconcile.go: due/paid/arrears computation
  - allocate.go: oldest-first lump-sum splitting
  - store.go: persistence interfaces
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SubjectID string
type PropertyID string
type CategoryID string
type EntryID string
type ExpenseID string

// ID prefixes keep identifiers self-describing in logs and API payloads.
const (
	PrefixProperty = "prop"
	PrefixTenant   = "ten"
	PrefixEmployee = "emp"
	PrefixCategory = "cat"
	PrefixEntry    = "pay"
	PrefixExpense  = "exp"
	PrefixReceipt  = "rcpt"
)

// NewID returns a prefixed ULID, e.g. "pay_01J8ZQ3F9V...".
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, ulid.Make().String())
}

func NewEntryID() EntryID     { return EntryID(NewID(PrefixEntry)) }
func NewExpenseID() ExpenseID { return ExpenseID(NewID(PrefixExpense)) }

// =============================================================================
// SCHEDULE KINDS - The three time-effective tables
// =============================================================================

type ScheduleKind string

const (
	ScheduleRent       ScheduleKind = "rent"
	ScheduleSalary     ScheduleKind = "salary"
	ScheduleCommission ScheduleKind = "commission"
)

// CommissionSubject is the single shared subject of the global
// commission-rate table.
const CommissionSubject SubjectID = "global"

// =============================================================================
// ENTRY - Atomic payment record (money in)
// =============================================================================

// Entry is one payment applied to one month. A lump payment that covers
// several months becomes several entries sharing a ReceiptRef. Entries
// accumulate for a (subject, month): partial and split payments are multiple
// rows, never updates.
type Entry struct {
	ID         EntryID
	Subject    SubjectID
	Amount     decimal.Decimal
	ForMonth   Month
	RecordedOn time.Time
	ReceiptRef string
	CreatedAt  time.Time
}

// =============================================================================
// EXPENSE - Money out
// =============================================================================

// Reserved expense categories provisioned by every store. Commission fees
// and salary payouts land here; the names are contract, not convention.
const (
	CategoryCommission = "Commission"
	CategorySalaries   = "Salaries"
)

// Expense records money leaving a property: operating costs, commission
// fees on collected rent, and salary payouts. Salary expenses carry
// (Employee, ForMonth) and double as the payroll ledger; their uniqueness
// per (employee, month, category) is a hard storage constraint.
type Expense struct {
	ID          ExpenseID
	Property    PropertyID
	Category    CategoryID
	Amount      decimal.Decimal
	SpentOn     time.Time
	ForMonth    Month     // zero when the expense is not month-bound
	Employee    SubjectID // set only for salary payouts
	Description string
	Recurring   bool
	CreatedAt   time.Time
}

// =============================================================================
// DIRECTORY RECORDS - Shared reference data
// =============================================================================

type Property struct {
	ID        PropertyID
	Name      string
	Location  string
	Notes     string
	CreatedAt time.Time
}

// Tenant is a rent subject. The start month lives in the rent schedule, not
// here: onboarding writes the first schedule entry and everything downstream
// derives the window from it.
type Tenant struct {
	ID        SubjectID
	Property  PropertyID
	Name      string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

// Employee is a salary subject, paid through single-shot salary expenses.
type Employee struct {
	ID        SubjectID
	Property  PropertyID
	Name      string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type ExpenseCategory struct {
	ID          CategoryID
	Name        string
	Description string
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses s, returning zero on malformed input. Intended for
// literals in tests and demo datasets.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
