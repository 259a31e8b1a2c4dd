/*
schedule.go - Time-effective values ("X per month, effective from M")

PURPOSE:
  One container answers "what is the scheduled value for month M?" for all
  three tables in the system: rent per tenant, salary per employee, and the
  global commission rate. An entry {effective_from, value} applies from its
  month until a later entry supersedes it.

KEY RULES:
  - At most one entry per (subject, effective_from); setting the same month
    again overwrites in place, it never duplicates.
  - History is never deleted. A change is a new entry for a future month.
  - Lookup for month M returns the value of the latest entry with
    effective_from <= M. No entry qualifies -> the value is undefined and
    callers skip the month (a subject before its first entry owes nothing,
    which is different from owing zero).
  - Retroactivity ban: changes for existing subjects must not target months
    before the current month. Enforced here via ValidateScheduleChange,
    invoked by the domain services; onboarding/backfill legitimately writes
    past months and skips the check.

EXAMPLE:
  sched := ledger.NewSchedule([]ledger.ScheduleEntry{
      {EffectiveFrom: jan, Value: dec("500000")},
      {EffectiveFrom: jul, Value: dec("550000")},
  })
  sched.ValueAt(mar)  // 500000, true
  sched.ValueAt(dec)  // 0, false  (before first entry)

SEE ALSO:
  - reconcile.go: consumes ValueAt per month
  - allocate.go: recomputes due via ValueAt for advance months
  - commission.go: RateTable specialization
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE ENTRY
// =============================================================================

// ScheduleEntry is one row of a time-effective table.
type ScheduleEntry struct {
	Subject       SubjectID
	Kind          ScheduleKind
	EffectiveFrom Month
	Value         decimal.Decimal
	CreatedAt     time.Time
}

// =============================================================================
// SCHEDULE - One subject's ordered history
// =============================================================================

// Schedule holds one subject's entries ordered by effective month. The zero
// value is an empty schedule (every lookup undefined).
type Schedule struct {
	entries []ScheduleEntry
}

// NewSchedule builds a schedule from entries in any order. Later duplicates
// of the same effective month win, mirroring the overwrite-in-place rule.
func NewSchedule(entries []ScheduleEntry) Schedule {
	s := Schedule{}
	for _, e := range entries {
		s.Set(e)
	}
	return s
}

// Set inserts the entry, overwriting any existing entry for the same
// effective month.
func (s *Schedule) Set(entry ScheduleEntry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].EffectiveFrom.AfterOrEqual(entry.EffectiveFrom)
	})
	if i < len(s.entries) && s.entries[i].EffectiveFrom.Equal(entry.EffectiveFrom) {
		s.entries[i] = entry
		return
	}
	s.entries = append(s.entries, ScheduleEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry
}

// ValueAt returns the value of the latest entry with effective_from <= m.
// ok is false when the month predates all history.
func (s Schedule) ValueAt(m Month) (decimal.Decimal, bool) {
	// First index with EffectiveFrom > m; the entry before it governs m.
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].EffectiveFrom.After(m)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return s.entries[i-1].Value, true
}

// StartMonth is the subject's first effective month, the start of every
// reconciliation and allocation window.
func (s Schedule) StartMonth() (Month, bool) {
	if len(s.entries) == 0 {
		return Month{}, false
	}
	return s.entries[0].EffectiveFrom, true
}

func (s Schedule) IsEmpty() bool { return len(s.entries) == 0 }
func (s Schedule) Len() int      { return len(s.entries) }

// Entries returns a copy of the ordered history; callers cannot corrupt
// the container.
func (s Schedule) Entries() []ScheduleEntry {
	out := make([]ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// =============================================================================
// CHANGE VALIDATION - The retroactivity ban
// =============================================================================

// ValidateScheduleChange rejects non-positive values and, for existing
// subjects, effective months earlier than the current month. Callers
// onboarding a new subject (no history yet) skip this and write the start
// month directly, past or not.
func ValidateScheduleChange(kind ScheduleKind, subject SubjectID, effectiveFrom Month, value decimal.Decimal, current Month) error {
	if !value.IsPositive() {
		return NewValidationError("value", "scheduled %s must be positive, got %v", kind, value)
	}
	if effectiveFrom.Before(current) {
		return &RetroactiveChangeError{
			Subject:       subject,
			Kind:          kind,
			EffectiveFrom: effectiveFrom,
			CurrentMonth:  current,
		}
	}
	return nil
}
