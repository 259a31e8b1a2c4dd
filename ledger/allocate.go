/*
allocate.go - Lump-sum payment splitting, oldest unpaid month first

PURPOSE:
  Takes one incoming payment and splits it into per-month entries: first the
  oldest month still owing anything, then forward through the window, then
  overflow into future (advance) months. A tenant handing over three months
  of rent in one envelope becomes three entries under one receipt.

KEY RULES:
  - Chronological fill: months are considered oldest first; each month
    absorbs min(remaining due, amount left).
  - Live schedule: every month's due (including advance months) is
    recomputed via the schedule at planning time, never assumed equal to the
    last known due. A rent change effective July changes what July absorbs.
  - Months already paid ahead absorb only their remainder; fully covered
    months are skipped.
  - Non-positive amounts plan to nothing (the caller validates before
    invoking; the planner stays a no-op, not an error).
  - Planning is pure; persistence happens when the caller commits the plan's
    entries atomically (all or none) inside a store transaction.

EXAMPLE:
  plan, err := alloc.Plan("ten_01...", sched, paidByMonth, dec("1500000"), july)
  entries := plan.ToEntries(recordedOn, ledger.NewID(ledger.PrefixReceipt))
  // caller: store.WithTx(func(s ledger.Store) error { return s.AppendEntries(ctx, entries) })

SEE ALSO:
  - reconcile.go: reads what this writes
  - commission.go: fee on the collected amount, same transaction
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// maxAdvanceScan bounds the search for future months that can absorb a
// remainder. Scheduled values are validated positive, so the cap only
// trips on pathological state.
const maxAdvanceScan = 1200

// =============================================================================
// ALLOCATION PLAN
// =============================================================================

// MonthAllocation is one month's share of a lump payment.
type MonthAllocation struct {
	Month   Month
	Amount  decimal.Decimal
	Advance bool // beyond the requested up-to month
}

// Allocation is the computed split of one payment. Collected equals
// Requested whenever planning succeeds (conservation of funds).
type Allocation struct {
	Subject   SubjectID
	Requested decimal.Decimal
	Collected decimal.Decimal
	UpToMonth Month
	Splits    []MonthAllocation
}

// ToEntries materializes the plan as ledger entries sharing one receipt
// reference. CreatedAt is left zero; stores stamp it on write.
func (a *Allocation) ToEntries(recordedOn time.Time, receiptRef string) []Entry {
	entries := make([]Entry, 0, len(a.Splits))
	for _, split := range a.Splits {
		entries = append(entries, Entry{
			ID:         NewEntryID(),
			Subject:    a.Subject,
			Amount:     split.Amount,
			ForMonth:   split.Month,
			RecordedOn: recordedOn,
			ReceiptRef: receiptRef,
		})
	}
	return entries
}

// =============================================================================
// ALLOCATOR - Pure planner
// =============================================================================

// Allocator computes payment splits. It holds no state and performs no I/O;
// identical inputs always produce identical plans.
type Allocator struct{}

// Plan splits amount across the subject's months. paidByMonth must cover
// every month that already has payments, including months paid ahead;
// otherwise an advance month could be double-filled.
func (al *Allocator) Plan(subject SubjectID, sched Schedule, paidByMonth map[Month]decimal.Decimal, amount decimal.Decimal, upTo Month) (*Allocation, error) {
	plan := &Allocation{
		Subject:   subject,
		Requested: amount,
		UpToMonth: upTo,
	}
	if !amount.IsPositive() {
		return plan, nil
	}

	start, ok := sched.StartMonth()
	if !ok {
		return nil, &AllocationError{
			Subject:  subject,
			Amount:   amount,
			Unplaced: amount,
			Reason:   "subject has no schedule history",
		}
	}

	left := amount

	// Pass 1: oldest unpaid month first, through the requested window.
	for m := start; m.BeforeOrEqual(upTo) && left.IsPositive(); m = m.Next() {
		left = al.fill(plan, sched, paidByMonth, m, left, false)
	}

	// Pass 2: overflow into consecutive future months. Due is recomputed per
	// month via the live schedule; months paid ahead absorb their remainder.
	next := upTo.Next()
	for scanned := 0; left.IsPositive() && scanned < maxAdvanceScan; scanned++ {
		left = al.fill(plan, sched, paidByMonth, next, left, true)
		next = next.Next()
	}

	if left.IsPositive() {
		return nil, &AllocationError{
			Subject:  subject,
			Amount:   amount,
			Unplaced: left,
			Reason:   "no future month can absorb the remainder",
		}
	}

	plan.Collected = amount
	return plan, nil
}

// fill allocates into one month and returns what is left.
func (al *Allocator) fill(plan *Allocation, sched Schedule, paidByMonth map[Month]decimal.Decimal, m Month, left decimal.Decimal, advance bool) decimal.Decimal {
	due, defined := sched.ValueAt(m)
	if !defined {
		return left
	}
	remaining := due.Sub(paidByMonth[m])
	if !remaining.IsPositive() {
		return left
	}
	take := remaining
	if left.LessThan(take) {
		take = left
	}
	plan.Splits = append(plan.Splits, MonthAllocation{Month: m, Amount: take, Advance: advance})
	return left.Sub(take)
}
