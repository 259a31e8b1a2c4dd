/*
spec_test.go - Specification tests for the property-ledger engine

PURPOSE:
  These tests serve as EXECUTABLE SPECIFICATIONS of the engine design.
  Each test documents one guaranteed behavior and validates that the
  implementation conforms to it.

ORGANIZATION:
  1. Schedule lookups - latest-before semantics, no retroactive drift
  2. Allocation - conservation of funds, oldest-first order, determinism
  3. Reconciliation - the hybrid display rule, arrears classification
  4. Commission - exact 2-decimal fee rounding
  5. Correctness guarantees - balances never negative, settled iff zero

READING THESE TESTS:
  Each test has a descriptive name stating the behavior and GIVEN/WHEN/THEN
  comments explaining the scenario. They are intentionally verbose for
  documentation purposes.
*/
package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/ledger/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func month(year int, m time.Month) ledger.Month {
	return ledger.NewMonth(year, m)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(year int, m time.Month) ledger.Clock {
	return ledger.FixedClock{At: time.Date(year, m, 15, 0, 0, 0, 0, time.UTC)}
}

func rentEntry(subject ledger.SubjectID, from ledger.Month, value string) ledger.ScheduleEntry {
	return ledger.ScheduleEntry{
		Subject:       subject,
		Kind:          ledger.ScheduleRent,
		EffectiveFrom: from,
		Value:         dec(value),
	}
}

func payEntry(subject ledger.SubjectID, forMonth ledger.Month, amount string) ledger.Entry {
	return ledger.Entry{
		ID:         ledger.NewEntryID(),
		Subject:    subject,
		Amount:     dec(amount),
		ForMonth:   forMonth,
		RecordedOn: forMonth.Time(),
	}
}

// =============================================================================
// 1. SCHEDULE LOOKUPS
// =============================================================================

// TestScheduleLaterChangeNeverAltersEarlierMonths pins the core
// time-effective guarantee: adding an entry for M+2 cannot change what was
// owed at M.
func TestScheduleLaterChangeNeverAltersEarlierMonths(t *testing.T) {
	// GIVEN a tenant whose rent is 500000 effective January
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "500000"),
	})

	before, ok := sched.ValueAt(month(2025, time.February))
	if !ok || !before.Equal(dec("500000")) {
		t.Fatalf("February rent before change = %v (ok=%v), want 500000", before, ok)
	}

	// WHEN the rent changes to 550000 effective April
	sched.Set(rentEntry("ten-1", month(2025, time.April), "550000"))

	// THEN February still owes the original amount and April owes the new one
	after, _ := sched.ValueAt(month(2025, time.February))
	if !after.Equal(dec("500000")) {
		t.Errorf("February rent after change = %v, want unchanged 500000", after)
	}
	april, _ := sched.ValueAt(month(2025, time.April))
	if !april.Equal(dec("550000")) {
		t.Errorf("April rent = %v, want 550000", april)
	}
}

// TestScheduleMonthBeforeHistoryIsUndefined: a month before the first entry
// is "not yet a tenant", which is different from owing zero.
func TestScheduleMonthBeforeHistoryIsUndefined(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.March), "500000"),
	})

	if _, ok := sched.ValueAt(month(2025, time.February)); ok {
		t.Error("month before first schedule entry must be undefined, got a defined value")
	}
}

// TestScheduleRetroactiveChangeRejected: changing a schedule for a month
// before the current month fails validation and leaves history unchanged.
func TestScheduleRetroactiveChangeRejected(t *testing.T) {
	// GIVEN a current month of June
	current := month(2025, time.June)

	// WHEN a change targets March
	err := ledger.ValidateScheduleChange(
		ledger.ScheduleRent, "ten-1", month(2025, time.March), dec("600000"), current)

	// THEN it is a validation failure carrying the retroactivity sentinel
	if err == nil {
		t.Fatal("expected retroactive change to be rejected")
	}
	if !ledger.IsClientError(err) {
		t.Errorf("retroactive rejection should classify as a client error, got %v", err)
	}
}

// =============================================================================
// 2. ALLOCATION
// =============================================================================

// TestAllocationConservationOfFunds: the per-month splits of one allocation
// sum exactly to the input amount. No leakage, no double-allocation.
func TestAllocationConservationOfFunds(t *testing.T) {
	// GIVEN three months due at 1000 each, nothing paid
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})
	al := &ledger.Allocator{}

	// WHEN 2500 arrives, allocated through March
	plan, err := al.Plan("ten-1", sched, nil, dec("2500"), month(2025, time.March))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// THEN the splits sum to 2500 and fill oldest-first
	total := decimal.Zero
	for _, s := range plan.Splits {
		total = total.Add(s.Amount)
	}
	if !total.Equal(dec("2500")) {
		t.Errorf("splits sum = %v, want 2500", total)
	}
	if len(plan.Splits) != 3 {
		t.Fatalf("split count = %d, want 3", len(plan.Splits))
	}
	if !plan.Splits[0].Month.Equal(month(2025, time.January)) {
		t.Errorf("first split month = %v, want January (oldest first)", plan.Splits[0].Month)
	}
	if !plan.Splits[2].Amount.Equal(dec("500")) {
		t.Errorf("March split = %v, want the 500 remainder", plan.Splits[2].Amount)
	}
	if !plan.Collected.Equal(dec("2500")) {
		t.Errorf("Collected = %v, want 2500", plan.Collected)
	}
}

// TestAllocationIsDeterministic: identical due/paid state and amount always
// produce the identical per-month split.
func TestAllocationIsDeterministic(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
		rentEntry("ten-1", month(2025, time.March), "1200"),
	})
	paid := map[ledger.Month]decimal.Decimal{
		month(2025, time.January): dec("400"),
	}
	al := &ledger.Allocator{}

	first, err := al.Plan("ten-1", sched, paid, dec("1800"), month(2025, time.March))
	if err != nil {
		t.Fatalf("first Plan failed: %v", err)
	}
	second, err := al.Plan("ten-1", sched, paid, dec("1800"), month(2025, time.March))
	if err != nil {
		t.Fatalf("second Plan failed: %v", err)
	}

	if len(first.Splits) != len(second.Splits) {
		t.Fatalf("split counts differ: %d vs %d", len(first.Splits), len(second.Splits))
	}
	for i := range first.Splits {
		if !first.Splits[i].Month.Equal(second.Splits[i].Month) ||
			!first.Splits[i].Amount.Equal(second.Splits[i].Amount) {
			t.Errorf("split %d differs: %+v vs %+v", i, first.Splits[i], second.Splits[i])
		}
	}
}

// TestAllocationOverflowBecomesAdvance: funds beyond the requested window
// spill into consecutive future months, each recomputed from the live
// schedule.
func TestAllocationOverflowBecomesAdvance(t *testing.T) {
	// GIVEN rent that rises to 1500 effective March
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
		rentEntry("ten-1", month(2025, time.March), "1500"),
	})
	al := &ledger.Allocator{}

	// WHEN 3500 is allocated up to February only
	plan, err := al.Plan("ten-1", sched, nil, dec("3500"), month(2025, time.February))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// THEN Jan and Feb absorb 1000 each and March absorbs the 1500 advance
	// at its OWN scheduled amount, not the last known 1000
	if len(plan.Splits) != 3 {
		t.Fatalf("split count = %d, want 3", len(plan.Splits))
	}
	advance := plan.Splits[2]
	if !advance.Advance {
		t.Error("March split should be flagged as an advance")
	}
	if !advance.Amount.Equal(dec("1500")) {
		t.Errorf("advance amount = %v, want 1500 from the live schedule", advance.Amount)
	}
}

// =============================================================================
// 3. RECONCILIATION - THE HYBRID DISPLAY RULE
// =============================================================================

// TestPartialPaymentShowsOnlyCurrentMonthRemainder is the partial half of
// the hybrid rule: due=1000, paid=400 this month with 2 prior unpaid months
// reports Partial / 600 / [selected month only], never the 2600 total.
func TestPartialPaymentShowsOnlyCurrentMonthRemainder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// GIVEN 1000/month since January, nothing paid for Jan+Feb,
	// 400 paid toward March
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})
	if err := mem.AppendEntries(ctx, []ledger.Entry{
		payEntry("ten-1", month(2025, time.March), "400"),
	}); err != nil {
		t.Fatalf("AppendEntries failed: %v", err)
	}

	rec := &ledger.Reconciler{Clock: fixedClock(2025, time.March)}

	// WHEN March is reconciled
	st, err := rec.Reconcile(ctx, mem, sched, "ten-1", month(2025, time.March))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// THEN the status is Partial with only the March remainder
	if st.Kind != ledger.StatusPartial {
		t.Errorf("Kind = %q, want Partial", st.Kind)
	}
	if !st.Balance.Equal(dec("600")) {
		t.Errorf("Balance = %v, want 600 (March remainder, not 2600 arrears)", st.Balance)
	}
	if len(st.MissedLabels) != 1 || !st.MissedLabels[0].Equal(month(2025, time.March)) {
		t.Errorf("MissedLabels = %v, want [March 2025] only", st.MissedLabels)
	}
}

// TestFullArrearsShowsCumulativeDebt is the other half of the hybrid rule:
// nothing paid toward the selected month means the true cumulative debt and
// every missed month, most recent first.
func TestFullArrearsShowsCumulativeDebt(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// GIVEN 1000/month for Jan..Mar with zero payments
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})
	rec := &ledger.Reconciler{Clock: fixedClock(2025, time.March)}

	// WHEN March is reconciled
	st, err := rec.Reconcile(ctx, mem, sched, "ten-1", month(2025, time.March))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// THEN the full 3000 arrears and all 3 months are reported
	if st.Kind != ledger.StatusCumulative {
		t.Errorf("Kind = %q, want Cumulative", st.Kind)
	}
	if !st.Balance.Equal(dec("3000")) {
		t.Errorf("Balance = %v, want 3000", st.Balance)
	}
	want := []ledger.Month{
		month(2025, time.March),
		month(2025, time.February),
		month(2025, time.January),
	}
	if len(st.MissedLabels) != len(want) {
		t.Fatalf("MissedLabels = %v, want 3 months most recent first", st.MissedLabels)
	}
	for i := range want {
		if !st.MissedLabels[i].Equal(want[i]) {
			t.Errorf("MissedLabels[%d] = %v, want %v", i, st.MissedLabels[i], want[i])
		}
	}
}

// TestBalanceNeverNegativeAndSettledIffZero: overpaying a month yields a
// zero balance and a settled On Time status, never a negative balance.
func TestBalanceNeverNegativeAndSettledIffZero(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})
	// Paid 1000 for January and 1000 ahead for February.
	if err := mem.AppendEntries(ctx, []ledger.Entry{
		payEntry("ten-1", month(2025, time.January), "1000"),
		payEntry("ten-1", month(2025, time.February), "1000"),
	}); err != nil {
		t.Fatalf("AppendEntries failed: %v", err)
	}

	rec := &ledger.Reconciler{Clock: fixedClock(2025, time.January)}
	st, err := rec.Reconcile(ctx, mem, sched, "ten-1", month(2025, time.January))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if st.Balance.IsNegative() {
		t.Errorf("Balance = %v, must never be negative", st.Balance)
	}
	if !st.Settled {
		t.Error("zero balance must report settled")
	}
	if st.Kind != ledger.StatusOnTime {
		t.Errorf("Kind = %q, want On Time", st.Kind)
	}
}

// =============================================================================
// 4. COMMISSION
// =============================================================================

// TestCommissionExactRounding: collected=100000 at 10.00% is exactly
// 10000.00 with 2-decimal rounding.
func TestCommissionExactRounding(t *testing.T) {
	fee := ledger.CommissionFee(dec("100000"), dec("10.00"))
	if !fee.Equal(dec("10000.00")) {
		t.Errorf("fee = %v, want 10000.00", fee)
	}

	// Half-away-from-zero at the second decimal.
	fee = ledger.CommissionFee(dec("333.33"), dec("7.5"))
	if !fee.Equal(dec("25.00")) {
		t.Errorf("fee = %v, want 25.00", fee)
	}
}

// TestCommissionUnsetRateIsZero: the rate table defaults to 0% before its
// first entry, so early collections carry no fee.
func TestCommissionUnsetRateIsZero(t *testing.T) {
	table := ledger.NewRateTable(ledger.NewSchedule([]ledger.ScheduleEntry{
		{
			Subject:       ledger.CommissionSubject,
			Kind:          ledger.ScheduleCommission,
			EffectiveFrom: month(2025, time.June),
			Value:         dec("10"),
		},
	}))

	if !table.RateAt(month(2025, time.March)).IsZero() {
		t.Error("rate before the first entry must default to 0")
	}
	fee := table.FeeOn(dec("100000"), time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	if !fee.IsZero() {
		t.Errorf("fee before first rate entry = %v, want 0", fee)
	}
}
