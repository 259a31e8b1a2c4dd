/*
reconcile.go - Due vs paid vs arrears, month by month

PURPOSE:
  Computes the standing of one subject as of a selected month: how much was
  owed cumulatively since the subject's first scheduled month, how much was
  paid, which months were missed, and how to classify the outstanding
  balance. This is the central calculation that answers "where does this
  tenant stand?"

KEY INSIGHT:
  The ledger window extends PAST the selected month, to
  max(selected, current month, latest month with any payment), so advance
  payments already on record are visible and never misclassified. Only
  months up to the selected month are scored for arrears.

THE HYBRID DISPLAY RULE:
  A subject who paid something toward the selected month sees only the
  remainder for that month (balance = due - paid, labels collapse to the
  selected month, the selected month leaves the missed count). A subject
  who paid nothing toward it sees the full cumulative debt and every missed
  month. Partial payers get "how much more for this month"; non-payers get
  the true arrears.

STATUS CLASSIFICATION (priority order):
  Partial     0 < paid(selected) < due(selected)
  Cumulative  balance > 0 and missed months > 1
  Missed      balance > 0 and missed months == 1
  On Time     otherwise

EXAMPLE:
  rec := &ledger.Reconciler{Clock: clock}
  st, err := rec.Reconcile(ctx, entries, sched, "ten_01...", march)
  // st.Balance, st.Kind, st.MissedLabels

SEE ALSO:
  - schedule.go: per-month due lookup
  - allocate.go: writes the entries this reads
  - store.go: EntrySource
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - One subject's standing as of a month (derived, never persisted)
// =============================================================================

type StatusKind string

const (
	StatusOnTime     StatusKind = "On Time"
	StatusPartial    StatusKind = "Partial"
	StatusMissed     StatusKind = "Missed"
	StatusCumulative StatusKind = "Cumulative"
)

// Status is recomputed on every query from the schedule and the entries.
// Due and Paid refer to the selected month alone; Balance follows the
// hybrid display rule above.
type Status struct {
	Subject SubjectID
	Month   Month

	Due     decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
	Settled bool

	MissedMonths int
	MissedLabels []Month // most recent first
	Kind         StatusKind
}

// Totals aggregates statuses for a dashboard row: due/paid for the selected
// month across subjects, reported balances, and the collection rate.
type Totals struct {
	Due            decimal.Decimal
	Paid           decimal.Decimal
	Balance        decimal.Decimal
	CollectionRate decimal.Decimal // percent, 1 decimal, 0 when Due is 0
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler scores subjects against their schedules. The injected Clock
// supplies the current month for window extension; nothing here reads
// system time directly.
type Reconciler struct {
	Clock Clock
}

// Reconcile computes the subject's standing as of selected.
//
// A subject with no schedule history reconciles to an all-zero, settled,
// On Time status: every month in the loop is undefined and skipped.
func (r *Reconciler) Reconcile(ctx context.Context, source EntrySource, sched Schedule, subject SubjectID, selected Month) (Status, error) {
	status := Status{
		Subject: subject,
		Month:   selected,
		Settled: true,
		Kind:    StatusOnTime,
	}

	start, ok := sched.StartMonth()
	if !ok {
		return status, nil
	}

	upper := LatestMonth(selected, CurrentMonth(r.Clock))
	latest, hasEntries, err := source.LatestEntryMonth(ctx, subject)
	if err != nil {
		return Status{}, err
	}
	if hasEntries {
		upper = LatestMonth(upper, latest)
	}

	paidByMonth, err := source.SumByMonth(ctx, subject, start, upper)
	if err != nil {
		return Status{}, err
	}

	// Score every scheduled month from start through selected.
	var (
		missed     int
		cumulative decimal.Decimal
		labels     []Month
	)
	for m := start; m.BeforeOrEqual(selected); m = m.Next() {
		due, defined := sched.ValueAt(m)
		if !defined {
			continue
		}
		remaining := due.Sub(paidByMonth[m])
		if remaining.IsPositive() {
			missed++
			cumulative = cumulative.Add(remaining)
			labels = append(labels, m)
		}
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}

	dueSelected, defined := sched.ValueAt(selected)
	paidSelected := paidByMonth[selected]
	if defined {
		status.Due = dueSelected
	}
	status.Paid = paidSelected

	partial := defined && paidSelected.IsPositive() && paidSelected.LessThan(dueSelected)
	if partial {
		status.Balance = dueSelected.Sub(paidSelected)
		status.MissedLabels = []Month{selected}
		if missed > 0 {
			missed--
		}
		status.MissedMonths = missed
		status.Kind = StatusPartial
	} else {
		status.Balance = cumulative
		status.MissedLabels = labels
		status.MissedMonths = missed
		switch {
		case cumulative.IsPositive() && missed > 1:
			status.Kind = StatusCumulative
		case cumulative.IsPositive() && missed == 1:
			status.Kind = StatusMissed
		default:
			status.Kind = StatusOnTime
		}
	}
	status.Settled = status.Balance.IsZero()

	return status, nil
}

// ReconcileAll scores each subject in order and aggregates totals. Subjects
// absent from schedules reconcile against an empty schedule.
func (r *Reconciler) ReconcileAll(ctx context.Context, source EntrySource, schedules map[SubjectID]Schedule, subjects []SubjectID, selected Month) ([]Status, Totals, error) {
	statuses := make([]Status, 0, len(subjects))
	for _, subject := range subjects {
		st, err := r.Reconcile(ctx, source, schedules[subject], subject, selected)
		if err != nil {
			return nil, Totals{}, err
		}
		statuses = append(statuses, st)
	}
	return statuses, SumTotals(statuses), nil
}

// SumTotals folds statuses into dashboard totals.
func SumTotals(statuses []Status) Totals {
	var t Totals
	for _, st := range statuses {
		t.Due = t.Due.Add(st.Due)
		t.Paid = t.Paid.Add(st.Paid)
		t.Balance = t.Balance.Add(st.Balance)
	}
	if t.Due.IsPositive() {
		t.CollectionRate = t.Paid.Div(t.Due).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return t
}
