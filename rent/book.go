/*
Package rent is the tenant-facing domain service over the ledger engine.

PURPOSE:
  Wraps the generic ledger engine with tenant semantics: onboarding a tenant
  seeds the first rent schedule entry, rent changes go through the
  retroactivity ban, a lump payment becomes an atomic batch of per-month
  entries plus the commission fee expense, and statuses come straight from
  the reconciler.

KEY INVARIANTS:
  - Onboarding may write past effective months (historical backfill); rent
    CHANGES for an existing tenant may not target months before the current
    month.
  - One payment = one storage transaction: every allocated entry and the
    commission fee commit together or not at all.
  - The commission rate is a global time-effective table; an unset rate
    means no fee, not an error.

SEE ALSO:
  - ledger: schedule, allocator, reconciler, commission primitives
  - payroll: the employee-side counterpart
*/
package rent

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
)

// =============================================================================
// BOOK - The rent domain service
// =============================================================================

// Book coordinates tenant records, rent schedules, payments, and statuses.
type Book struct {
	store ledger.TxStore
	clock ledger.Clock

	reconciler *ledger.Reconciler
	allocator  *ledger.Allocator
}

func NewBook(store ledger.TxStore, clock ledger.Clock) *Book {
	return &Book{
		store:      store,
		clock:      clock,
		reconciler: &ledger.Reconciler{Clock: clock},
		allocator:  &ledger.Allocator{},
	}
}

// =============================================================================
// TENANT DIRECTORY
// =============================================================================

// OnboardInput describes a new tenant and their opening rent schedule.
type OnboardInput struct {
	Property   ledger.PropertyID
	Name       string
	Phone      string
	StartMonth ledger.Month
	Rent       decimal.Decimal
}

// Onboard creates the tenant and seeds the first rent schedule entry. The
// start month may lie in the past: onboarding is the backfill path and the
// retroactivity ban does not apply to a subject with no history yet.
func (b *Book) Onboard(ctx context.Context, in OnboardInput) (ledger.Tenant, error) {
	if in.Name == "" {
		return ledger.Tenant{}, ledger.NewValidationError("name", "tenant name is required")
	}
	if !in.Rent.IsPositive() {
		return ledger.Tenant{}, ledger.NewValidationError("rent", "opening rent must be positive, got %v", in.Rent)
	}
	if in.StartMonth.IsZero() {
		return ledger.Tenant{}, ledger.NewValidationError("start_month", "start month is required")
	}
	if _, err := b.store.PropertyByID(ctx, in.Property); err != nil {
		return ledger.Tenant{}, err
	}

	tenant := ledger.Tenant{
		ID:       ledger.SubjectID(ledger.NewID(ledger.PrefixTenant)),
		Property: in.Property,
		Name:     in.Name,
		Phone:    in.Phone,
		Active:   true,
	}

	err := b.store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveTenant(ctx, tenant); err != nil {
			return err
		}
		return s.SetScheduleValue(ctx, ledger.ScheduleEntry{
			Subject:       tenant.ID,
			Kind:          ledger.ScheduleRent,
			EffectiveFrom: in.StartMonth,
			Value:         in.Rent,
		})
	})
	if err != nil {
		return ledger.Tenant{}, err
	}
	return tenant, nil
}

// Tenant returns one tenant record.
func (b *Book) Tenant(ctx context.Context, id ledger.SubjectID) (ledger.Tenant, error) {
	return b.store.TenantByID(ctx, id)
}

// Tenants lists tenant records, optionally active only.
func (b *Book) Tenants(ctx context.Context, activeOnly bool) ([]ledger.Tenant, error) {
	tenants, err := b.store.Tenants(ctx)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		tenants = lo.Filter(tenants, func(t ledger.Tenant, _ int) bool { return t.Active })
	}
	return tenants, nil
}

// Deactivate marks a tenant inactive. History stays; the tenant simply
// drops out of active status listings.
func (b *Book) Deactivate(ctx context.Context, id ledger.SubjectID) error {
	tenant, err := b.store.TenantByID(ctx, id)
	if err != nil {
		return err
	}
	tenant.Active = false
	return b.store.SaveTenant(ctx, tenant)
}

// =============================================================================
// RENT SCHEDULES
// =============================================================================

// ChangeRent sets a new rent amount effective from the given month. Rejected
// when the month precedes the current month (retroactivity ban).
func (b *Book) ChangeRent(ctx context.Context, id ledger.SubjectID, effectiveFrom ledger.Month, amount decimal.Decimal) error {
	tenant, err := b.store.TenantByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ledger.ValidateScheduleChange(
		ledger.ScheduleRent, tenant.ID, effectiveFrom, amount, ledger.CurrentMonth(b.clock),
	); err != nil {
		return err
	}
	return b.store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject:       tenant.ID,
		Kind:          ledger.ScheduleRent,
		EffectiveFrom: effectiveFrom,
		Value:         amount,
	})
}

// RentAt returns the tenant's scheduled rent for a month; ok is false when
// the month predates the tenant's schedule.
func (b *Book) RentAt(ctx context.Context, id ledger.SubjectID, m ledger.Month) (decimal.Decimal, bool, error) {
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleRent, id)
	if err != nil {
		return decimal.Zero, false, err
	}
	v, ok := sched.ValueAt(m)
	return v, ok, nil
}

// RentHistory returns the tenant's full ordered rent schedule.
func (b *Book) RentHistory(ctx context.Context, id ledger.SubjectID) ([]ledger.ScheduleEntry, error) {
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleRent, id)
	if err != nil {
		return nil, err
	}
	return sched.Entries(), nil
}

// =============================================================================
// COMMISSION RATES
// =============================================================================

// SetCommissionRate records a new global commission percentage effective
// from the given month. The first entry may backfill a past month; later
// changes obey the retroactivity ban like any schedule.
func (b *Book) SetCommissionRate(ctx context.Context, effectiveFrom ledger.Month, percentage decimal.Decimal) error {
	if !percentage.IsPositive() {
		return ledger.NewValidationError("percentage", "commission rate must be positive, got %v", percentage)
	}
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleCommission, ledger.CommissionSubject)
	if err != nil {
		return err
	}
	if !sched.IsEmpty() {
		if err := ledger.ValidateScheduleChange(
			ledger.ScheduleCommission, ledger.CommissionSubject, effectiveFrom, percentage, ledger.CurrentMonth(b.clock),
		); err != nil {
			return err
		}
	}
	return b.store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject:       ledger.CommissionSubject,
		Kind:          ledger.ScheduleCommission,
		EffectiveFrom: effectiveFrom,
		Value:         percentage,
	})
}

// CommissionRateAt returns the commission percentage effective for a month,
// 0 when unset.
func (b *Book) CommissionRateAt(ctx context.Context, m ledger.Month) (decimal.Decimal, error) {
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleCommission, ledger.CommissionSubject)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.NewRateTable(sched).RateAt(m), nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Receipt is the outcome of one recorded payment: the entries it split
// into, sharing one reference, plus the commission fee it triggered.
type Receipt struct {
	Ref     string
	Entries []ledger.Entry
	Fee     decimal.Decimal
	HasFee  bool
}

// PreviewPayment plans the per-month split without writing anything - a
// dry run of RecordPayment against current state.
func (b *Book) PreviewPayment(ctx context.Context, id ledger.SubjectID, amount decimal.Decimal, upTo ledger.Month) (*ledger.Allocation, error) {
	if !amount.IsPositive() {
		return nil, ledger.NewValidationError("amount", "payment amount must be positive, got %v", amount)
	}
	if _, err := b.store.TenantByID(ctx, id); err != nil {
		return nil, err
	}
	sched, paid, err := b.allocationState(ctx, b.store, id, upTo)
	if err != nil {
		return nil, err
	}
	return b.allocator.Plan(id, sched, paid, amount, upTo)
}

// RecordPayment allocates a lump payment across the tenant's months, oldest
// unpaid first, and records the commission fee on the collected amount. The
// whole batch commits atomically.
func (b *Book) RecordPayment(ctx context.Context, id ledger.SubjectID, amount decimal.Decimal, upTo ledger.Month, recordedOn time.Time) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ledger.NewValidationError("amount", "payment amount must be positive, got %v", amount)
	}
	if upTo.IsZero() {
		return Receipt{}, ledger.NewValidationError("up_to_month", "allocation month is required")
	}
	tenant, err := b.store.TenantByID(ctx, id)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Ref: ledger.NewID(ledger.PrefixReceipt)}

	err = b.store.WithTx(ctx, func(s ledger.Store) error {
		sched, paid, err := b.allocationState(ctx, s, id, upTo)
		if err != nil {
			return err
		}

		plan, err := b.allocator.Plan(id, sched, paid, amount, upTo)
		if err != nil {
			return err
		}
		receipt.Entries = plan.ToEntries(recordedOn, receipt.Ref)
		if err := s.AppendEntries(ctx, receipt.Entries); err != nil {
			return err
		}

		rateSched, err := s.ScheduleFor(ctx, ledger.ScheduleCommission, ledger.CommissionSubject)
		if err != nil {
			return err
		}
		fee := ledger.NewRateTable(rateSched).FeeOn(plan.Collected, recordedOn)
		if !fee.IsPositive() {
			return nil
		}

		category, err := s.CategoryByName(ctx, ledger.CategoryCommission)
		if err != nil {
			return err
		}
		receipt.Fee = fee
		receipt.HasFee = true
		return s.AddExpense(ctx, ledger.Expense{
			ID:          ledger.NewExpenseID(),
			Property:    tenant.Property,
			Category:    category.ID,
			Amount:      fee,
			SpentOn:     recordedOn,
			ForMonth:    ledger.MonthOf(recordedOn),
			Description: fmt.Sprintf("Commission on rent collected from %s", tenant.Name),
		})
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Payments lists the tenant's ledger entries, newest month first. Entries
// from one lump payment share a receipt reference.
func (b *Book) Payments(ctx context.Context, id ledger.SubjectID) ([]ledger.Entry, error) {
	if _, err := b.store.TenantByID(ctx, id); err != nil {
		return nil, err
	}
	return b.store.EntriesBySubject(ctx, id)
}

// allocationState loads the schedule and the paid-by-month map the planner
// needs. The paid window extends to the latest month carrying any payment so
// months already paid ahead are never double-filled.
func (b *Book) allocationState(ctx context.Context, s ledger.Store, id ledger.SubjectID, upTo ledger.Month) (ledger.Schedule, map[ledger.Month]decimal.Decimal, error) {
	sched, err := s.ScheduleFor(ctx, ledger.ScheduleRent, id)
	if err != nil {
		return ledger.Schedule{}, nil, err
	}
	start, ok := sched.StartMonth()
	if !ok {
		return ledger.Schedule{}, nil, &ledger.NotYetActiveError{
			Subject: id,
			Kind:    ledger.ScheduleRent,
			Month:   upTo,
		}
	}

	upper := ledger.LatestMonth(upTo, ledger.CurrentMonth(b.clock))
	latest, has, err := s.LatestEntryMonth(ctx, id)
	if err != nil {
		return ledger.Schedule{}, nil, err
	}
	if has {
		upper = ledger.LatestMonth(upper, latest)
	}

	paid, err := s.SumByMonth(ctx, id, start, upper)
	if err != nil {
		return ledger.Schedule{}, nil, err
	}
	return sched, paid, nil
}

// =============================================================================
// STATUSES
// =============================================================================

// TenantStatus pairs a tenant record with their reconciled standing.
type TenantStatus struct {
	Tenant ledger.Tenant
	Status ledger.Status
}

// Status reconciles one tenant as of the selected month.
func (b *Book) Status(ctx context.Context, id ledger.SubjectID, asOf ledger.Month) (ledger.Status, error) {
	if _, err := b.store.TenantByID(ctx, id); err != nil {
		return ledger.Status{}, err
	}
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleRent, id)
	if err != nil {
		return ledger.Status{}, err
	}
	return b.reconciler.Reconcile(ctx, b.store, sched, id, asOf)
}

// Statuses reconciles every active tenant as of the selected month and
// aggregates dashboard totals.
func (b *Book) Statuses(ctx context.Context, asOf ledger.Month) ([]TenantStatus, ledger.Totals, error) {
	tenants, err := b.Tenants(ctx, true)
	if err != nil {
		return nil, ledger.Totals{}, err
	}

	schedules := make(map[ledger.SubjectID]ledger.Schedule, len(tenants))
	subjects := make([]ledger.SubjectID, 0, len(tenants))
	for _, t := range tenants {
		sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleRent, t.ID)
		if err != nil {
			return nil, ledger.Totals{}, err
		}
		schedules[t.ID] = sched
		subjects = append(subjects, t.ID)
	}

	statuses, totals, err := b.reconciler.ReconcileAll(ctx, b.store, schedules, subjects, asOf)
	if err != nil {
		return nil, ledger.Totals{}, err
	}

	paired := make([]TenantStatus, len(tenants))
	for i, t := range tenants {
		paired[i] = TenantStatus{Tenant: t, Status: statuses[i]}
	}
	return paired, totals, nil
}
