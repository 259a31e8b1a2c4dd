/*
Package payroll is the employee-facing specialization of the ledger engine.

PURPOSE:
  Employees carry a salary schedule exactly like tenants carry a rent
  schedule, but payouts work differently: a salary is paid once per month,
  in full, as a Salaries expense. There is no lump-sum allocation and no
  partial payout. The reconciler still runs unchanged: salary expenses are
  exposed through an adapter in the engine's entry-source shape, so a month
  paid in full reads as On Time and skipped months read as arrears.

KEY INVARIANTS:
  - At most one salary payout per (employee, month); a second attempt is a
    duplicate error backed by a storage uniqueness constraint.
  - The payout amount is the scheduled salary for that month, never caller
    input.
  - Paying a month before the salary schedule begins is rejected.

SEE ALSO:
  - rent: the tenant-side counterpart with lump-sum allocation
  - ledger: schedule, reconciler, error taxonomy
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
)

// =============================================================================
// BOOK - The payroll domain service
// =============================================================================

// Book coordinates employee records, salary schedules, payouts, and statuses.
type Book struct {
	store ledger.TxStore
	clock ledger.Clock

	reconciler *ledger.Reconciler
}

func NewBook(store ledger.TxStore, clock ledger.Clock) *Book {
	return &Book{
		store:      store,
		clock:      clock,
		reconciler: &ledger.Reconciler{Clock: clock},
	}
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// HireInput describes a new employee and their opening salary schedule.
type HireInput struct {
	Property   ledger.PropertyID
	Name       string
	Role       string
	StartMonth ledger.Month
	Salary     decimal.Decimal
}

// Hire creates the employee and seeds the first salary schedule entry. Like
// tenant onboarding, the start month may lie in the past.
func (b *Book) Hire(ctx context.Context, in HireInput) (ledger.Employee, error) {
	if in.Name == "" {
		return ledger.Employee{}, ledger.NewValidationError("name", "employee name is required")
	}
	if !in.Salary.IsPositive() {
		return ledger.Employee{}, ledger.NewValidationError("salary", "opening salary must be positive, got %v", in.Salary)
	}
	if in.StartMonth.IsZero() {
		return ledger.Employee{}, ledger.NewValidationError("start_month", "start month is required")
	}
	if _, err := b.store.PropertyByID(ctx, in.Property); err != nil {
		return ledger.Employee{}, err
	}

	employee := ledger.Employee{
		ID:       ledger.SubjectID(ledger.NewID(ledger.PrefixEmployee)),
		Property: in.Property,
		Name:     in.Name,
		Role:     in.Role,
		Active:   true,
	}

	err := b.store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveEmployee(ctx, employee); err != nil {
			return err
		}
		return s.SetScheduleValue(ctx, ledger.ScheduleEntry{
			Subject:       employee.ID,
			Kind:          ledger.ScheduleSalary,
			EffectiveFrom: in.StartMonth,
			Value:         in.Salary,
		})
	})
	if err != nil {
		return ledger.Employee{}, err
	}
	return employee, nil
}

// Employee returns one employee record.
func (b *Book) Employee(ctx context.Context, id ledger.SubjectID) (ledger.Employee, error) {
	return b.store.EmployeeByID(ctx, id)
}

// Employees lists employee records, optionally active only.
func (b *Book) Employees(ctx context.Context, activeOnly bool) ([]ledger.Employee, error) {
	employees, err := b.store.Employees(ctx)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		employees = lo.Filter(employees, func(e ledger.Employee, _ int) bool { return e.Active })
	}
	return employees, nil
}

// Deactivate marks an employee inactive; payout history stays.
func (b *Book) Deactivate(ctx context.Context, id ledger.SubjectID) error {
	employee, err := b.store.EmployeeByID(ctx, id)
	if err != nil {
		return err
	}
	employee.Active = false
	return b.store.SaveEmployee(ctx, employee)
}

// =============================================================================
// SALARY SCHEDULES
// =============================================================================

// ChangeSalary sets a new salary effective from the given month, subject to
// the retroactivity ban.
func (b *Book) ChangeSalary(ctx context.Context, id ledger.SubjectID, effectiveFrom ledger.Month, amount decimal.Decimal) error {
	employee, err := b.store.EmployeeByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ledger.ValidateScheduleChange(
		ledger.ScheduleSalary, employee.ID, effectiveFrom, amount, ledger.CurrentMonth(b.clock),
	); err != nil {
		return err
	}
	return b.store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject:       employee.ID,
		Kind:          ledger.ScheduleSalary,
		EffectiveFrom: effectiveFrom,
		Value:         amount,
	})
}

// SalaryAt returns the scheduled salary for a month; ok is false when the
// month predates the employee's schedule.
func (b *Book) SalaryAt(ctx context.Context, id ledger.SubjectID, m ledger.Month) (decimal.Decimal, bool, error) {
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleSalary, id)
	if err != nil {
		return decimal.Zero, false, err
	}
	v, ok := sched.ValueAt(m)
	return v, ok, nil
}

// SalaryHistory returns the employee's full ordered salary schedule.
func (b *Book) SalaryHistory(ctx context.Context, id ledger.SubjectID) ([]ledger.ScheduleEntry, error) {
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleSalary, id)
	if err != nil {
		return nil, err
	}
	return sched.Entries(), nil
}

// =============================================================================
// PAYOUTS
// =============================================================================

// Payout is the outcome of one salary payment.
type Payout struct {
	Expense ledger.Expense
}

// PayOnce pays the employee's scheduled salary for one month. At most one
// payout per (employee, month): repeats fail with a duplicate error and the
// storage constraint backs the check against races.
func (b *Book) PayOnce(ctx context.Context, id ledger.SubjectID, month ledger.Month, paidOn time.Time) (Payout, error) {
	if month.IsZero() {
		return Payout{}, ledger.NewValidationError("month", "payout month is required")
	}
	employee, err := b.store.EmployeeByID(ctx, id)
	if err != nil {
		return Payout{}, err
	}

	var payout Payout
	err = b.store.WithTx(ctx, func(s ledger.Store) error {
		sched, err := s.ScheduleFor(ctx, ledger.ScheduleSalary, id)
		if err != nil {
			return err
		}
		amount, ok := sched.ValueAt(month)
		if !ok {
			return &ledger.NotYetActiveError{Subject: id, Kind: ledger.ScheduleSalary, Month: month}
		}

		if existing, found, err := s.FindSalaryExpense(ctx, id, month); err != nil {
			return err
		} else if found {
			return &ledger.DuplicatePaymentError{Subject: id, Month: month, Existing: existing}
		}

		category, err := s.CategoryByName(ctx, ledger.CategorySalaries)
		if err != nil {
			return err
		}
		payout.Expense = ledger.Expense{
			ID:          ledger.NewExpenseID(),
			Property:    employee.Property,
			Category:    category.ID,
			Amount:      amount,
			SpentOn:     paidOn,
			ForMonth:    month,
			Employee:    id,
			Description: fmt.Sprintf("Salary for %s - %s", month.Label(), employee.Name),
		}
		return s.AddExpense(ctx, payout.Expense)
	})
	if err != nil {
		return Payout{}, err
	}
	return payout, nil
}

// Payouts lists the employee's salary expenses, newest spend first.
func (b *Book) Payouts(ctx context.Context, id ledger.SubjectID) ([]ledger.Expense, error) {
	if _, err := b.store.EmployeeByID(ctx, id); err != nil {
		return nil, err
	}
	return b.store.ListExpenses(ctx, ledger.ExpenseFilter{Employee: id})
}

// =============================================================================
// STATUSES
// =============================================================================

// EmployeeStatus pairs an employee record with their reconciled standing.
type EmployeeStatus struct {
	Employee ledger.Employee
	Status   ledger.Status
}

// salarySource exposes salary expenses in the entry-source shape the
// reconciler consumes, so payroll standing runs through the same arithmetic
// as rent.
type salarySource struct {
	store ledger.ExpenseStore
}

func (s salarySource) SumByMonth(ctx context.Context, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	return s.store.SalaryPaidByMonth(ctx, subject, from, to)
}

func (s salarySource) LatestEntryMonth(ctx context.Context, subject ledger.SubjectID) (ledger.Month, bool, error) {
	return s.store.LatestSalaryMonth(ctx, subject)
}

// Status reconciles one employee as of the selected month. A month paid in
// full reads On Time; skipped months accumulate like rent arrears.
func (b *Book) Status(ctx context.Context, id ledger.SubjectID, asOf ledger.Month) (ledger.Status, error) {
	if _, err := b.store.EmployeeByID(ctx, id); err != nil {
		return ledger.Status{}, err
	}
	sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleSalary, id)
	if err != nil {
		return ledger.Status{}, err
	}
	return b.reconciler.Reconcile(ctx, salarySource{store: b.store}, sched, id, asOf)
}

// Statuses reconciles every active employee as of the selected month and
// aggregates payroll totals.
func (b *Book) Statuses(ctx context.Context, asOf ledger.Month) ([]EmployeeStatus, ledger.Totals, error) {
	employees, err := b.Employees(ctx, true)
	if err != nil {
		return nil, ledger.Totals{}, err
	}

	schedules := make(map[ledger.SubjectID]ledger.Schedule, len(employees))
	subjects := make([]ledger.SubjectID, 0, len(employees))
	for _, e := range employees {
		sched, err := b.store.ScheduleFor(ctx, ledger.ScheduleSalary, e.ID)
		if err != nil {
			return nil, ledger.Totals{}, err
		}
		schedules[e.ID] = sched
		subjects = append(subjects, e.ID)
	}

	statuses, totals, err := b.reconciler.ReconcileAll(ctx, salarySource{store: b.store}, schedules, subjects, asOf)
	if err != nil {
		return nil, ledger.Totals{}, err
	}

	paired := make([]EmployeeStatus, len(employees))
	for i, e := range employees {
		paired[i] = EmployeeStatus{Employee: e, Status: statuses[i]}
	}
	return paired, totals, nil
}
