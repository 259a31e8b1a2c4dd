/*
Package report computes read-only aggregates over the ledger for dashboards.

PURPOSE:
  Everything here is derived on demand from entries, expenses, and schedules.
  Nothing is cached or persisted: a report is a pure function of current
  store state and the selected month.

REPORTS:
  - FundsPosition:    all-time money in vs money out, overall and per property
  - MonthSnapshot:    rent and payroll standing plus spend for one month
  - ExpenseBreakdown: per-category expense totals over a date window
  - PropertySummaries: per-property occupancy, staffing, and month figures
  - MonthlySeries:    collected vs spent per month over a trailing window

SEE ALSO:
  - rent, payroll: the domain services whose reconciled totals feed these
*/
package report

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/payroll"
	"github.com/estateops/rentledger/rent"
)

// =============================================================================
// REPORTS SERVICE
// =============================================================================

// Reports computes aggregates. Rent and payroll standing comes from the
// domain books so every figure matches what their own endpoints show.
type Reports struct {
	store    ledger.Store
	clock    ledger.Clock
	rents    *rent.Book
	payrolls *payroll.Book
}

func NewReports(store ledger.Store, clock ledger.Clock, rents *rent.Book, payrolls *payroll.Book) *Reports {
	return &Reports{store: store, clock: clock, rents: rents, payrolls: payrolls}
}

// =============================================================================
// FUNDS POSITION - All-time money in vs money out
// =============================================================================

// PropertyFunds is one property's share of the funds position.
type PropertyFunds struct {
	Property  ledger.Property
	Collected decimal.Decimal
	Spent     decimal.Decimal
	Net       decimal.Decimal
}

// FundsPosition is the all-time cash view: every rent entry ever recorded
// against every expense ever recorded.
type FundsPosition struct {
	Collected  decimal.Decimal
	Spent      decimal.Decimal
	Net        decimal.Decimal
	ByProperty []PropertyFunds
}

// FundsPosition totals collected rent and recorded expenses, overall and per
// property. Commission fees and salaries count as spend like any expense.
func (r *Reports) FundsPosition(ctx context.Context) (FundsPosition, error) {
	properties, err := r.store.Properties(ctx)
	if err != nil {
		return FundsPosition{}, err
	}
	tenants, err := r.store.Tenants(ctx)
	if err != nil {
		return FundsPosition{}, err
	}

	collectedByProperty := make(map[ledger.PropertyID]decimal.Decimal)
	for _, tenant := range tenants {
		entries, err := r.store.EntriesBySubject(ctx, tenant.ID)
		if err != nil {
			return FundsPosition{}, err
		}
		for _, e := range entries {
			collectedByProperty[tenant.Property] = collectedByProperty[tenant.Property].Add(e.Amount)
		}
	}

	expenses, err := r.store.ListExpenses(ctx, ledger.ExpenseFilter{})
	if err != nil {
		return FundsPosition{}, err
	}
	spentByProperty := make(map[ledger.PropertyID]decimal.Decimal)
	for _, e := range expenses {
		spentByProperty[e.Property] = spentByProperty[e.Property].Add(e.Amount)
	}

	pos := FundsPosition{ByProperty: make([]PropertyFunds, 0, len(properties))}
	for _, p := range properties {
		collected := collectedByProperty[p.ID]
		spent := spentByProperty[p.ID]
		pos.ByProperty = append(pos.ByProperty, PropertyFunds{
			Property:  p,
			Collected: collected,
			Spent:     spent,
			Net:       collected.Sub(spent),
		})
		pos.Collected = pos.Collected.Add(collected)
		pos.Spent = pos.Spent.Add(spent)
	}
	pos.Net = pos.Collected.Sub(pos.Spent)
	return pos, nil
}

// =============================================================================
// MONTH SNAPSHOT - One month across rent, payroll, and spend
// =============================================================================

// MonthSnapshot is the dashboard view of one month: reconciled rent and
// payroll totals plus everything spent during that calendar month.
type MonthSnapshot struct {
	Month   ledger.Month
	Rent    ledger.Totals
	Payroll ledger.Totals
	Spent   decimal.Decimal
	Net     decimal.Decimal // rent paid minus spend
}

func (r *Reports) MonthSnapshot(ctx context.Context, asOf ledger.Month) (MonthSnapshot, error) {
	_, rentTotals, err := r.rents.Statuses(ctx, asOf)
	if err != nil {
		return MonthSnapshot{}, err
	}
	_, payrollTotals, err := r.payrolls.Statuses(ctx, asOf)
	if err != nil {
		return MonthSnapshot{}, err
	}

	spent, err := r.spentInMonth(ctx, ledger.ExpenseFilter{}, asOf)
	if err != nil {
		return MonthSnapshot{}, err
	}
	return MonthSnapshot{
		Month:   asOf,
		Rent:    rentTotals,
		Payroll: payrollTotals,
		Spent:   spent,
		Net:     rentTotals.Paid.Sub(spent),
	}, nil
}

// spentInMonth sums expenses attributed to one calendar month. Month-bound
// expenses (salaries) count by ForMonth; everything else by spend date.
func (r *Reports) spentInMonth(ctx context.Context, f ledger.ExpenseFilter, m ledger.Month) (decimal.Decimal, error) {
	expenses, err := r.store.ListExpenses(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		attributed := ledger.MonthOf(e.SpentOn)
		if !e.ForMonth.IsZero() {
			attributed = e.ForMonth
		}
		if attributed.Equal(m) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

// =============================================================================
// EXPENSE BREAKDOWN - Per-category totals
// =============================================================================

// CategoryTotal is one category's share of spend over the filtered window.
type CategoryTotal struct {
	Category ledger.ExpenseCategory
	Total    decimal.Decimal
	Count    int
}

// ExpenseBreakdown groups the filtered expenses by category, largest total
// first.
func (r *Reports) ExpenseBreakdown(ctx context.Context, f ledger.ExpenseFilter) ([]CategoryTotal, error) {
	expenses, err := r.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, err
	}
	categories, err := r.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(categories, func(c ledger.ExpenseCategory) ledger.CategoryID { return c.ID })

	grouped := lo.GroupBy(expenses, func(e ledger.Expense) ledger.CategoryID { return e.Category })
	out := make([]CategoryTotal, 0, len(grouped))
	for id, group := range grouped {
		total := lo.Reduce(group, func(acc decimal.Decimal, e ledger.Expense, _ int) decimal.Decimal {
			return acc.Add(e.Amount)
		}, decimal.Zero)
		out = append(out, CategoryTotal{Category: byID[id], Total: total, Count: len(group)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out, nil
}

// =============================================================================
// PROPERTY SUMMARIES - Per-property month figures
// =============================================================================

// PropertySummary is one property's row in the month overview.
type PropertySummary struct {
	Property      ledger.Property
	ActiveTenants int
	ActiveStaff   int
	RentDue       decimal.Decimal
	RentPaid      decimal.Decimal
	Spent         decimal.Decimal
	Net           decimal.Decimal
}

func (r *Reports) PropertySummaries(ctx context.Context, asOf ledger.Month) ([]PropertySummary, error) {
	properties, err := r.store.Properties(ctx)
	if err != nil {
		return nil, err
	}
	tenantStatuses, _, err := r.rents.Statuses(ctx, asOf)
	if err != nil {
		return nil, err
	}
	employees, err := r.payrolls.Employees(ctx, true)
	if err != nil {
		return nil, err
	}
	staffByProperty := lo.CountValuesBy(employees, func(e ledger.Employee) ledger.PropertyID { return e.Property })

	out := make([]PropertySummary, 0, len(properties))
	for _, p := range properties {
		summary := PropertySummary{Property: p, ActiveStaff: staffByProperty[p.ID]}
		for _, ts := range tenantStatuses {
			if ts.Tenant.Property != p.ID {
				continue
			}
			summary.ActiveTenants++
			summary.RentDue = summary.RentDue.Add(ts.Status.Due)
			summary.RentPaid = summary.RentPaid.Add(ts.Status.Paid)
		}
		spent, err := r.spentInMonth(ctx, ledger.ExpenseFilter{Property: p.ID}, asOf)
		if err != nil {
			return nil, err
		}
		summary.Spent = spent
		summary.Net = summary.RentPaid.Sub(spent)
		out = append(out, summary)
	}
	return out, nil
}

// =============================================================================
// MONTHLY SERIES - Trailing collected-vs-spent trend
// =============================================================================

// MonthPoint is one month of the trend series.
type MonthPoint struct {
	Month     ledger.Month
	Collected decimal.Decimal
	Spent     decimal.Decimal
	Net       decimal.Decimal
}

// MonthlySeries returns collected vs spent for the `months` months ending at
// `end`, oldest first. Collected attributes rent entries to the month they
// paid for, matching how statuses read.
func (r *Reports) MonthlySeries(ctx context.Context, end ledger.Month, months int) ([]MonthPoint, error) {
	if months < 1 {
		return nil, ledger.NewValidationError("months", "series length must be at least 1, got %d", months)
	}
	start := end.AddMonths(-(months - 1))

	tenants, err := r.store.Tenants(ctx)
	if err != nil {
		return nil, err
	}
	collected := make(map[ledger.Month]decimal.Decimal)
	for _, tenant := range tenants {
		sums, err := r.store.SumByMonth(ctx, tenant.ID, start, end)
		if err != nil {
			return nil, err
		}
		for m, amount := range sums {
			collected[m] = collected[m].Add(amount)
		}
	}

	expenses, err := r.store.ListExpenses(ctx, ledger.ExpenseFilter{})
	if err != nil {
		return nil, err
	}
	spent := make(map[ledger.Month]decimal.Decimal)
	for _, e := range expenses {
		attributed := ledger.MonthOf(e.SpentOn)
		if !e.ForMonth.IsZero() {
			attributed = e.ForMonth
		}
		if attributed.AfterOrEqual(start) && attributed.BeforeOrEqual(end) {
			spent[attributed] = spent[attributed].Add(e.Amount)
		}
	}

	series := make([]MonthPoint, 0, months)
	for _, m := range ledger.MonthsBetween(start, end) {
		point := MonthPoint{
			Month:     m,
			Collected: collected[m],
			Spent:     spent[m],
		}
		point.Net = point.Collected.Sub(point.Spent)
		series = append(series, point)
	}
	return series, nil
}
