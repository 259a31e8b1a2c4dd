package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/rentledger/ledger"
	ledgerstore "github.com/estateops/rentledger/ledger/store"
	"github.com/estateops/rentledger/payroll"
	"github.com/estateops/rentledger/rent"
	"github.com/estateops/rentledger/report"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(year int, m time.Month) ledger.FixedClock {
	return ledger.FixedClock{At: time.Date(year, m, 15, 12, 0, 0, 0, time.UTC)}
}

type fixture struct {
	store    *ledgerstore.Memory
	rents    *rent.Book
	payrolls *payroll.Book
	reports  *report.Reports
	property ledger.Property
}

// newFixture seeds one property with a tenant paid through March, an
// employee paid for January, and a 10% commission rate. Clock pinned to
// March 2025.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := fixedClock(2025, time.March)
	store := ledgerstore.NewMemoryWithClock(clock)
	property := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     "Hilltop Apartments",
		Location: "Kampala",
	}
	require.NoError(t, store.SaveProperty(context.Background(), property))

	f := &fixture{
		store:    store,
		rents:    rent.NewBook(store, clock),
		payrolls: payroll.NewBook(store, clock),
		property: property,
	}
	f.reports = report.NewReports(store, clock, f.rents, f.payrolls)
	return f
}

func (f *fixture) seed(t *testing.T) (ledger.Tenant, ledger.Employee) {
	t.Helper()
	ctx := context.Background()
	jan := ledger.NewMonth(2025, time.January)
	mar := ledger.NewMonth(2025, time.March)

	require.NoError(t, f.rents.SetCommissionRate(ctx, jan, dec("10")))

	tenant, err := f.rents.Onboard(ctx, rent.OnboardInput{
		Property: f.property.ID, Name: "Alice", StartMonth: jan, Rent: dec("1000"),
	})
	require.NoError(t, err)
	// 3000 covers January..March and triggers a 300 commission fee.
	_, err = f.rents.RecordPayment(ctx, tenant.ID, dec("3000"), mar, fixedClock(2025, time.March).Now())
	require.NoError(t, err)

	employee, err := f.payrolls.Hire(ctx, payroll.HireInput{
		Property: f.property.ID, Name: "Grace", Role: "Caretaker", StartMonth: jan, Salary: dec("800"),
	})
	require.NoError(t, err)
	_, err = f.payrolls.PayOnce(ctx, employee.ID, jan, fixedClock(2025, time.January).Now())
	require.NoError(t, err)

	return tenant, employee
}

// =============================================================================
// FUNDS POSITION
// =============================================================================

func TestFundsPosition_NetsCollectedAgainstSpent(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	pos, err := f.reports.FundsPosition(context.Background())
	require.NoError(t, err)

	// Collected 3000 rent; spent 300 commission + 800 salary.
	assert.True(t, pos.Collected.Equal(dec("3000")), "collected = %v", pos.Collected)
	assert.True(t, pos.Spent.Equal(dec("1100")), "spent = %v", pos.Spent)
	assert.True(t, pos.Net.Equal(dec("1900")))

	require.Len(t, pos.ByProperty, 1)
	assert.True(t, pos.ByProperty[0].Net.Equal(dec("1900")))
}

// =============================================================================
// MONTH SNAPSHOT
// =============================================================================

func TestMonthSnapshot_CombinesRentPayrollAndSpend(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	mar := ledger.NewMonth(2025, time.March)

	snap, err := f.reports.MonthSnapshot(context.Background(), mar)
	require.NoError(t, err)

	// Rent for March is fully paid.
	assert.True(t, snap.Rent.Due.Equal(dec("1000")))
	assert.True(t, snap.Rent.Paid.Equal(dec("1000")))

	// March salary is owed but unpaid.
	assert.True(t, snap.Payroll.Due.Equal(dec("800")))
	assert.True(t, snap.Payroll.Paid.IsZero())

	// Commission fee is month-bound to March (the recording month).
	assert.True(t, snap.Spent.Equal(dec("300")), "spent = %v", snap.Spent)
	assert.True(t, snap.Net.Equal(dec("700")))
}

// =============================================================================
// EXPENSE BREAKDOWN
// =============================================================================

func TestExpenseBreakdown_GroupsByCategoryLargestFirst(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	breakdown, err := f.reports.ExpenseBreakdown(context.Background(), ledger.ExpenseFilter{})
	require.NoError(t, err)

	require.Len(t, breakdown, 2)
	assert.Equal(t, ledger.CategorySalaries, breakdown[0].Category.Name)
	assert.True(t, breakdown[0].Total.Equal(dec("800")))
	assert.Equal(t, ledger.CategoryCommission, breakdown[1].Category.Name)
	assert.True(t, breakdown[1].Total.Equal(dec("300")))
	assert.Equal(t, 1, breakdown[0].Count)
}

// =============================================================================
// PROPERTY SUMMARIES
// =============================================================================

func TestPropertySummaries_PerPropertyMonthFigures(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	mar := ledger.NewMonth(2025, time.March)

	summaries, err := f.reports.PropertySummaries(context.Background(), mar)
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, f.property.ID, s.Property.ID)
	assert.Equal(t, 1, s.ActiveTenants)
	assert.Equal(t, 1, s.ActiveStaff)
	assert.True(t, s.RentDue.Equal(dec("1000")))
	assert.True(t, s.RentPaid.Equal(dec("1000")))
	assert.True(t, s.Spent.Equal(dec("300")))
	assert.True(t, s.Net.Equal(dec("700")))
}

// =============================================================================
// MONTHLY SERIES
// =============================================================================

func TestMonthlySeries_TrailingWindowOldestFirst(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	series, err := f.reports.MonthlySeries(context.Background(), ledger.NewMonth(2025, time.March), 3)
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, ledger.NewMonth(2025, time.January), series[0].Month)
	assert.Equal(t, ledger.NewMonth(2025, time.March), series[2].Month)

	// January: 1000 rent collected, 800 salary spent.
	assert.True(t, series[0].Collected.Equal(dec("1000")))
	assert.True(t, series[0].Spent.Equal(dec("800")))
	assert.True(t, series[0].Net.Equal(dec("200")))

	// March: 1000 rent, 300 commission fee.
	assert.True(t, series[2].Spent.Equal(dec("300")))
}

func TestMonthlySeries_RejectsEmptyWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.reports.MonthlySeries(context.Background(), ledger.NewMonth(2025, time.March), 0)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
