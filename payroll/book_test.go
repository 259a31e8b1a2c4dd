package payroll_test

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
	book     *payroll.Book
	property ledger.Property
}

func newFixture(t *testing.T, clock ledger.Clock) *fixture {
	t.Helper()
	store := ledgerstore.NewMemoryWithClock(clock)
	property := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     "Hilltop Apartments",
		Location: "Kampala",
	}
	require.NoError(t, store.SaveProperty(context.Background(), property))
	return &fixture{
		store:    store,
		book:     payroll.NewBook(store, clock),
		property: property,
	}
}

func (f *fixture) hire(t *testing.T, name, role string, start ledger.Month, salary string) ledger.Employee {
	t.Helper()
	employee, err := f.book.Hire(context.Background(), payroll.HireInput{
		Property:   f.property.ID,
		Name:       name,
		Role:       role,
		StartMonth: start,
		Salary:     dec(salary),
	})
	require.NoError(t, err)
	return employee
}

// =============================================================================
// HIRING AND SALARY CHANGES
// =============================================================================

func TestHire_SeedsSalarySchedule(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.June))
	ctx := context.Background()

	employee := f.hire(t, "Grace Auma", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	salary, ok, err := f.book.SalaryAt(ctx, employee.ID, ledger.NewMonth(2025, time.April))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, salary.Equal(dec("800")))

	_, ok, err = f.book.SalaryAt(ctx, employee.ID, ledger.NewMonth(2024, time.November))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChangeSalary_RetroactiveRejected(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.June))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	err := f.book.ChangeSalary(ctx, employee.ID, ledger.NewMonth(2025, time.March), dec("900"))
	assert.ErrorIs(t, err, ledger.ErrRetroactiveChange)

	require.NoError(t, f.book.ChangeSalary(ctx, employee.ID, ledger.NewMonth(2025, time.July), dec("900")))
	salary, _, err := f.book.SalaryAt(ctx, employee.ID, ledger.NewMonth(2025, time.July))
	require.NoError(t, err)
	assert.True(t, salary.Equal(dec("900")))
}

// =============================================================================
// PAYOUTS
// =============================================================================

func TestPayOnce_UsesScheduledAmount(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	payout, err := f.book.PayOnce(ctx, employee.ID, ledger.NewMonth(2025, time.February), fixedClock(2025, time.March).Now())
	require.NoError(t, err)

	// The amount comes from the schedule, stamped with the paid-for month.
	assert.True(t, payout.Expense.Amount.Equal(dec("800")))
	assert.Equal(t, ledger.NewMonth(2025, time.February), payout.Expense.ForMonth)
	assert.Equal(t, employee.ID, payout.Expense.Employee)
	assert.Equal(t, f.property.ID, payout.Expense.Property)

	// AND it landed in the Salaries category.
	cat, err := f.store.CategoryByName(ctx, ledger.CategorySalaries)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, payout.Expense.Category)
}

func TestPayOnce_SecondPayoutForSameMonthIsDuplicate(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")
	feb := ledger.NewMonth(2025, time.February)

	_, err := f.book.PayOnce(ctx, employee.ID, feb, fixedClock(2025, time.March).Now())
	require.NoError(t, err)

	_, err = f.book.PayOnce(ctx, employee.ID, feb, fixedClock(2025, time.March).Now())
	assert.ErrorIs(t, err, ledger.ErrDuplicatePayment)

	// A different month is fine.
	_, err = f.book.PayOnce(ctx, employee.ID, ledger.NewMonth(2025, time.March), fixedClock(2025, time.March).Now())
	assert.NoError(t, err)

	payouts, err := f.book.Payouts(ctx, employee.ID)
	require.NoError(t, err)
	assert.Len(t, payouts, 2)
}

func TestPayOnce_BeforeScheduleStartFails(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	_, err := f.book.PayOnce(ctx, employee.ID, ledger.NewMonth(2024, time.December), fixedClock(2025, time.March).Now())
	assert.ErrorIs(t, err, ledger.ErrNotYetActive)

	payouts, err := f.book.Payouts(ctx, employee.ID)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

// =============================================================================
// STATUSES
// =============================================================================

func TestStatus_PaidMonthIsOnTime(t *testing.T) {
	// GIVEN March 2025 and an employee hired in January
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	// WHEN January through March are all paid
	for _, m := range []ledger.Month{
		ledger.NewMonth(2025, time.January),
		ledger.NewMonth(2025, time.February),
		ledger.NewMonth(2025, time.March),
	} {
		_, err := f.book.PayOnce(ctx, employee.ID, m, fixedClock(2025, time.March).Now())
		require.NoError(t, err)
	}

	// THEN March reads On Time with no arrears
	status, err := f.book.Status(ctx, employee.ID, ledger.NewMonth(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOnTime, status.Kind)
	assert.True(t, status.Balance.IsZero())
	assert.True(t, status.Settled)
}

func TestStatus_SkippedMonthsAccumulate(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	employee := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.January), "800")

	// Only January paid; February and March owed.
	_, err := f.book.PayOnce(ctx, employee.ID, ledger.NewMonth(2025, time.January), fixedClock(2025, time.March).Now())
	require.NoError(t, err)

	status, err := f.book.Status(ctx, employee.ID, ledger.NewMonth(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCumulative, status.Kind)
	assert.True(t, status.Balance.Equal(dec("1600")))
	assert.Equal(t, 2, status.MissedMonths)
}

func TestStatuses_AggregateActiveEmployees(t *testing.T) {
	f := newFixture(t, fixedClock(2025, time.March))
	ctx := context.Background()
	asOf := ledger.NewMonth(2025, time.March)

	grace := f.hire(t, "Grace", "Caretaker", ledger.NewMonth(2025, time.March), "800")
	john := f.hire(t, "John", "Guard", ledger.NewMonth(2025, time.March), "400")
	require.NoError(t, f.book.Deactivate(ctx, john.ID))

	_, err := f.book.PayOnce(ctx, grace.ID, asOf, fixedClock(2025, time.March).Now())
	require.NoError(t, err)

	statuses, totals, err := f.book.Statuses(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, grace.ID, statuses[0].Employee.ID)
	assert.True(t, totals.Due.Equal(dec("800")))
	assert.True(t, totals.Paid.Equal(dec("800")))
}
