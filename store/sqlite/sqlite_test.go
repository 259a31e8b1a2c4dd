package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/rentledger/ledger"
	"github.com/estateops/rentledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedProperty(t *testing.T, store *sqlite.Store) ledger.Property {
	p := ledger.Property{
		ID:       ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)),
		Name:     "Hilltop Apartments",
		Location: "Kampala",
	}
	require.NoError(t, store.SaveProperty(context.Background(), p))
	return p
}

func salaryCategory(t *testing.T, store *sqlite.Store) ledger.ExpenseCategory {
	c, err := store.CategoryByName(context.Background(), ledger.CategorySalaries)
	require.NoError(t, err)
	return c
}

// =============================================================================
// MIGRATION AND SEEDING
// =============================================================================

func TestMigrate_ProvisionsReservedCategories(t *testing.T) {
	// GIVEN: A freshly opened database
	store := newTestStore(t)

	// THEN: Commission and Salaries exist without any setup
	commission, err := store.CategoryByName(context.Background(), ledger.CategoryCommission)
	require.NoError(t, err)
	assert.NotEmpty(t, commission.ID)

	salaries, err := store.CategoryByName(context.Background(), ledger.CategorySalaries)
	require.NoError(t, err)
	assert.NotEmpty(t, salaries.ID)
	assert.NotEqual(t, commission.ID, salaries.ID)
}

// =============================================================================
// DIRECTORY ROUND TRIPS
// =============================================================================

func TestDirectory_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)

	tenant := ledger.Tenant{
		ID:       ledger.SubjectID(ledger.NewID(ledger.PrefixTenant)),
		Property: property.ID,
		Name:     "Alice Zawedde",
		Phone:    "+256-700-000-001",
		Active:   true,
	}
	require.NoError(t, store.SaveTenant(ctx, tenant))

	got, err := store.TenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.Name, got.Name)
	assert.Equal(t, property.ID, got.Property)
	assert.True(t, got.Active)

	// Saving again with Active=false updates in place
	tenant.Active = false
	require.NoError(t, store.SaveTenant(ctx, tenant))
	got, err = store.TenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	all, err := store.Tenants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDirectory_NotFoundSentinels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.TenantByID(ctx, "ten_missing")
	assert.ErrorIs(t, err, ledger.ErrSubjectNotFound)

	_, err = store.EmployeeByID(ctx, "emp_missing")
	assert.ErrorIs(t, err, ledger.ErrSubjectNotFound)

	_, err = store.PropertyByID(ctx, "prop_missing")
	assert.ErrorIs(t, err, ledger.ErrPropertyNotFound)

	_, err = store.CategoryByName(ctx, "Gardening")
	assert.ErrorIs(t, err, ledger.ErrCategoryNotFound)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestSchedule_UpsertOverwritesSameMonthOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	subject := ledger.SubjectID("ten_sched")

	// GIVEN: Rent 500 from January, 600 from March
	jan := ledger.NewMonth(2025, time.January)
	mar := ledger.NewMonth(2025, time.March)
	require.NoError(t, store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject: subject, Kind: ledger.ScheduleRent, EffectiveFrom: jan, Value: dec("500"),
	}))
	require.NoError(t, store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject: subject, Kind: ledger.ScheduleRent, EffectiveFrom: mar, Value: dec("600"),
	}))

	// WHEN: March is written again with a corrected value
	require.NoError(t, store.SetScheduleValue(ctx, ledger.ScheduleEntry{
		Subject: subject, Kind: ledger.ScheduleRent, EffectiveFrom: mar, Value: dec("650"),
	}))

	// THEN: January is untouched, March holds the corrected value
	sched, err := store.ScheduleFor(ctx, ledger.ScheduleRent, subject)
	require.NoError(t, err)

	v, ok := sched.ValueAt(jan)
	require.True(t, ok)
	assert.True(t, v.Equal(dec("500")))

	v, ok = sched.ValueAt(mar)
	require.True(t, ok)
	assert.True(t, v.Equal(dec("650")))

	// Kinds are isolated: no salary schedule exists for this subject
	salary, err := store.ScheduleFor(ctx, ledger.ScheduleSalary, subject)
	require.NoError(t, err)
	_, ok = salary.StartMonth()
	assert.False(t, ok)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestEntries_AppendSumAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	subject := ledger.SubjectID("ten_entries")
	recordedOn := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	jan := ledger.NewMonth(2025, time.January)
	feb := ledger.NewMonth(2025, time.February)

	// GIVEN: Two partial payments for January and one for February
	entries := []ledger.Entry{
		{ID: ledger.EntryID(ledger.NewID(ledger.PrefixEntry)), Subject: subject, Amount: dec("300"), ForMonth: jan, RecordedOn: recordedOn, ReceiptRef: "rcpt_a"},
		{ID: ledger.EntryID(ledger.NewID(ledger.PrefixEntry)), Subject: subject, Amount: dec("200"), ForMonth: jan, RecordedOn: recordedOn, ReceiptRef: "rcpt_b"},
		{ID: ledger.EntryID(ledger.NewID(ledger.PrefixEntry)), Subject: subject, Amount: dec("500"), ForMonth: feb, RecordedOn: recordedOn, ReceiptRef: "rcpt_b"},
	}
	require.NoError(t, store.AppendEntries(ctx, entries))

	// THEN: Sums accumulate per month inside the window
	sums, err := store.SumByMonth(ctx, subject, jan, feb)
	require.NoError(t, err)
	assert.True(t, sums[jan].Equal(dec("500")))
	assert.True(t, sums[feb].Equal(dec("500")))

	// A window excluding February sees only January
	sums, err = store.SumByMonth(ctx, subject, jan, jan)
	require.NoError(t, err)
	assert.True(t, sums[jan].Equal(dec("500")))
	_, ok := sums[feb]
	assert.False(t, ok)

	// Latest paid month is February
	latest, ok, err := store.LatestEntryMonth(ctx, subject)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(feb))

	// Listing returns newest month first
	listed, err := store.EntriesBySubject(ctx, subject)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.True(t, listed[0].ForMonth.Equal(feb))

	// No entries means no latest month
	_, ok, err = store.LatestEntryMonth(ctx, "ten_other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntries_RejectNonPositiveAmount(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendEntries(context.Background(), []ledger.Entry{{
		ID:       ledger.EntryID(ledger.NewID(ledger.PrefixEntry)),
		Subject:  "ten_x",
		Amount:   dec("0"),
		ForMonth: ledger.NewMonth(2025, time.January),
	}})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestExpenses_FilterByPropertyCategoryEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)
	other := ledger.Property{ID: ledger.PropertyID(ledger.NewID(ledger.PrefixProperty)), Name: "Acacia Heights"}
	require.NoError(t, store.SaveProperty(ctx, other))

	salaries := salaryCategory(t, store)
	commission, err := store.CategoryByName(ctx, ledger.CategoryCommission)
	require.NoError(t, err)

	spentOn := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	feb := ledger.NewMonth(2025, time.February)

	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: ledger.ExpenseID(ledger.NewID(ledger.PrefixExpense)), Property: property.ID,
		Category: salaries.ID, Amount: dec("800"), SpentOn: spentOn, ForMonth: feb,
		Employee: "emp_grace", Description: "Salary for February 2025 - Grace",
	}))
	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: ledger.ExpenseID(ledger.NewID(ledger.PrefixExpense)), Property: property.ID,
		Category: commission.ID, Amount: dec("120"), SpentOn: spentOn.AddDate(0, 0, 5), ForMonth: feb,
	}))
	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: ledger.ExpenseID(ledger.NewID(ledger.PrefixExpense)), Property: other.ID,
		Category: commission.ID, Amount: dec("90"), SpentOn: spentOn,
	}))

	// By property
	got, err := store.ListExpenses(ctx, ledger.ExpenseFilter{Property: property.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// By employee
	got, err = store.ListExpenses(ctx, ledger.ExpenseFilter{Employee: "emp_grace"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(dec("800")))
	assert.True(t, got[0].ForMonth.Equal(feb))

	// By category across properties
	got, err = store.ListExpenses(ctx, ledger.ExpenseFilter{Category: commission.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// By date window
	got, err = store.ListExpenses(ctx, ledger.ExpenseFilter{
		From: spentOn.AddDate(0, 0, 1),
		To:   spentOn.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(dec("120")))
}

func TestExpenses_UnknownCategoryRejected(t *testing.T) {
	store := newTestStore(t)
	property := seedProperty(t, store)

	err := store.AddExpense(context.Background(), ledger.Expense{
		ID:       ledger.ExpenseID(ledger.NewID(ledger.PrefixExpense)),
		Property: property.ID,
		Category: "cat_missing",
		Amount:   dec("50"),
		SpentOn:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ledger.ErrCategoryNotFound)
}

// =============================================================================
// SALARY UNIQUENESS CONSTRAINT
// =============================================================================

func TestSalaryExpense_DuplicateMonthRejectedByIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)
	salaries := salaryCategory(t, store)
	feb := ledger.NewMonth(2025, time.February)
	mar := ledger.NewMonth(2025, time.March)
	spentOn := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)

	pay := func(id string, month ledger.Month) error {
		return store.AddExpense(ctx, ledger.Expense{
			ID: ledger.ExpenseID(id), Property: property.ID, Category: salaries.ID,
			Amount: dec("800"), SpentOn: spentOn, ForMonth: month, Employee: "emp_grace",
		})
	}

	// GIVEN: February's salary is already paid
	require.NoError(t, pay("exp_first", feb))

	// WHEN: The same (employee, month) is paid again
	err := pay("exp_second", feb)

	// THEN: The unique index rejects it as a duplicate payment
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrDuplicatePayment)
	var dup *ledger.DuplicatePaymentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ledger.SubjectID("emp_grace"), dup.Subject)
	assert.Equal(t, ledger.ExpenseID("exp_first"), dup.Existing)

	// A different month is fine
	require.NoError(t, pay("exp_third", mar))

	// And the other employee is unaffected
	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: ledger.ExpenseID(ledger.NewID(ledger.PrefixExpense)), Property: property.ID,
		Category: salaries.ID, Amount: dec("400"), SpentOn: spentOn, ForMonth: feb, Employee: "emp_john",
	}))
}

func TestSalaryExpense_LookupsSeeOnlySalaryRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)
	salaries := salaryCategory(t, store)
	commission, err := store.CategoryByName(ctx, ledger.CategoryCommission)
	require.NoError(t, err)

	jan := ledger.NewMonth(2025, time.January)
	feb := ledger.NewMonth(2025, time.February)
	spentOn := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: "exp_salary_jan", Property: property.ID, Category: salaries.ID,
		Amount: dec("800"), SpentOn: spentOn, ForMonth: jan, Employee: "emp_grace",
	}))
	// Commission row with the same shape must not count as salary
	require.NoError(t, store.AddExpense(ctx, ledger.Expense{
		ID: "exp_fee_feb", Property: property.ID, Category: commission.ID,
		Amount: dec("120"), SpentOn: spentOn, ForMonth: feb, Employee: "emp_grace",
	}))

	id, found, err := store.FindSalaryExpense(ctx, "emp_grace", jan)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ledger.ExpenseID("exp_salary_jan"), id)

	_, found, err = store.FindSalaryExpense(ctx, "emp_grace", feb)
	require.NoError(t, err)
	assert.False(t, found)

	sums, err := store.SalaryPaidByMonth(ctx, "emp_grace", jan, feb)
	require.NoError(t, err)
	assert.True(t, sums[jan].Equal(dec("800")))
	_, ok := sums[feb]
	assert.False(t, ok)

	latest, ok, err := store.LatestSalaryMonth(ctx, "emp_grace")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(jan))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)
	jan := ledger.NewMonth(2025, time.January)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveTenant(ctx, ledger.Tenant{
			ID: "ten_tx", Property: property.ID, Name: "Alice", Active: true,
		}); err != nil {
			return err
		}
		if err := s.AppendEntries(ctx, []ledger.Entry{{
			ID: "pay_tx", Subject: "ten_tx", Amount: dec("500"),
			ForMonth: jan, RecordedOn: time.Now().UTC(), ReceiptRef: "rcpt_tx",
		}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// THEN: Neither write is visible
	_, err = store.TenantByID(ctx, "ten_tx")
	assert.ErrorIs(t, err, ledger.ErrSubjectNotFound)
	entries, err := store.EntriesBySubject(ctx, "ten_tx")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTx_CommitsAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	property := seedProperty(t, store)
	jan := ledger.NewMonth(2025, time.January)

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveTenant(ctx, ledger.Tenant{
			ID: "ten_tx", Property: property.ID, Name: "Alice", Active: true,
		}); err != nil {
			return err
		}
		return s.SetScheduleValue(ctx, ledger.ScheduleEntry{
			Subject: "ten_tx", Kind: ledger.ScheduleRent, EffectiveFrom: jan, Value: dec("500"),
		})
	})
	require.NoError(t, err)

	tenant, err := store.TenantByID(ctx, "ten_tx")
	require.NoError(t, err)
	assert.Equal(t, "Alice", tenant.Name)

	sched, err := store.ScheduleFor(ctx, ledger.ScheduleRent, "ten_tx")
	require.NoError(t, err)
	start, ok := sched.StartMonth()
	require.True(t, ok)
	assert.True(t, start.Equal(jan))
}
