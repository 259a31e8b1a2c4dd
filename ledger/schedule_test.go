package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/rentledger/ledger"
)

func TestSchedule_SetSameMonthOverwritesInPlace(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})
	sched.Set(rentEntry("ten-1", month(2025, time.January), "1100"))

	assert.Equal(t, 1, sched.Len(), "same-month set must not duplicate")
	v, ok := sched.ValueAt(month(2025, time.January))
	require.True(t, ok)
	assert.True(t, v.Equal(dec("1100")))
}

func TestSchedule_EntriesStayOrderedRegardlessOfInsertOrder(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.July), "1200"),
		rentEntry("ten-1", month(2025, time.January), "1000"),
		rentEntry("ten-1", month(2025, time.April), "1100"),
	})

	entries := sched.Entries()
	require.Len(t, entries, 3)
	assert.True(t, entries[0].EffectiveFrom.Equal(month(2025, time.January)))
	assert.True(t, entries[1].EffectiveFrom.Equal(month(2025, time.April)))
	assert.True(t, entries[2].EffectiveFrom.Equal(month(2025, time.July)))

	start, ok := sched.StartMonth()
	require.True(t, ok)
	assert.True(t, start.Equal(month(2025, time.January)))
}

func TestSchedule_ValueAtPicksLatestEffectiveEntry(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
		rentEntry("ten-1", month(2025, time.April), "1100"),
		rentEntry("ten-1", month(2025, time.July), "1200"),
	})

	cases := []struct {
		month ledger.Month
		want  string
	}{
		{month(2025, time.January), "1000"},
		{month(2025, time.March), "1000"},
		{month(2025, time.April), "1100"},
		{month(2025, time.June), "1100"},
		{month(2025, time.July), "1200"},
		{month(2026, time.December), "1200"},
	}
	for _, tc := range cases {
		v, ok := sched.ValueAt(tc.month)
		require.True(t, ok, "value for %v should be defined", tc.month)
		assert.True(t, v.Equal(dec(tc.want)), "value at %v = %v, want %v", tc.month, v, tc.want)
	}
}

func TestSchedule_EntriesReturnsACopy(t *testing.T) {
	sched := ledger.NewSchedule([]ledger.ScheduleEntry{
		rentEntry("ten-1", month(2025, time.January), "1000"),
	})

	entries := sched.Entries()
	entries[0].Value = dec("9999")

	v, _ := sched.ValueAt(month(2025, time.January))
	assert.True(t, v.Equal(dec("1000")), "mutating the returned slice must not corrupt the schedule")
}

func TestValidateScheduleChange_RejectsNonPositiveValues(t *testing.T) {
	current := month(2025, time.June)

	err := ledger.ValidateScheduleChange(
		ledger.ScheduleSalary, "emp-1", month(2025, time.July), decimal.Zero, current)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	err = ledger.ValidateScheduleChange(
		ledger.ScheduleSalary, "emp-1", month(2025, time.July), dec("-5"), current)
	require.Error(t, err)
}

func TestValidateScheduleChange_CurrentMonthIsAllowed(t *testing.T) {
	current := month(2025, time.June)

	err := ledger.ValidateScheduleChange(
		ledger.ScheduleRent, "ten-1", current, dec("1000"), current)
	assert.NoError(t, err, "a change effective the current month is not retroactive")
}

func TestValidateScheduleChange_CarriesContext(t *testing.T) {
	err := ledger.ValidateScheduleChange(
		ledger.ScheduleRent, "ten-1", month(2025, time.March), dec("1000"), month(2025, time.June))

	var retro *ledger.RetroactiveChangeError
	require.ErrorAs(t, err, &retro)
	assert.Equal(t, ledger.SubjectID("ten-1"), retro.Subject)
	assert.True(t, retro.EffectiveFrom.Equal(month(2025, time.March)))
	assert.True(t, retro.CurrentMonth.Equal(month(2025, time.June)))
}
