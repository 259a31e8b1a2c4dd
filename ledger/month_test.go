package ledger_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/rentledger/ledger"
)

func TestParseMonth(t *testing.T) {
	m, err := ledger.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.True(t, m.Equal(month(2025, time.March)))

	// A full date parses too; the day is discarded.
	m, err = ledger.ParseMonth("2025-03-17")
	require.NoError(t, err)
	assert.True(t, m.Equal(month(2025, time.March)))

	_, err = ledger.ParseMonth("March 2025")
	assert.Error(t, err)
}

func TestMonth_ArithmeticCrossesYearBoundaries(t *testing.T) {
	assert.True(t, month(2024, time.November).AddMonths(3).Equal(month(2025, time.February)))
	assert.True(t, month(2025, time.January).Prev().Equal(month(2024, time.December)))
	assert.Equal(t, 14, month(2024, time.November).MonthsUntil(month(2026, time.January)))
	assert.Equal(t, -1, month(2025, time.March).MonthsUntil(month(2025, time.February)))
}

func TestMonthsBetween(t *testing.T) {
	months := ledger.MonthsBetween(month(2024, time.December), month(2025, time.February))
	require.Len(t, months, 3)
	assert.True(t, months[0].Equal(month(2024, time.December)))
	assert.True(t, months[2].Equal(month(2025, time.February)))

	assert.Empty(t, ledger.MonthsBetween(month(2025, time.March), month(2025, time.February)))
}

func TestMonth_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(month(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, `"2025-03"`, string(b))

	var m ledger.Month
	require.NoError(t, json.Unmarshal(b, &m))
	assert.True(t, m.Equal(month(2025, time.March)))
}

func TestMonth_Label(t *testing.T) {
	assert.Equal(t, "March 2025", month(2025, time.March).Label())
}

func TestCurrentMonth_ComesFromClock(t *testing.T) {
	clock := ledger.FixedClock{At: time.Date(2025, time.June, 30, 23, 59, 0, 0, time.UTC)}
	assert.True(t, ledger.CurrentMonth(clock).Equal(month(2025, time.June)))
}
