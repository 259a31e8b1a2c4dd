package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMMISSION - Time-effective percentage fee on collected rent
// =============================================================================

var oneHundred = decimal.NewFromInt(100)

// RateTable is the global commission-rate schedule. Unlike rent and salary
// lookups, an unset rate is not "skip the month"; it is simply 0%.
type RateTable struct {
	sched Schedule
}

func NewRateTable(sched Schedule) RateTable { return RateTable{sched: sched} }

// RateAt returns the percentage effective for the month, defaulting to 0.
func (rt RateTable) RateAt(m Month) decimal.Decimal {
	rate, ok := rt.sched.ValueAt(m)
	if !ok {
		return decimal.Zero
	}
	return rate
}

// FeeOn computes the fee owed on a collected amount recorded on a given
// date: collected × rate(month of recordedOn) / 100, rounded to 2 decimals,
// half away from zero.
func (rt RateTable) FeeOn(collected decimal.Decimal, recordedOn time.Time) decimal.Decimal {
	return CommissionFee(collected, rt.RateAt(MonthOf(recordedOn)))
}

// CommissionFee applies a percentage to a collected amount with 2-decimal
// rounding.
func CommissionFee(collected, rate decimal.Decimal) decimal.Decimal {
	return collected.Mul(rate).Div(oneHundred).Round(2)
}
