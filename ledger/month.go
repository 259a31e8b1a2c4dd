package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - The engine's unit of time (everything is month-start normalized)
// =============================================================================

// Month is a calendar month. All schedule lookups, due computations, and
// payment groupings operate at this granularity; day-of-month never matters
// past the I/O edge.
type Month struct {
	Year  int
	Month time.Month
}

// Constructors
func NewMonth(year int, month time.Month) Month { return Month{Year: year, Month: month} }

// MonthOf truncates a timestamp to its calendar month.
func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }

// ParseMonth accepts "2006-01" and "2006-01-02" (day discarded).
func ParseMonth(s string) (Month, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("malformed month %q (want YYYY-MM)", s)
}

// Comparison
func (m Month) index() int             { return m.Year*12 + int(m.Month) - 1 }
func (m Month) Before(o Month) bool    { return m.index() < o.index() }
func (m Month) After(o Month) bool     { return m.index() > o.index() }
func (m Month) Equal(o Month) bool     { return m.index() == o.index() }
func (m Month) BeforeOrEqual(o Month) bool { return !m.After(o) }
func (m Month) AfterOrEqual(o Month) bool  { return !m.Before(o) }
func (m Month) IsZero() bool           { return m.Year == 0 && m.Month == 0 }

// Arithmetic
func (m Month) AddMonths(n int) Month {
	idx := m.index() + n
	year, rem := idx/12, idx%12
	if rem < 0 {
		year, rem = year-1, rem+12
	}
	return Month{Year: year, Month: time.Month(rem + 1)}
}

func (m Month) Next() Month { return m.AddMonths(1) }
func (m Month) Prev() Month { return m.AddMonths(-1) }

// MonthsUntil counts whole months from m to o (negative if o precedes m).
func (m Month) MonthsUntil(o Month) int { return o.index() - m.index() }

// Time returns the month-start instant (first day, UTC).
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string { return m.Time().Format("2006-01") }

// Label is the human form used in status output, e.g. "March 2025".
func (m Month) Label() string { return m.Time().Format("January 2006") }

// MarshalText/UnmarshalText make Month a JSON string ("2025-03") in DTOs
// and a usable map key.
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// LatestMonth returns the latest of the given months.
func LatestMonth(first Month, rest ...Month) Month {
	latest := first
	for _, m := range rest {
		if m.After(latest) {
			latest = m
		}
	}
	return latest
}

// MonthsBetween returns every month from from to to inclusive, in order.
// Empty when to precedes from.
func MonthsBetween(from, to Month) []Month {
	if to.Before(from) {
		return nil
	}
	months := make([]Month, 0, from.MonthsUntil(to)+1)
	for m := from; m.BeforeOrEqual(to); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// =============================================================================
// CLOCK - Injected "current month" so the engine stays deterministic
// =============================================================================

// Clock supplies the current instant. The engine never reads the system
// clock directly; retroactivity checks and reconciliation windows take the
// current month from an injected Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock pins time for tests and demo datasets.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// CurrentMonth is the month the given clock says it is.
func CurrentMonth(c Clock) Month { return MonthOf(c.Now()) }
