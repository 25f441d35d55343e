package recur

import (
	"strings"
	"time"
)

// =============================================================================
// DAY - Calendar-day time abstraction (the engine works in whole days)
// =============================================================================

// DayFormat is the wire and key format for calendar days.
const DayFormat = "2006-01-02"

// Day is a calendar day, normalized to midnight UTC. All scheduling and
// deduplication in this package compares days, never instants, so two
// transactions at different hours of the same date always collide on Key.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an instant to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return NewDay(u.Year(), u.Month(), u.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// Today returns the current UTC calendar day. Core operations never call
// this internally; time is always injected by the caller.
func Today() Day {
	return DayOf(time.Now())
}

// Comparison
func (d Day) Before(other Day) bool       { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool        { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool        { return d.Time.Equal(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.Before(other) }
func (d Day) IsZero() bool                { return d.Time.IsZero() }

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) Year() int             { return d.Time.Year() }
func (d Day) Month() time.Month     { return d.Time.Month() }
func (d Day) DayOfMonth() int       { return d.Time.Day() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }

// Key returns the calendar-day key used for real-vs-projected
// deduplication and for deterministic projected identifiers.
func (d Day) Key() string { return d.Time.Format(DayFormat) }

func (d Day) String() string { return d.Key() }

// JSON round-trips as "YYYY-MM-DD".
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

func (d *Day) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// MONTH UTILITIES
// =============================================================================

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfMonth and EndOfMonth bound the default timeline window.
func StartOfMonth(d Day) Day { return NewDay(d.Year(), d.Month(), 1) }
func EndOfMonth(d Day) Day   { return NewDay(d.Year(), d.Month(), DaysInMonth(d.Year(), d.Month())) }
