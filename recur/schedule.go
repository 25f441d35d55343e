/*
schedule.go - Next-occurrence calendar arithmetic

PURPOSE:
  Computes the next calendar occurrence of a rule after a given day.
  This is a pure, total function: identical inputs always yield
  identical output, there is no failure path, and the result is
  strictly after the input day.

FREQUENCY SEMANTICS:
  daily:    from + interval days
  weekly:   to the next matching day-of-week; if from already matches,
            a full interval of weeks ahead (never from itself);
            without a day-of-week, interval*7 days
  biweekly: from + interval*14 days (day-of-week ignored)
  monthly:  interval months ahead, day clamped to the target month's
            length (requesting day 31 in a 30-day month yields day 30)
  yearly:   interval years ahead, same month, day clamped for Feb 29

  Unrecognized frequencies advance one month, keeping the rule's
  existing day. Malformed frequencies are rejected upstream at rule
  creation; here the arithmetic only has to keep terminating.
*/
package recur

import "time"

// NextOccurrence returns the first occurrence strictly after from.
// dayOfMonth and dayOfWeek are optional; interval values below 1 are
// treated as 1.
func NextOccurrence(from Day, freq Frequency, dayOfMonth, dayOfWeek *int, interval int) Day {
	if interval < 1 {
		interval = 1
	}

	switch freq {
	case FreqDaily:
		return from.AddDays(interval)

	case FreqWeekly:
		if dayOfWeek != nil {
			until := *dayOfWeek - int(from.Weekday())
			if until <= 0 {
				until += 7 * interval
			}
			return from.AddDays(until)
		}
		return from.AddDays(7 * interval)

	case FreqBiweekly:
		return from.AddDays(14 * interval)

	case FreqMonthly:
		if dayOfMonth != nil {
			return addMonthsClamped(from, interval, *dayOfMonth)
		}
		return addMonthsClamped(from, interval, from.DayOfMonth())

	case FreqYearly:
		return addYearsClamped(from, interval)

	default:
		// Fallback: one month ahead on the same day.
		return addMonthsClamped(from, 1, from.DayOfMonth())
	}
}

// NextOccurrenceForRule applies a rule's schedule fields.
func NextOccurrenceForRule(rule Rule, from Day) Day {
	return NextOccurrence(from, rule.Frequency, rule.DayOfMonth, rule.DayOfWeek, rule.Interval)
}

// addMonthsClamped advances by whole months and then clamps the target
// day to the target month's length. Explicit year/month arithmetic
// avoids time.AddDate overflow (Jan 31 + 1 month must be a February
// date, never March 3).
func addMonthsClamped(from Day, months, day int) Day {
	total := int(from.Month()) - 1 + months
	year := from.Year() + total/12
	month := time.Month(total%12 + 1)

	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	if day < 1 {
		day = 1
	}
	return NewDay(year, month, day)
}

// addYearsClamped advances by whole years, same month and day, with
// Feb 29 clamping to Feb 28 in non-leap targets.
func addYearsClamped(from Day, years int) Day {
	year := from.Year() + years
	day := from.DayOfMonth()
	if max := DaysInMonth(year, from.Month()); day > max {
		day = max
	}
	return NewDay(year, from.Month(), day)
}

// ValidateSchedule checks a rule's frequency configuration. The
// validation layer calls this at rule creation and edit; the arithmetic
// above never needs it to stay total.
func ValidateSchedule(freq Frequency, dayOfMonth, dayOfWeek *int, interval int) error {
	switch freq {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqYearly:
	default:
		return &InvalidScheduleError{Field: "frequency", Reason: "must be daily, weekly, biweekly, monthly, or yearly"}
	}
	if interval < 1 {
		return &InvalidScheduleError{Field: "interval", Reason: "must be >= 1"}
	}
	if dayOfMonth != nil {
		if freq != FreqMonthly {
			return &InvalidScheduleError{Field: "day_of_month", Reason: "only valid for monthly rules"}
		}
		if *dayOfMonth < 1 || *dayOfMonth > 31 {
			return &InvalidScheduleError{Field: "day_of_month", Reason: "must be between 1 and 31"}
		}
	}
	if dayOfWeek != nil {
		if freq != FreqWeekly {
			return &InvalidScheduleError{Field: "day_of_week", Reason: "only valid for weekly rules"}
		}
		if *dayOfWeek < 0 || *dayOfWeek > 6 {
			return &InvalidScheduleError{Field: "day_of_week", Reason: "must be between 0 and 6"}
		}
	}
	return nil
}
