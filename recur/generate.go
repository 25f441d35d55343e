/*
generate.go - Occurrence enumeration for one rule over a date window

PURPOSE:
  Enumerates every occurrence of a single rule inside [start, end] and
  emits a ProjectedOccurrence for each date not already covered by a
  real transaction. Side-effect free and restartable: calling twice
  with the same arguments yields the same output.

ALGORITHM:
  The cursor is seeded one day before start, so an occurrence landing
  exactly on start is still produced (NextOccurrence is strictly
  forward). Each iteration computes the next candidate; a candidate
  past end (or past the rule's end date) terminates the loop. After
  every candidate, emitted or skipped, the cursor moves to
  candidate + 1 day, which guarantees forward progress and termination.
*/
package recur

// OccurrencesInWindow enumerates the rule's projected occurrences in
// [start, end]. realDates holds the calendar-day keys of persisted
// transactions already linked to this rule inside the window; any
// candidate on such a day is suppressed rather than double-counted.
//
// Inactive or soft-deleted rules, windows with start after end, and
// rules whose end date precedes the window all yield nil.
func OccurrencesInWindow(rule Rule, start, end Day, realDates map[string]bool) []ProjectedOccurrence {
	if !rule.Active || rule.Deleted() || end.Before(start) {
		return nil
	}
	if rule.EndDate != nil && rule.EndDate.Before(start) {
		return nil
	}

	var occurrences []ProjectedOccurrence
	cursor := start.AddDays(-1)
	for {
		candidate := NextOccurrenceForRule(rule, cursor)
		if candidate.After(end) {
			break
		}
		if rule.EndDate != nil && candidate.After(*rule.EndDate) {
			break
		}
		if candidate.AfterOrEqual(start) && !realDates[candidate.Key()] {
			occurrences = append(occurrences, newProjectedOccurrence(rule, candidate))
		}
		cursor = candidate.AddDays(1)
	}
	return occurrences
}
