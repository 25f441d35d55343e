/*
lifecycle.go - Rule generation-cache hooks

PURPOSE:
  Maintains each rule's lastGenerated / nextGeneration fields. The pair
  is a denormalized optimization so collaborators can answer "when is
  this rule due next" without a window scan. It is advisory only: the
  timeline recomputes occurrences from scratch and never reads it.

INVALIDATION CONTRACT:
  nextGeneration is recomputed on rule creation, on any schedule-field
  edit, and after each confirmation or auto-generation. Callers pass
  the reference time explicitly; these hooks never read the clock.
*/
package recur

// NextGenerationAt computes the rule's next occurrence strictly after now.
func NextGenerationAt(rule Rule, now Day) Day {
	return NextOccurrenceForRule(rule, now)
}

// OnRuleCreated returns the initial nextGeneration for a new rule.
func OnRuleCreated(rule Rule, now Day) Day {
	return NextGenerationAt(rule, now)
}

// OnScheduleChanged returns the refreshed nextGeneration after an edit
// to any of the rule's schedule fields.
func OnScheduleChanged(rule Rule, now Day) Day {
	return NextGenerationAt(rule, now)
}

// MarkGenerated records that an occurrence was materialized at now and
// returns the updated cache pair.
func MarkGenerated(rule Rule, now Day) (lastGenerated, nextGeneration Day) {
	return now, NextGenerationAt(rule, now)
}
