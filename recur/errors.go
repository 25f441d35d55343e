/*
errors.go - Centralized error types for the recurrence engine

ERROR CATEGORIES:
  1. Not-found errors - Rule or transaction absent, deleted, or not
     owned by the caller. Ownership failures deliberately look the
     same as absence.
  2. Conflict errors - A confirmed occurrence already covers the day.
  3. Schedule errors - Malformed frequency configuration, rejected at
     rule-creation time. NextOccurrence itself never fails; unknown
     frequencies degrade to a one-month advance.

USAGE:
  if errors.Is(err, recur.ErrDuplicateOccurrence) { ... }
  if recur.IsNotFound(err) { ... 404 ... }
*/
package recur

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when a rule does not exist, has been
	// soft-deleted, or belongs to a different user.
	ErrRuleNotFound = errors.New("recurrence rule not found")

	// ErrTransactionNotFound is returned when a transaction does not
	// exist, has been soft-deleted, or belongs to a different user.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateOccurrence is returned when a completed transaction
	// already covers the same (rule, calendar day) pair. Confirmation
	// is exactly-once per occurrence.
	ErrDuplicateOccurrence = errors.New("occurrence already confirmed")

	// ErrInvalidSchedule is returned when a rule's frequency
	// configuration is malformed (bad frequency, day-of-month out of
	// range, interval < 1).
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateOccurrenceError reports which day was already confirmed.
type DuplicateOccurrenceError struct {
	RuleID RuleID
	Date   Day
}

func (e *DuplicateOccurrenceError) Error() string {
	return fmt.Sprintf("occurrence already confirmed: rule %s on %s", e.RuleID, e.Date)
}

func (e *DuplicateOccurrenceError) Unwrap() error { return ErrDuplicateOccurrence }

// InvalidScheduleError reports which schedule field is malformed.
type InvalidScheduleError struct {
	Field  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: %s %s", e.Field, e.Reason)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing or foreign resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the error indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateOccurrence)
}
