/*
Package recur implements the recurrence and timeline projection engine
for the cashflow ledger.

PURPOSE:
  Given user-defined recurrence rules ("salary, monthly, day 15",
  "groceries, biweekly"), this package computes future occurrence dates,
  merges them with persisted transactions into a single timeline view,
  and materializes individual projected occurrences into real
  transactions on confirmation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rule: A recurring financial event template owned by one user
  - Transaction: A persisted financial event, optionally rule-linked
  - ProjectedOccurrence: A synthesized, never-persisted occurrence
  - Entry: One element of the merged timeline (real or projected)

DESIGN PRINCIPLES:
  1. Determinism: All scheduling takes time as an explicit parameter;
     nothing in this package reads the wall clock during computation.
  2. Precision: Uses decimal.Decimal for amounts, never float64.
  3. Projections are ephemeral: A ProjectedOccurrence exists only for
     the duration of one timeline query and is identified by a pure
     function of (rule, date).

SEE ALSO:
  - schedule.go: Next-occurrence calendar arithmetic
  - generate.go: Window enumeration for a single rule
  - timeline.go: Merged real+projected view
  - confirm.go: Materializing a projection
*/
package recur

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RuleID string
type TransactionID string

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Kind classifies a rule or transaction as money in or money out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Frequency is how often a rule produces occurrences.
type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqBiweekly Frequency = "biweekly"
	FreqMonthly  Frequency = "monthly"
	FreqYearly   Frequency = "yearly"
)

// Status of a persisted transaction. Projected occurrences are always
// reported as pending.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// =============================================================================
// RULE - Recurring financial event template
// =============================================================================

// Rule is exclusively owned by one user. Identity is immutable; the
// schedule fields (Frequency, DayOfMonth, DayOfWeek, Interval) are
// mutable and any edit invalidates the generation cache.
//
// DayOfMonth is only meaningful for monthly rules, DayOfWeek only for
// weekly rules, and Interval is always >= 1.
type Rule struct {
	ID       RuleID
	UserID   UserID
	Kind     Kind
	Name     string
	Amount   decimal.Decimal
	Category string

	Frequency  Frequency
	DayOfMonth *int // 1-31, monthly only
	DayOfWeek  *int // 0-6 (Sunday=0), weekly only
	Interval   int

	Active       bool
	AutoGenerate bool
	EndDate      *Day
	Notes        string

	// Advisory generation cache. Maintained by the lifecycle hooks,
	// never read by the timeline.
	LastGenerated  *Day
	NextGeneration *Day

	SyncVersion int
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the rule has been soft-deleted. Deleted rules
// are excluded from all projection.
func (r Rule) Deleted() bool { return r.DeletedAt != nil }

// =============================================================================
// TRANSACTION - Persisted financial event
// =============================================================================

// Transaction is created directly by the user, by confirmation of a
// projected occurrence (status completed), or seeded as pending. Once
// persisted it is real, never projected, regardless of status.
type Transaction struct {
	ID          TransactionID
	UserID      UserID
	Kind        Kind
	Description string
	Amount      decimal.Decimal
	Date        Day
	Category    string
	Status      Status

	// Back-reference to the originating rule, if any. The transaction
	// references the rule; it does not own it.
	RuleID *RuleID

	SyncVersion int
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

func (t Transaction) Deleted() bool { return t.DeletedAt != nil }

// =============================================================================
// PROJECTED OCCURRENCE - Ephemeral, never persisted
// =============================================================================

// ProjectedOccurrence is a synthesized view object describing one
// future occurrence of a rule that no real transaction covers yet. It
// has no independent lifecycle: it exists only inside a timeline
// response, and its ID is a pure function of (rule, date) so clients
// can reference it across queries without it ever being allocated.
type ProjectedOccurrence struct {
	ID       string
	RuleID   RuleID
	Kind     Kind
	Name     string
	Amount   decimal.Decimal
	Category string
	Date     Day
	Status   Status // always StatusPending
}

// ProjectedID derives the stable, collision-free identifier for the
// occurrence of a rule on a given day.
func ProjectedID(ruleID RuleID, date Day) string {
	return fmt.Sprintf("projected-%s-%s", ruleID, date.Key())
}

func newProjectedOccurrence(rule Rule, date Day) ProjectedOccurrence {
	return ProjectedOccurrence{
		ID:       ProjectedID(rule.ID, date),
		RuleID:   rule.ID,
		Kind:     rule.Kind,
		Name:     rule.Name,
		Amount:   rule.Amount,
		Category: rule.Category,
		Date:     date,
		Status:   StatusPending,
	}
}

// =============================================================================
// TIMELINE ENTRY - Real or projected, in one ordered sequence
// =============================================================================

// Entry is one element of the merged timeline. Projected distinguishes
// synthesized occurrences from persisted transactions.
type Entry struct {
	ID          string
	RuleID      *RuleID
	Kind        Kind
	Description string
	Amount      decimal.Decimal
	Category    string
	Date        Day
	Status      Status
	Projected   bool
}

func entryFromTransaction(tx Transaction) Entry {
	return Entry{
		ID:          string(tx.ID),
		RuleID:      tx.RuleID,
		Kind:        tx.Kind,
		Description: tx.Description,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Date:        tx.Date,
		Status:      tx.Status,
		Projected:   false,
	}
}

func entryFromProjected(occ ProjectedOccurrence) Entry {
	ruleID := occ.RuleID
	return Entry{
		ID:          occ.ID,
		RuleID:      &ruleID,
		Kind:        occ.Kind,
		Description: occ.Name,
		Amount:      occ.Amount,
		Category:    occ.Category,
		Date:        occ.Date,
		Status:      occ.Status,
		Projected:   true,
	}
}
