/*
store.go - Persistence collaborator interface

PURPOSE:
  Defines what the engine needs from its persistence layer. The engine
  treats these as opaque request/response calls; it holds no state of
  its own and requires no locking.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - recur/store: In-memory store for tests and dev
*/
package recur

import "context"

// Store is the persistence collaborator consumed by the engine.
type Store interface {
	// FindActiveRules returns the user's active, non-deleted rules.
	FindActiveRules(ctx context.Context, userID UserID) ([]Rule, error)

	// FindRule returns one rule owned by the user. Missing, foreign,
	// and soft-deleted rules all surface as ErrRuleNotFound.
	FindRule(ctx context.Context, userID UserID, ruleID RuleID) (*Rule, error)

	// FindTransactions returns the user's non-deleted transactions
	// with dates in [from, to], most recent first. A non-nil ruleID
	// restricts the result to transactions linked to that rule.
	FindTransactions(ctx context.Context, userID UserID, from, to Day, ruleID *RuleID) ([]Transaction, error)

	// InsertTransaction persists a new transaction. Inserting a second
	// completed transaction for the same (rule, calendar day) pair
	// fails with ErrDuplicateOccurrence.
	InsertTransaction(ctx context.Context, tx Transaction) error

	// UpdateRuleCache persists the advisory lastGenerated and
	// nextGeneration fields. Nil leaves a field unchanged.
	UpdateRuleCache(ctx context.Context, ruleID RuleID, lastGenerated, nextGeneration *Day) error
}

// DueRuleStore extends Store for the background generation worker.
type DueRuleStore interface {
	Store

	// FindDueRules returns active auto-generate rules, across all
	// users, whose nextGeneration is on or before now.
	FindDueRules(ctx context.Context, now Day) ([]Rule, error)
}
