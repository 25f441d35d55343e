/*
timeline.go - Merged real + projected view over a date window

PURPOSE:
  Produces the single chronological sequence a client renders: every
  persisted transaction in the window, plus every projected occurrence
  of every active rule, with real transactions suppressing the
  projection for their (rule, day).

ORDERING:
  Descending by date. Entries sharing a date order real before
  projected, then by identifier ascending. The tie-break is a
  documented choice, not incidental sort stability.

SIDE EFFECTS:
  None. The timeline is a derived view, never stored, and it never
  reads the rules' generation cache.
*/
package recur

import (
	"context"
	"fmt"
	"sort"
)

// Engine exposes the projection operations over a Store collaborator.
type Engine struct {
	Store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store}
}

// Timeline returns the user's merged timeline for [start, end],
// descending by date. The merged sequence never contains both a real
// transaction and a projection for the same (rule, calendar day).
func (e *Engine) Timeline(ctx context.Context, userID UserID, start, end Day) ([]Entry, error) {
	txs, err := e.Store.FindTransactions(ctx, userID, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	rules, err := e.Store.FindActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	// Calendar-day keys of rule-linked transactions, per rule. These
	// are the dates the generator must not project again.
	linked := make(map[RuleID]map[string]bool)
	for _, tx := range txs {
		if tx.RuleID == nil {
			continue
		}
		if linked[*tx.RuleID] == nil {
			linked[*tx.RuleID] = make(map[string]bool)
		}
		linked[*tx.RuleID][tx.Date.Key()] = true
	}

	entries := make([]Entry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, entryFromTransaction(tx))
	}
	for _, rule := range rules {
		for _, occ := range OccurrencesInWindow(rule, start, end, linked[rule.ID]) {
			entries = append(entries, entryFromProjected(occ))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Projected != b.Projected {
			return !a.Projected
		}
		return a.ID < b.ID
	})

	return entries, nil
}
