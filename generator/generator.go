/*
Package generator materializes due occurrences for auto-generating
rules.

PURPOSE:
  Rules flagged auto_generate don't wait for the user to confirm each
  occurrence: a background worker creates the transaction as soon as
  the rule's nextGeneration date arrives. The worker is the one
  consumer of the generation cache; the timeline never reads it.

DESIGN:
  - ProcessDue is a single synchronous pass, driven by an explicit
    "now" so it stays deterministic and testable.
  - The same (rule, day) uniqueness guard used by confirmation makes a
    pass duplicate-safe: if an occurrence was already confirmed
    manually, the insert fails and only the cache advances.
  - The ticker loop lives in cmd/generator; this package has no clock.
*/
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/cashflow-engine/recur"
)

// Processor runs auto-generation passes over a store.
type Processor struct {
	Store recur.DueRuleStore
}

func NewProcessor(store recur.DueRuleStore) *Processor {
	return &Processor{Store: store}
}

// ProcessDue materializes one occurrence for every active auto-generate
// rule whose nextGeneration is on or before now, then advances the
// rule's cache. Returns the number of transactions created.
func (p *Processor) ProcessDue(ctx context.Context, now recur.Day) (int, error) {
	rules, err := p.Store.FindDueRules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find due rules: %w", err)
	}

	created := 0
	for _, rule := range rules {
		date := now
		if rule.NextGeneration != nil {
			date = *rule.NextGeneration
		}

		tx := recur.Transaction{
			ID:          recur.TransactionID(uuid.NewString()),
			UserID:      rule.UserID,
			Kind:        rule.Kind,
			Description: rule.Name,
			Amount:      rule.Amount,
			Date:        date,
			Category:    rule.Category,
			Status:      recur.StatusCompleted,
			RuleID:      &rule.ID,
			CreatedAt:   time.Now().UTC(),
		}

		switch err := p.Store.InsertTransaction(ctx, tx); {
		case err == nil:
			created++
			slog.InfoContext(ctx, "generated transaction from rule",
				"rule_id", rule.ID,
				"date", date,
				"amount", rule.Amount)
		case recur.IsConflict(err):
			// Already confirmed by hand. Advance the cache anyway so
			// the rule doesn't stay due forever.
			slog.InfoContext(ctx, "occurrence already covered, skipping",
				"rule_id", rule.ID,
				"date", date)
		default:
			slog.ErrorContext(ctx, "failed to generate transaction",
				"rule_id", rule.ID,
				"date", date,
				"error", err)
			continue
		}

		last, next := recur.MarkGenerated(rule, now)
		if err := p.Store.UpdateRuleCache(ctx, rule.ID, &last, &next); err != nil {
			slog.ErrorContext(ctx, "failed to update rule cache",
				"rule_id", rule.ID,
				"error", err)
		}
	}

	return created, nil
}
