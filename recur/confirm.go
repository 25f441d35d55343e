/*
confirm.go - Materializing a projected occurrence

PURPOSE:
  Converts one projected occurrence into a persisted transaction. The
  new transaction copies kind, name, amount, and category from the
  rule, carries status completed, and uses the caller-supplied date
  verbatim; the operation trusts the client's date rather than
  recomputing the occurrence.

EXACTLY-ONCE:
  Confirmation is idempotence-guarded at the store, not by a read
  here: the store enforces uniqueness of completed (rule, day) pairs
  inside the same write, so two concurrent confirmations for the same
  occurrence cannot both succeed. The losing call observes
  ErrDuplicateOccurrence.
*/
package recur

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Confirm materializes the rule's occurrence on date as a completed
// transaction. The rule must exist, be owned by userID, and not be
// soft-deleted; otherwise ErrRuleNotFound.
func (e *Engine) Confirm(ctx context.Context, userID UserID, ruleID RuleID, date Day) (*Transaction, error) {
	rule, err := e.Store.FindRule(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		ID:          TransactionID(uuid.NewString()),
		UserID:      userID,
		Kind:        rule.Kind,
		Description: rule.Name,
		Amount:      rule.Amount,
		Date:        date,
		Category:    rule.Category,
		Status:      StatusCompleted,
		RuleID:      &rule.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.Store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("confirm occurrence: %w", err)
	}

	// Refresh the advisory cache from the confirmed date. The cache is
	// never read by the timeline, so a failure here does not undo the
	// insert.
	last, next := MarkGenerated(*rule, date)
	_ = e.Store.UpdateRuleCache(ctx, rule.ID, &last, &next)

	return &tx, nil
}
