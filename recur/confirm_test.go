package recur_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/cashflow-engine/recur"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

func TestConfirm_MaterializesProjection(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)

	date := day(2025, time.January, 1)
	tx, err := engine.Confirm(ctx, "user-1", rule.ID, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Status != recur.StatusCompleted {
		t.Errorf("status = %s, want completed", tx.Status)
	}
	if tx.Kind != rule.Kind || tx.Description != rule.Name || tx.Category != rule.Category {
		t.Errorf("transaction did not copy rule fields: %+v", tx)
	}
	if !tx.Amount.Equal(rule.Amount) {
		t.Errorf("amount = %s, want %s", tx.Amount, rule.Amount)
	}
	if !tx.Date.Equal(date) {
		t.Errorf("date = %s, want caller-supplied %s", tx.Date, date)
	}
	if tx.RuleID == nil || *tx.RuleID != rule.ID {
		t.Errorf("transaction does not reference the rule: %+v", tx.RuleID)
	}

	// The confirmed day no longer projects.
	entries, err := engine.Timeline(ctx, "user-1", date, day(2025, time.January, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Projected {
		t.Errorf("timeline after confirm = %+v, want one real entry", entries)
	}
}

func TestConfirm_UpdatesGenerationCache(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)

	date := day(2025, time.February, 1)
	if _, err := engine.Confirm(ctx, "user-1", rule.ID, date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, ok := mem.Rule(rule.ID)
	if !ok {
		t.Fatal("rule disappeared from store")
	}
	if updated.LastGenerated == nil || !updated.LastGenerated.Equal(date) {
		t.Errorf("lastGenerated = %v, want %s", updated.LastGenerated, date)
	}
	wantNext := day(2025, time.March, 1)
	if updated.NextGeneration == nil || !updated.NextGeneration.Equal(wantNext) {
		t.Errorf("nextGeneration = %v, want %s", updated.NextGeneration, wantNext)
	}
}

func TestConfirm_ExactlyOncePerDay(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)

	date := day(2025, time.January, 1)
	if _, err := engine.Confirm(ctx, "user-1", rule.ID, date); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	_, err := engine.Confirm(ctx, "user-1", rule.ID, date)
	if !errors.Is(err, recur.ErrDuplicateOccurrence) {
		t.Fatalf("second confirm error = %v, want ErrDuplicateOccurrence", err)
	}

	ruleID := rule.ID
	txs, err := mem.FindTransactions(ctx, "user-1", date, date, &ruleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("got %d persisted transactions, want exactly one", len(txs))
	}

	// A different day confirms fine.
	if _, err := engine.Confirm(ctx, "user-1", rule.ID, day(2025, time.February, 1)); err != nil {
		t.Errorf("confirm for a different day failed: %v", err)
	}
}

func TestConfirm_RuleNotFound(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	owned := monthlyRule("rule-owned", 1)
	mem.SaveRule(owned)

	now := time.Now()
	deleted := monthlyRule("rule-deleted", 1)
	deleted.DeletedAt = &now
	mem.SaveRule(deleted)

	tests := []struct {
		name   string
		userID recur.UserID
		ruleID recur.RuleID
	}{
		{"unknown rule", "user-1", "rule-missing"},
		{"another user's rule", "user-2", owned.ID},
		{"soft-deleted rule", "user-1", deleted.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Confirm(ctx, tt.userID, tt.ruleID, day(2025, time.January, 1))
			if !errors.Is(err, recur.ErrRuleNotFound) {
				t.Errorf("Confirm() error = %v, want ErrRuleNotFound", err)
			}
		})
	}
}
