package recur_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/recur"
	"github.com/warp/cashflow-engine/recur/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine() (*recur.Engine, *store.Memory) {
	mem := store.NewMemory()
	return recur.NewEngine(mem), mem
}

func linkedTx(id string, userID string, ruleID recur.RuleID, d recur.Day, status recur.Status) recur.Transaction {
	return recur.Transaction{
		ID:          recur.TransactionID(id),
		UserID:      recur.UserID(userID),
		Kind:        recur.KindExpense,
		Description: "Rent",
		Amount:      decimal.NewFromInt(2500),
		Date:        d,
		Category:    "Housing",
		Status:      status,
		RuleID:      &ruleID,
	}
}

// =============================================================================
// MERGED TIMELINE
// =============================================================================

func TestTimeline_RealSuppressesProjection(t *testing.T) {
	// GIVEN: A monthly day-1 rule and one real transaction on Feb 1
	// WHEN: Querying January through March
	// THEN: Jan 1 projected, Feb 1 real, Mar 1 projected - three entries,
	//       no duplicate for February

	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)
	if err := mem.InsertTransaction(ctx, linkedTx("tx-1", "user-1", rule.ID, day(2025, time.February, 1), recur.StatusCompleted)); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	entries, err := engine.Timeline(ctx, "user-1", day(2025, time.January, 1), day(2025, time.March, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}

	// Descending by date.
	wantDates := []string{"2025-03-01", "2025-02-01", "2025-01-01"}
	wantProjected := []bool{true, false, true}
	for i, entry := range entries {
		if entry.Date.Key() != wantDates[i] {
			t.Errorf("entry %d date = %s, want %s", i, entry.Date.Key(), wantDates[i])
		}
		if entry.Projected != wantProjected[i] {
			t.Errorf("entry %d projected = %v, want %v", i, entry.Projected, wantProjected[i])
		}
	}

	if entries[1].ID != "tx-1" {
		t.Errorf("February entry ID = %s, want the real transaction", entries[1].ID)
	}
}

func TestTimeline_NeverDuplicatesRuleDay(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 15)
	mem.SaveRule(rule)

	// Real coverage for two of the four months, one of them pending.
	// Pending transactions are real once persisted and suppress
	// projections just the same.
	mem.InsertTransaction(ctx, linkedTx("tx-1", "user-1", rule.ID, day(2025, time.February, 15), recur.StatusCompleted))
	mem.InsertTransaction(ctx, linkedTx("tx-2", "user-1", rule.ID, day(2025, time.April, 15), recur.StatusPending))

	entries, err := engine.Timeline(ctx, "user-1", day(2025, time.January, 1), day(2025, time.April, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.RuleID == nil {
			continue
		}
		key := string(*entry.RuleID) + "/" + entry.Date.Key()
		if seen[key] {
			t.Errorf("duplicate (rule, day) pair in timeline: %s", key)
		}
		seen[key] = true
	}

	if len(entries) != 4 {
		t.Errorf("got %d entries, want 4 (Jan proj, Feb real, Mar proj, Apr real)", len(entries))
	}
}

func TestTimeline_UnlinkedTransactionDoesNotSuppress(t *testing.T) {
	// A manual transaction on the same day, not linked to the rule,
	// must not swallow the projection.
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)

	manual := recur.Transaction{
		ID: "tx-manual", UserID: "user-1", Kind: recur.KindExpense,
		Description: "One-off repair", Amount: decimal.NewFromInt(300),
		Date: day(2025, time.January, 1), Category: "Housing",
		Status: recur.StatusCompleted,
	}
	mem.InsertTransaction(ctx, manual)

	entries, err := engine.Timeline(ctx, "user-1", day(2025, time.January, 1), day(2025, time.January, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want the manual transaction plus the projection", len(entries))
	}

	// Same-day tie-break: real before projected.
	if entries[0].Projected || !entries[1].Projected {
		t.Errorf("tie-break wrong: got projected flags [%v, %v], want [false, true]",
			entries[0].Projected, entries[1].Projected)
	}
}

func TestTimeline_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	mine := monthlyRule("rule-mine", 1)
	mem.SaveRule(mine)

	theirs := monthlyRule("rule-theirs", 1)
	theirs.UserID = "user-2"
	mem.SaveRule(theirs)
	mem.InsertTransaction(ctx, linkedTx("tx-theirs", "user-2", theirs.ID, day(2025, time.January, 20), recur.StatusCompleted))

	entries, err := engine.Timeline(ctx, "user-1", day(2025, time.January, 1), day(2025, time.January, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, entry := range entries {
		if entry.RuleID != nil && *entry.RuleID != mine.ID {
			t.Errorf("timeline leaked another user's entry: %+v", entry)
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want only user-1's January projection", len(entries))
	}
}

func TestTimeline_Restartable(t *testing.T) {
	ctx := context.Background()
	engine, mem := newTestEngine()

	rule := monthlyRule("rule-1", 1)
	mem.SaveRule(rule)
	mem.InsertTransaction(ctx, linkedTx("tx-1", "user-1", rule.ID, day(2025, time.February, 1), recur.StatusCompleted))

	start, end := day(2025, time.January, 1), day(2025, time.March, 31)
	first, err := engine.Timeline(ctx, "user-1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Timeline(ctx, "user-1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("two identical queries returned %d and %d entries", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || !first[i].Date.Equal(second[i].Date) {
			t.Errorf("entry %d differs between identical queries: %+v vs %+v", i, first[i], second[i])
		}
	}
}
