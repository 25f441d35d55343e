package recur_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/recur"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func monthlyRule(id string, dayOfMonth int) recur.Rule {
	return recur.Rule{
		ID:         recur.RuleID(id),
		UserID:     "user-1",
		Kind:       recur.KindExpense,
		Name:       "Rent",
		Amount:     decimal.NewFromInt(2500),
		Category:   "Housing",
		Frequency:  recur.FreqMonthly,
		DayOfMonth: intp(dayOfMonth),
		Interval:   1,
		Active:     true,
	}
}

func dates(occs []recur.ProjectedOccurrence) []string {
	keys := make([]string, len(occs))
	for i, occ := range occs {
		keys[i] = occ.Date.Key()
	}
	return keys
}

// =============================================================================
// WINDOW ENUMERATION
// =============================================================================

func TestOccurrencesInWindow_MonthlyRule(t *testing.T) {
	rule := monthlyRule("rule-1", 1)
	occs := recur.OccurrencesInWindow(rule,
		day(2025, time.January, 1), day(2025, time.March, 31), nil)

	want := []string{"2025-01-01", "2025-02-01", "2025-03-01"}
	if got := dates(occs); !reflect.DeepEqual(got, want) {
		t.Errorf("occurrence dates = %v, want %v", got, want)
	}

	for _, occ := range occs {
		if occ.Status != recur.StatusPending {
			t.Errorf("occurrence %s has status %s, want pending", occ.ID, occ.Status)
		}
		if occ.RuleID != rule.ID {
			t.Errorf("occurrence %s references rule %s, want %s", occ.ID, occ.RuleID, rule.ID)
		}
	}
}

func TestOccurrencesInWindow_SkipsRealDates(t *testing.T) {
	rule := monthlyRule("rule-1", 1)
	real := map[string]bool{"2025-02-01": true}

	occs := recur.OccurrencesInWindow(rule,
		day(2025, time.January, 1), day(2025, time.March, 31), real)

	want := []string{"2025-01-01", "2025-03-01"}
	if got := dates(occs); !reflect.DeepEqual(got, want) {
		t.Errorf("occurrence dates = %v, want %v", got, want)
	}
}

func TestOccurrencesInWindow_Restartable(t *testing.T) {
	rule := monthlyRule("rule-1", 15)
	real := map[string]bool{"2025-02-15": true}
	start, end := day(2025, time.January, 1), day(2025, time.June, 30)

	first := recur.OccurrencesInWindow(rule, start, end, real)
	second := recur.OccurrencesInWindow(rule, start, end, real)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical calls returned different output:\n%v\n%v", first, second)
	}
}

func TestOccurrencesInWindow_DeterministicIdentifiers(t *testing.T) {
	rule := monthlyRule("rule-42", 1)
	occs := recur.OccurrencesInWindow(rule,
		day(2025, time.January, 1), day(2025, time.January, 31), nil)

	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if want := "projected-rule-42-2025-01-01"; occs[0].ID != want {
		t.Errorf("occurrence ID = %q, want %q", occs[0].ID, want)
	}
}

func TestOccurrencesInWindow_SingleDayWindow(t *testing.T) {
	rule := recur.Rule{
		ID: "rule-1", UserID: "user-1", Kind: recur.KindExpense,
		Amount: decimal.NewFromInt(10), Frequency: recur.FreqDaily,
		Interval: 1, Active: true,
	}
	d := day(2025, time.May, 5)

	occs := recur.OccurrencesInWindow(rule, d, d, nil)
	if got := dates(occs); !reflect.DeepEqual(got, []string{"2025-05-05"}) {
		t.Errorf("occurrence dates = %v, want just the window day", got)
	}
}

func TestOccurrencesInWindow_EmptyResults(t *testing.T) {
	active := monthlyRule("rule-1", 1)

	inactive := active
	inactive.Active = false

	now := time.Now()
	deleted := active
	deleted.DeletedAt = &now

	ended := active
	endDate := day(2024, time.December, 31)
	ended.EndDate = &endDate

	tests := []struct {
		name       string
		rule       recur.Rule
		start, end recur.Day
	}{
		{"inactive rule", inactive, day(2025, time.January, 1), day(2025, time.March, 31)},
		{"soft-deleted rule", deleted, day(2025, time.January, 1), day(2025, time.March, 31)},
		{"rule ended before window", ended, day(2025, time.January, 1), day(2025, time.March, 31)},
		{"start after end", active, day(2025, time.March, 31), day(2025, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if occs := recur.OccurrencesInWindow(tt.rule, tt.start, tt.end, nil); occs != nil {
				t.Errorf("got %v, want nil", dates(occs))
			}
		})
	}
}

func TestOccurrencesInWindow_EndDateTruncatesWindow(t *testing.T) {
	rule := monthlyRule("rule-1", 1)
	endDate := day(2025, time.February, 15)
	rule.EndDate = &endDate

	occs := recur.OccurrencesInWindow(rule,
		day(2025, time.January, 1), day(2025, time.June, 30), nil)

	want := []string{"2025-01-01", "2025-02-01"}
	if got := dates(occs); !reflect.DeepEqual(got, want) {
		t.Errorf("occurrence dates = %v, want %v", got, want)
	}
}

func TestOccurrencesInWindow_WeeklyRule(t *testing.T) {
	rule := recur.Rule{
		ID: "rule-1", UserID: "user-1", Kind: recur.KindExpense,
		Amount: decimal.NewFromInt(600), Frequency: recur.FreqWeekly,
		DayOfWeek: intp(1), Interval: 1, Active: true,
	}

	// Every Monday of January 2025.
	occs := recur.OccurrencesInWindow(rule,
		day(2025, time.January, 1), day(2025, time.January, 31), nil)

	want := []string{"2025-01-06", "2025-01-13", "2025-01-20", "2025-01-27"}
	if got := dates(occs); !reflect.DeepEqual(got, want) {
		t.Errorf("occurrence dates = %v, want %v", got, want)
	}
}
