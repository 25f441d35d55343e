// Package store provides an in-memory recur.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/cashflow-engine/recur"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	rules        map[recur.RuleID]recur.Rule
	transactions map[recur.TransactionID]recur.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		rules:        make(map[recur.RuleID]recur.Rule),
		transactions: make(map[recur.TransactionID]recur.Transaction),
	}
}

// SaveRule inserts or replaces a rule. Test setup helper.
func (m *Memory) SaveRule(rule recur.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
}

// Rule returns a stored rule regardless of owner or deletion, for
// asserting cache updates in tests.
func (m *Memory) Rule(id recur.RuleID) (recur.Rule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	return rule, ok
}

func (m *Memory) FindActiveRules(_ context.Context, userID recur.UserID) ([]recur.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []recur.Rule
	for _, rule := range m.rules {
		if rule.UserID == userID && rule.Active && !rule.Deleted() {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) FindRule(_ context.Context, userID recur.UserID, ruleID recur.RuleID) (*recur.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[ruleID]
	if !ok || rule.UserID != userID || rule.Deleted() {
		return nil, recur.ErrRuleNotFound
	}
	copied := rule
	return &copied, nil
}

func (m *Memory) FindTransactions(_ context.Context, userID recur.UserID, from, to recur.Day, ruleID *recur.RuleID) ([]recur.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []recur.Transaction
	for _, tx := range m.transactions {
		if tx.UserID != userID || tx.Deleted() {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		if ruleID != nil && (tx.RuleID == nil || *tx.RuleID != *ruleID) {
			continue
		}
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) InsertTransaction(_ context.Context, tx recur.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Same uniqueness rule the SQLite store enforces with a partial
	// unique index: one completed transaction per (rule, day).
	if tx.RuleID != nil && tx.Status == recur.StatusCompleted {
		for _, existing := range m.transactions {
			if existing.Deleted() || existing.RuleID == nil || existing.Status != recur.StatusCompleted {
				continue
			}
			if *existing.RuleID == *tx.RuleID && existing.Date.Key() == tx.Date.Key() {
				return &recur.DuplicateOccurrenceError{RuleID: *tx.RuleID, Date: tx.Date}
			}
		}
	}

	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) UpdateRuleCache(_ context.Context, ruleID recur.RuleID, lastGenerated, nextGeneration *recur.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.rules[ruleID]
	if !ok {
		return recur.ErrRuleNotFound
	}
	if lastGenerated != nil {
		d := *lastGenerated
		rule.LastGenerated = &d
	}
	if nextGeneration != nil {
		d := *nextGeneration
		rule.NextGeneration = &d
	}
	rule.SyncVersion++
	m.rules[ruleID] = rule
	return nil
}

func (m *Memory) FindDueRules(_ context.Context, now recur.Day) ([]recur.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []recur.Rule
	for _, rule := range m.rules {
		if !rule.Active || !rule.AutoGenerate || rule.Deleted() {
			continue
		}
		if rule.NextGeneration == nil || rule.NextGeneration.After(now) {
			continue
		}
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
