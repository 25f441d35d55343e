/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the wire contract. Amounts cross the wire as floats; internally
  everything is decimal.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation happens in handlers (and recur.ValidateSchedule for
  frequency configuration); DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/warp/cashflow-engine/recur"
)

// =============================================================================
// RULES
// =============================================================================

// RuleDTO represents a recurrence rule in API responses.
type RuleDTO struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	Frequency      string  `json:"frequency"`
	DayOfMonth     *int    `json:"day_of_month,omitempty"`
	DayOfWeek      *int    `json:"day_of_week,omitempty"`
	Interval       int     `json:"interval"`
	Active         bool    `json:"active"`
	AutoGenerate   bool    `json:"auto_generate"`
	EndDate        *string `json:"end_date,omitempty"`
	LastGenerated  *string `json:"last_generated,omitempty"`
	NextGeneration *string `json:"next_generation,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// CreateRuleRequest is the request to create a rule.
type CreateRuleRequest struct {
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Category     string  `json:"category"`
	Frequency    string  `json:"frequency"`
	DayOfMonth   *int    `json:"day_of_month"`
	DayOfWeek    *int    `json:"day_of_week"`
	Interval     *int    `json:"interval"`
	AutoGenerate bool    `json:"auto_generate"`
	EndDate      *string `json:"end_date"`
	Notes        string  `json:"notes"`
}

// UpdateRuleRequest is a partial rule update; nil fields are unchanged.
type UpdateRuleRequest struct {
	Kind         *string  `json:"kind"`
	Name         *string  `json:"name"`
	Amount       *float64 `json:"amount"`
	Category     *string  `json:"category"`
	Frequency    *string  `json:"frequency"`
	DayOfMonth   *int     `json:"day_of_month"`
	DayOfWeek    *int     `json:"day_of_week"`
	Interval     *int     `json:"interval"`
	Active       *bool    `json:"active"`
	AutoGenerate *bool    `json:"auto_generate"`
	EndDate      *string  `json:"end_date"`
	Notes        *string  `json:"notes"`
}

// scheduleChanged reports whether the patch touches any field that
// invalidates the generation cache.
func (r UpdateRuleRequest) scheduleChanged() bool {
	return r.Frequency != nil || r.DayOfMonth != nil || r.DayOfWeek != nil || r.Interval != nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a persisted transaction in API responses.
type TransactionDTO struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	RuleID      *string `json:"recurrence_rule_id,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// CreateTransactionRequest is the request to create a transaction.
type CreateTransactionRequest struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	RuleID      *string `json:"recurrence_rule_id"`
}

// UpdateTransactionRequest is a partial transaction update.
type UpdateTransactionRequest struct {
	Kind        *string  `json:"kind"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Date        *string  `json:"date"`
	Category    *string  `json:"category"`
	Status      *string  `json:"status"`
}

// ConfirmRequest carries the occurrence date being confirmed.
type ConfirmRequest struct {
	Date string `json:"date"`
}

// =============================================================================
// TIMELINE
// =============================================================================

// EntryDTO is one element of the merged timeline. Projected entries
// carry a synthesized identifier and are never persisted.
type EntryDTO struct {
	ID          string  `json:"id"`
	RuleID      *string `json:"recurrence_rule_id,omitempty"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
	Category    string  `json:"category"`
	Projected   bool    `json:"projected"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRuleDTO(rule recur.Rule) RuleDTO {
	amount, _ := rule.Amount.Float64()
	return RuleDTO{
		ID:             string(rule.ID),
		Kind:           string(rule.Kind),
		Name:           rule.Name,
		Amount:         amount,
		Category:       rule.Category,
		Frequency:      string(rule.Frequency),
		DayOfMonth:     rule.DayOfMonth,
		DayOfWeek:      rule.DayOfWeek,
		Interval:       rule.Interval,
		Active:         rule.Active,
		AutoGenerate:   rule.AutoGenerate,
		EndDate:        dayString(rule.EndDate),
		LastGenerated:  dayString(rule.LastGenerated),
		NextGeneration: dayString(rule.NextGeneration),
		Notes:          rule.Notes,
		CreatedAt:      formatCreatedAt(rule.CreatedAt),
	}
}

func toTransactionDTO(tx recur.Transaction) TransactionDTO {
	amount, _ := tx.Amount.Float64()
	var ruleID *string
	if tx.RuleID != nil {
		s := string(*tx.RuleID)
		ruleID = &s
	}
	return TransactionDTO{
		ID:          string(tx.ID),
		Kind:        string(tx.Kind),
		Description: tx.Description,
		Amount:      amount,
		Date:        tx.Date.Key(),
		Category:    tx.Category,
		Status:      string(tx.Status),
		RuleID:      ruleID,
		CreatedAt:   formatCreatedAt(tx.CreatedAt),
	}
}

func toEntryDTO(entry recur.Entry) EntryDTO {
	amount, _ := entry.Amount.Float64()
	var ruleID *string
	if entry.RuleID != nil {
		s := string(*entry.RuleID)
		ruleID = &s
	}
	return EntryDTO{
		ID:          entry.ID,
		RuleID:      ruleID,
		Kind:        string(entry.Kind),
		Description: entry.Description,
		Amount:      amount,
		Date:        entry.Date.Key(),
		Status:      string(entry.Status),
		Category:    entry.Category,
		Projected:   entry.Projected,
	}
}

func dayString(d *recur.Day) *string {
	if d == nil {
		return nil
	}
	s := d.Key()
	return &s
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
