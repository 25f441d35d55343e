/*
handlers.go - HTTP API handlers for the cashflow ledger

PURPOSE:
  Exposes the recurrence engine and the rule/transaction resources via
  REST. Handles HTTP request/response, JSON serialization, and
  delegates to the engine and store.

ENDPOINTS:
  Timeline:
    GET    /api/timeline                 Merged real+projected view
  Rules:
    GET    /api/rules                    List rules
    POST   /api/rules                    Create rule
    GET    /api/rules/{id}               Get rule
    PATCH  /api/rules/{id}               Update rule
    DELETE /api/rules/{id}               Soft-delete rule
    POST   /api/rules/{id}/confirm       Confirm a projected occurrence
  Transactions:
    GET    /api/transactions             List transactions
    POST   /api/transactions             Create transaction
    GET    /api/transactions/{id}        Get transaction
    PATCH  /api/transactions/{id}        Update transaction
    DELETE /api/transactions/{id}        Soft-delete transaction

IDENTITY:
  The caller's user ID arrives in the X-User-ID header. Authentication
  itself lives outside this service; ownership checks are still
  enforced by every query.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found (or not owned by caller)
  - 409: Occurrence already confirmed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - recur: The projection engine behind these handlers
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/recur"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// userIDHeader carries the caller identity set by the auth layer in
// front of this service.
const userIDHeader = "X-User-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *recur.Engine

	// Now supplies "today" for default windows and cache computation.
	// Injected so tests control the clock.
	Now func() recur.Day
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: recur.NewEngine(store),
		Now:    recur.Today,
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (recur.UserID, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing "+userIDHeader+" header", nil)
		return "", false
	}
	return recur.UserID(id), true
}

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline returns the merged real+projected view for a date window.
// Without start_date/end_date it covers the current calendar month.
// GET /api/timeline?start_date=2025-01-01&end_date=2025-03-31
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	today := h.Now()
	start, end := recur.StartOfMonth(today), recur.EndOfMonth(today)

	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := recur.ParseDay(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
			return
		}
		start = parsed
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := recur.ParseDay(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		end = parsed
	}

	entries, err := h.Engine.Timeline(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute timeline", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toEntryDTO(entry)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmOccurrence materializes a projected occurrence as a completed
// transaction.
// POST /api/rules/{id}/confirm
func (h *Handler) ConfirmOccurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ruleID := recur.RuleID(chi.URLParam(r, "id"))

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := recur.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	tx, err := h.Engine.Confirm(r.Context(), userID, ruleID, date)
	if err != nil {
		switch {
		case recur.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
		case recur.IsConflict(err):
			writeError(w, http.StatusConflict, "Occurrence already confirmed", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to confirm occurrence", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all of the caller's rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	rules, err := h.Store.ListRules(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	rule, err := h.Store.FindRule(r.Context(), userID, recur.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	writeJSON(w, http.StatusOK, toRuleDTO(*rule))
}

// CreateRule creates a rule and computes its initial nextGeneration.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kind (use income or expense)", err)
		return
	}

	interval := 1
	if req.Interval != nil {
		interval = *req.Interval
	}
	freq := recur.Frequency(req.Frequency)
	if err := recur.ValidateSchedule(freq, req.DayOfMonth, req.DayOfWeek, interval); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}

	var endDate *recur.Day
	if req.EndDate != nil {
		parsed, err := recur.ParseDay(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		endDate = &parsed
	}

	rule := recur.Rule{
		ID:           recur.RuleID(uuid.NewString()),
		UserID:       userID,
		Kind:         kind,
		Name:         req.Name,
		Amount:       decimal.NewFromFloat(req.Amount),
		Category:     req.Category,
		Frequency:    freq,
		DayOfMonth:   req.DayOfMonth,
		DayOfWeek:    req.DayOfWeek,
		Interval:     interval,
		Active:       true,
		AutoGenerate: req.AutoGenerate,
		EndDate:      endDate,
		Notes:        req.Notes,
	}

	next := recur.OnRuleCreated(rule, h.Now())
	rule.NextGeneration = &next

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

// UpdateRule applies a partial update. Schedule-field edits recompute
// nextGeneration.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.Store.FindRule(r.Context(), userID, recur.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	if req.Kind != nil {
		kind, err := parseKind(*req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid kind (use income or expense)", err)
			return
		}
		rule.Kind = kind
	}
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Amount != nil {
		rule.Amount = decimal.NewFromFloat(*req.Amount)
	}
	if req.Category != nil {
		rule.Category = *req.Category
	}
	if req.Frequency != nil {
		rule.Frequency = recur.Frequency(*req.Frequency)
	}
	if req.DayOfMonth != nil {
		rule.DayOfMonth = req.DayOfMonth
	}
	if req.DayOfWeek != nil {
		rule.DayOfWeek = req.DayOfWeek
	}
	if req.Interval != nil {
		rule.Interval = *req.Interval
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if req.AutoGenerate != nil {
		rule.AutoGenerate = *req.AutoGenerate
	}
	if req.EndDate != nil {
		parsed, err := recur.ParseDay(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		rule.EndDate = &parsed
	}
	if req.Notes != nil {
		rule.Notes = *req.Notes
	}

	if err := recur.ValidateSchedule(rule.Frequency, rule.DayOfMonth, rule.DayOfWeek, rule.Interval); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}

	if req.scheduleChanged() {
		next := recur.OnScheduleChanged(*rule, h.Now())
		rule.NextGeneration = &next
	}

	if err := h.Store.UpdateRule(r.Context(), *rule); err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update rule", err)
		return
	}

	rule.SyncVersion++
	writeJSON(w, http.StatusOK, toRuleDTO(*rule))
}

// DeleteRule soft-deletes a rule, excluding it from projection.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	err := h.Store.SoftDeleteRule(r.Context(), userID, recur.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all of the caller's transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	txs, err := h.Store.ListTransactions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	tx, err := h.Store.GetTransaction(r.Context(), userID, recur.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Transaction not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// CreateTransaction persists a user-entered transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kind (use income or expense)", err)
		return
	}
	date, err := recur.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status (use completed or pending)", err)
		return
	}

	var ruleID *recur.RuleID
	if req.RuleID != nil {
		// The rule must exist and belong to the caller before a
		// transaction may reference it.
		rule, err := h.Store.FindRule(r.Context(), userID, recur.RuleID(*req.RuleID))
		if err != nil {
			if recur.IsNotFound(err) {
				writeError(w, http.StatusNotFound, "Recurrence rule not found", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
			return
		}
		ruleID = &rule.ID
	}

	tx := recur.Transaction{
		ID:          recur.TransactionID(uuid.NewString()),
		UserID:      userID,
		Kind:        kind,
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		Date:        date,
		Category:    req.Category,
		Status:      status,
		RuleID:      ruleID,
	}

	if err := h.Store.InsertTransaction(r.Context(), tx); err != nil {
		if recur.IsConflict(err) {
			writeError(w, http.StatusConflict, "Occurrence already confirmed", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateTransaction applies a partial update.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Store.GetTransaction(r.Context(), userID, recur.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Transaction not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
		return
	}

	if req.Kind != nil {
		kind, err := parseKind(*req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid kind (use income or expense)", err)
			return
		}
		tx.Kind = kind
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.Amount != nil {
		tx.Amount = decimal.NewFromFloat(*req.Amount)
	}
	if req.Date != nil {
		date, err := recur.ParseDay(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		tx.Date = date
	}
	if req.Category != nil {
		tx.Category = *req.Category
	}
	if req.Status != nil {
		status, err := parseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status (use completed or pending)", err)
			return
		}
		tx.Status = status
	}

	if err := h.Store.UpdateTransaction(r.Context(), *tx); err != nil {
		switch {
		case recur.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Transaction not found", err)
		case recur.IsConflict(err):
			writeError(w, http.StatusConflict, "Occurrence already confirmed", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update transaction", err)
		}
		return
	}

	tx.SyncVersion++
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction soft-deletes a transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	err := h.Store.SoftDeleteTransaction(r.Context(), userID, recur.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		if recur.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Transaction not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseKind(s string) (recur.Kind, error) {
	switch recur.Kind(s) {
	case recur.KindIncome, recur.KindExpense:
		return recur.Kind(s), nil
	}
	return "", errors.New("unknown kind: " + s)
}

func parseStatus(s string) (recur.Status, error) {
	switch recur.Status(s) {
	case recur.StatusCompleted, recur.StatusPending:
		return recur.Status(s), nil
	}
	return "", errors.New("unknown status: " + s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
