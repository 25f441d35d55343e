/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Implements recur.Store (the engine's persistence collaborator) plus
  the rule and transaction CRUD consumed by the API layer. The same
  patterns apply to PostgreSQL with minor dialect changes.

KEY TABLES:
  recurrence_rules: Rule templates with soft delete and the advisory
                    generation cache (last_generated, next_generation)
  transactions:     Persisted financial events with soft delete

SOFT DELETE:
  Rows are never removed; deleted_at marks them. Every read filters
  deleted rows, so soft-deleted rules drop out of projection and
  soft-deleted transactions drop out of the timeline.

EXACTLY-ONCE CONFIRMATION:
  uq_confirmed_occurrence is a partial unique index over completed,
  rule-linked, non-deleted transactions: one per (rule, calendar day).
  Two racing confirmations for the same occurrence therefore resolve
  inside SQLite; the loser maps to recur.ErrDuplicateOccurrence.

DATES:
  Calendar days are stored as YYYY-MM-DD text, timestamps as RFC3339.

WAL MODE:
  Opened with WAL and foreign keys on. Readers don't block each other;
  a sync.RWMutex serializes writers in-process.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/recur"
)

// Store implements the persistence interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recurrence_rules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		frequency TEXT NOT NULL,
		day_of_month INTEGER,
		day_of_week INTEGER,
		interval INTEGER NOT NULL DEFAULT 1,
		active INTEGER NOT NULL DEFAULT 1,
		auto_generate INTEGER NOT NULL DEFAULT 0,
		end_date TEXT,
		last_generated TEXT,
		next_generation TEXT,
		notes TEXT NOT NULL DEFAULT '',
		sync_version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_rules_user_active
		ON recurrence_rules(user_id, active);
	CREATE INDEX IF NOT EXISTS idx_rules_next_generation
		ON recurrence_rules(next_generation);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		recurrence_rule_id TEXT REFERENCES recurrence_rules(id),
		sync_version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_rule_date
		ON transactions(recurrence_rule_id, date);

	-- One completed transaction per (rule, day). Confirmation and
	-- auto-generation both rely on this for exactly-once semantics.
	CREATE UNIQUE INDEX IF NOT EXISTS uq_confirmed_occurrence
		ON transactions(recurrence_rule_id, date)
		WHERE recurrence_rule_id IS NOT NULL
		  AND status = 'completed'
		  AND deleted_at IS NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RULES - Engine collaborator queries
// =============================================================================

const ruleColumns = `id, user_id, kind, name, amount, category, frequency,
	day_of_month, day_of_week, interval, active, auto_generate, end_date,
	last_generated, next_generation, notes, sync_version, created_at, deleted_at`

func (s *Store) FindActiveRules(ctx context.Context, userID recur.UserID) ([]recur.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM recurrence_rules
		WHERE user_id = ? AND active = 1 AND deleted_at IS NULL
		ORDER BY next_generation ASC, id ASC
	`, ruleColumns)

	return s.queryRules(ctx, query, userID)
}

func (s *Store) FindRule(ctx context.Context, userID recur.UserID, ruleID recur.RuleID) (*recur.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM recurrence_rules
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, ruleColumns)

	rules, err := s.queryRules(ctx, query, ruleID, userID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, recur.ErrRuleNotFound
	}
	return &rules[0], nil
}

func (s *Store) FindDueRules(ctx context.Context, now recur.Day) ([]recur.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM recurrence_rules
		WHERE active = 1 AND auto_generate = 1 AND deleted_at IS NULL
		  AND next_generation IS NOT NULL AND next_generation <= ?
		ORDER BY next_generation ASC, id ASC
	`, ruleColumns)

	return s.queryRules(ctx, query, now.Key())
}

func (s *Store) UpdateRuleCache(ctx context.Context, ruleID recur.RuleID, lastGenerated, nextGeneration *recur.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE recurrence_rules
		SET last_generated = COALESCE(?, last_generated),
		    next_generation = COALESCE(?, next_generation),
		    sync_version = sync_version + 1
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, nullDay(lastGenerated), nullDay(nextGeneration), ruleID)
	if err != nil {
		return fmt.Errorf("failed to update rule cache: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return recur.ErrRuleNotFound
	}
	return nil
}

// =============================================================================
// RULES - CRUD used by the API layer
// =============================================================================

// SaveRule inserts a new rule.
func (s *Store) SaveRule(ctx context.Context, rule recur.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recurrence_rules
		(id, user_id, kind, name, amount, category, frequency, day_of_month,
		 day_of_week, interval, active, auto_generate, end_date, last_generated,
		 next_generation, notes, sync_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.UserID, rule.Kind, rule.Name, rule.Amount.String(),
		rule.Category, rule.Frequency, nullInt(rule.DayOfMonth), nullInt(rule.DayOfWeek),
		rule.Interval, rule.Active, rule.AutoGenerate, nullDay(rule.EndDate),
		nullDay(rule.LastGenerated), nullDay(rule.NextGeneration), rule.Notes,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// ListRules returns all of a user's non-deleted rules, newest first.
func (s *Store) ListRules(ctx context.Context, userID recur.UserID) ([]recur.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM recurrence_rules
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id ASC
	`, ruleColumns)

	return s.queryRules(ctx, query, userID)
}

// UpdateRule replaces the mutable fields of an existing rule and bumps
// its sync version. The caller refreshes NextGeneration first when the
// schedule changed.
func (s *Store) UpdateRule(ctx context.Context, rule recur.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE recurrence_rules
		SET kind = ?, name = ?, amount = ?, category = ?, frequency = ?,
		    day_of_month = ?, day_of_week = ?, interval = ?, active = ?,
		    auto_generate = ?, end_date = ?, last_generated = ?,
		    next_generation = ?, notes = ?, sync_version = sync_version + 1
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.Kind, rule.Name, rule.Amount.String(), rule.Category, rule.Frequency,
		nullInt(rule.DayOfMonth), nullInt(rule.DayOfWeek), rule.Interval,
		rule.Active, rule.AutoGenerate, nullDay(rule.EndDate),
		nullDay(rule.LastGenerated), nullDay(rule.NextGeneration), rule.Notes,
		rule.ID, rule.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return recur.ErrRuleNotFound
	}
	return nil
}

// SoftDeleteRule marks the rule deleted and deactivates it, excluding
// it from projection from that point on.
func (s *Store) SoftDeleteRule(ctx context.Context, userID recur.UserID, ruleID recur.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE recurrence_rules
		SET deleted_at = ?, active = 0, sync_version = sync_version + 1
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), ruleID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return recur.ErrRuleNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS - Engine collaborator queries
// =============================================================================

const txColumns = `id, user_id, kind, description, amount, date, category,
	status, recurrence_rule_id, sync_version, created_at, deleted_at`

func (s *Store) FindTransactions(ctx context.Context, userID recur.UserID, from, to recur.Day, ruleID *recur.RuleID) ([]recur.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE user_id = ? AND deleted_at IS NULL
		  AND date >= ? AND date <= ?
	`, txColumns)
	args := []any{userID, from.Key(), to.Key()}

	if ruleID != nil {
		query += " AND recurrence_rule_id = ?"
		args = append(args, *ruleID)
	}
	query += " ORDER BY date DESC, id ASC"

	return s.queryTransactions(ctx, query, args...)
}

func (s *Store) InsertTransaction(ctx context.Context, tx recur.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions
		(id, user_id, kind, description, amount, date, category, status,
		 recurrence_rule_id, sync_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Kind, tx.Description, tx.Amount.String(),
		tx.Date.Key(), tx.Category, tx.Status, nullRuleID(tx.RuleID),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) && tx.RuleID != nil {
			return &recur.DuplicateOccurrenceError{RuleID: *tx.RuleID, Date: tx.Date}
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS - CRUD used by the API layer
// =============================================================================

// GetTransaction returns one transaction owned by the user.
func (s *Store) GetTransaction(ctx context.Context, userID recur.UserID, id recur.TransactionID) (*recur.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, txColumns)

	txs, err := s.queryTransactions(ctx, query, id, userID)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, recur.ErrTransactionNotFound
	}
	return &txs[0], nil
}

// ListTransactions returns all of a user's non-deleted transactions,
// most recent date first.
func (s *Store) ListTransactions(ctx context.Context, userID recur.UserID) ([]recur.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY date DESC, id ASC
	`, txColumns)

	return s.queryTransactions(ctx, query, userID)
}

// UpdateTransaction replaces the mutable fields of a transaction and
// bumps its sync version.
func (s *Store) UpdateTransaction(ctx context.Context, tx recur.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE transactions
		SET kind = ?, description = ?, amount = ?, date = ?, category = ?,
		    status = ?, sync_version = sync_version + 1
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		tx.Kind, tx.Description, tx.Amount.String(), tx.Date.Key(),
		tx.Category, tx.Status, tx.ID, tx.UserID,
	)
	if err != nil {
		if isUniqueConstraintError(err) && tx.RuleID != nil {
			return &recur.DuplicateOccurrenceError{RuleID: *tx.RuleID, Date: tx.Date}
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return recur.ErrTransactionNotFound
	}
	return nil
}

// SoftDeleteTransaction marks a transaction deleted.
func (s *Store) SoftDeleteTransaction(ctx context.Context, userID recur.UserID, id recur.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE transactions
		SET deleted_at = ?, sync_version = sync_version + 1
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return recur.ErrTransactionNotFound
	}
	return nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]recur.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []recur.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(rows *sql.Rows) (recur.Rule, error) {
	var (
		rule          recur.Rule
		amount        string
		dayOfMonth    sql.NullInt64
		dayOfWeek     sql.NullInt64
		endDate       sql.NullString
		lastGenerated sql.NullString
		nextGen       sql.NullString
		createdAt     string
		deletedAt     sql.NullString
	)

	err := rows.Scan(
		&rule.ID, &rule.UserID, &rule.Kind, &rule.Name, &amount, &rule.Category,
		&rule.Frequency, &dayOfMonth, &dayOfWeek, &rule.Interval, &rule.Active,
		&rule.AutoGenerate, &endDate, &lastGenerated, &nextGen, &rule.Notes,
		&rule.SyncVersion, &createdAt, &deletedAt,
	)
	if err != nil {
		return recur.Rule{}, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return recur.Rule{}, fmt.Errorf("failed to parse rule amount: %w", err)
	}
	rule.DayOfMonth = intPtr(dayOfMonth)
	rule.DayOfWeek = intPtr(dayOfWeek)
	if rule.EndDate, err = dayPtr(endDate); err != nil {
		return recur.Rule{}, err
	}
	if rule.LastGenerated, err = dayPtr(lastGenerated); err != nil {
		return recur.Rule{}, err
	}
	if rule.NextGeneration, err = dayPtr(nextGen); err != nil {
		return recur.Rule{}, err
	}
	rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rule.DeletedAt = timePtr(deletedAt)
	return rule, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]recur.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []recur.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (recur.Transaction, error) {
	var (
		tx        recur.Transaction
		amount    string
		date      string
		ruleID    sql.NullString
		createdAt string
		deletedAt sql.NullString
	)

	err := rows.Scan(
		&tx.ID, &tx.UserID, &tx.Kind, &tx.Description, &amount, &date,
		&tx.Category, &tx.Status, &ruleID, &tx.SyncVersion, &createdAt, &deletedAt,
	)
	if err != nil {
		return recur.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return recur.Transaction{}, fmt.Errorf("failed to parse transaction amount: %w", err)
	}
	tx.Date, err = recur.ParseDay(date)
	if err != nil {
		return recur.Transaction{}, fmt.Errorf("failed to parse transaction date: %w", err)
	}
	if ruleID.Valid {
		id := recur.RuleID(ruleID.String)
		tx.RuleID = &id
	}
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tx.DeletedAt = timePtr(deletedAt)
	return tx, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullDay(d *recur.Day) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Key(), Valid: true}
}

func nullRuleID(id *recur.RuleID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func dayPtr(s sql.NullString) (*recur.Day, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := recur.ParseDay(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored day: %w", err)
	}
	return &d, nil
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
