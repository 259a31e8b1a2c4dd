/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  The production default store. One file database, no external service, and
  database-level enforcement of the constraints the engine cares about.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on entries or expenses
  - Schedule rows upsert on (kind, subject, effective_from) only: changing a
    month overwrites that month, history before it is untouched

KEY TABLES:
  properties, tenants, employees:  directory records
  expense_categories:              reserved + user categories
  schedule_values:                 time-effective tables (rent/salary/commission)
  entries:                         append-only payment ledger
  expenses:                        append-only money out, salary payouts included

CRITICAL INDEX:
  idx_expenses_salary_unique enforces at most one salary payout per
  (employee, month, category). The domain layer checks first for a friendly
  error; the index backs it against races.

MONTH ENCODING:
  Months are stored as "YYYY-MM" TEXT. The format sorts lexicographically in
  month order, so range predicates and MAX() work without date functions.

WAL MODE:
  Opened with WAL and foreign keys on, matching how the file behaves in
  production: multiple readers, single writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/rentledger.db")  // or ":memory:"
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: interface definitions
  - store/postgres: same schema on pgx
  - ledger/store (memory.go): in-memory implementation for engine tests
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

	"github.com/estateops/rentledger/ledger"
)

// Store implements ledger.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
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

// migrate creates the schema and provisions the reserved categories.
func (s *Store) migrate() error {
	schema := `
	-- Directory records
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tenants_property ON tenants(property_id);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_employees_property ON employees(property_id);

	CREATE TABLE IF NOT EXISTS expense_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);

	-- Time-effective values (rent, salary, commission)
	CREATE TABLE IF NOT EXISTS schedule_values (
		kind TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,  -- "YYYY-MM"
		value TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (kind, subject_id, effective_from)
	);

	-- Payment entries (append-only ledger)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		for_month TEXT NOT NULL,       -- "YYYY-MM"
		recorded_on TEXT NOT NULL,
		receipt_ref TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_subject_month
		ON entries(subject_id, for_month);
	CREATE INDEX IF NOT EXISTS idx_entries_receipt
		ON entries(receipt_ref);

	-- Expenses (append-only money out; salary payouts carry employee+month)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		category_id TEXT NOT NULL REFERENCES expense_categories(id),
		amount TEXT NOT NULL,
		spent_on TEXT NOT NULL,
		for_month TEXT NOT NULL DEFAULT '',   -- "YYYY-MM" or '' when not month-bound
		employee_id TEXT NOT NULL DEFAULT '', -- set only for salary payouts
		description TEXT NOT NULL DEFAULT '',
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_expenses_property ON expenses(property_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_employee_month
		ON expenses(employee_id, for_month) WHERE employee_id != '';

	-- CRITICAL: at most one salary payout per (employee, month, category)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_expenses_salary_unique
		ON expenses(employee_id, for_month, category_id)
		WHERE employee_id != '' AND for_month != '';
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedCategories()
}

// seedCategories provisions the reserved categories the domain layer
// depends on, keeping existing rows (and their IDs) intact.
func (s *Store) seedCategories() error {
	reserved := []ledger.ExpenseCategory{
		{Name: ledger.CategoryCommission, Description: "Commission fees on collected rent"},
		{Name: ledger.CategorySalaries, Description: "Employee salary payouts"},
	}
	for _, c := range reserved {
		_, err := s.db.Exec(`
			INSERT INTO expense_categories (id, name, description)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			ledger.NewID(ledger.PrefixCategory), c.Name, c.Description,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every query helper
// runs identically inside and outside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) AppendEntries(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := appendEntries(ctx, sqlTx, entries); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func appendEntries(ctx context.Context, q querier, entries []ledger.Entry) error {
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ledger.NewValidationError("amount", "entry amount must be positive, got %v", e.Amount)
		}
	}
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO entries (id, subject_id, amount, for_month, recorded_on, receipt_ref, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Subject, e.Amount.String(), e.ForMonth.String(),
			e.RecordedOn.UTC().Format(time.RFC3339), e.ReceiptRef,
			createdAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to append entry: %w", err)
		}
	}
	return nil
}

func (s *Store) EntriesBySubject(ctx context.Context, subject ledger.SubjectID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesBySubject(ctx, s.db, subject)
}

func entriesBySubject(ctx context.Context, q querier, subject ledger.SubjectID) ([]ledger.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, subject_id, amount, for_month, recorded_on, receipt_ref, created_at
		FROM entries
		WHERE subject_id = ?
		ORDER BY for_month DESC, created_at DESC`,
		subject,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var amount, forMonth, recordedOn, createdAt string
		if err := rows.Scan(&e.ID, &e.Subject, &amount, &forMonth, &recordedOn, &e.ReceiptRef, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Amount = ledger.MustParseDecimal(amount)
		if e.ForMonth, err = ledger.ParseMonth(forMonth); err != nil {
			return nil, fmt.Errorf("failed to parse entry month: %w", err)
		}
		e.RecordedOn, _ = time.Parse(time.RFC3339, recordedOn)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) SumByMonth(ctx context.Context, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumByMonth(ctx, s.db, subject, from, to)
}

func sumByMonth(ctx context.Context, q querier, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	// Amounts are TEXT decimals; summing happens in Go to keep precision.
	rows, err := q.QueryContext(ctx, `
		SELECT for_month, amount
		FROM entries
		WHERE subject_id = ? AND for_month >= ? AND for_month <= ?`,
		subject, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query month sums: %w", err)
	}
	defer rows.Close()

	sums := make(map[ledger.Month]decimal.Decimal)
	for rows.Next() {
		var monthStr, amountStr string
		if err := rows.Scan(&monthStr, &amountStr); err != nil {
			return nil, err
		}
		m, err := ledger.ParseMonth(monthStr)
		if err != nil {
			return nil, err
		}
		sums[m] = sums[m].Add(ledger.MustParseDecimal(amountStr))
	}
	return sums, rows.Err()
}

func (s *Store) LatestEntryMonth(ctx context.Context, subject ledger.SubjectID) (ledger.Month, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestEntryMonth(ctx, s.db, subject)
}

func latestEntryMonth(ctx context.Context, q querier, subject ledger.SubjectID) (ledger.Month, bool, error) {
	var monthStr sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT MAX(for_month) FROM entries WHERE subject_id = ?`, subject,
	).Scan(&monthStr)
	if err != nil {
		return ledger.Month{}, false, err
	}
	if !monthStr.Valid || monthStr.String == "" {
		return ledger.Month{}, false, nil
	}
	m, err := ledger.ParseMonth(monthStr.String)
	if err != nil {
		return ledger.Month{}, false, err
	}
	return m, true, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

func (s *Store) SetScheduleValue(ctx context.Context, entry ledger.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setScheduleValue(ctx, s.db, entry)
}

func setScheduleValue(ctx context.Context, q querier, entry ledger.ScheduleEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedule_values (kind, subject_id, effective_from, value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, subject_id, effective_from) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at`,
		entry.Kind, entry.Subject, entry.EffectiveFrom.String(),
		entry.Value.String(), createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set schedule value: %w", err)
	}
	return nil
}

func (s *Store) ScheduleFor(ctx context.Context, kind ledger.ScheduleKind, subject ledger.SubjectID) (ledger.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scheduleFor(ctx, s.db, kind, subject)
}

func scheduleFor(ctx context.Context, q querier, kind ledger.ScheduleKind, subject ledger.SubjectID) (ledger.Schedule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT effective_from, value, created_at
		FROM schedule_values
		WHERE kind = ? AND subject_id = ?
		ORDER BY effective_from ASC`,
		kind, subject,
	)
	if err != nil {
		return ledger.Schedule{}, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var entries []ledger.ScheduleEntry
	for rows.Next() {
		var effectiveFrom, value, createdAt string
		if err := rows.Scan(&effectiveFrom, &value, &createdAt); err != nil {
			return ledger.Schedule{}, err
		}
		m, err := ledger.ParseMonth(effectiveFrom)
		if err != nil {
			return ledger.Schedule{}, err
		}
		entry := ledger.ScheduleEntry{
			Subject:       subject,
			Kind:          kind,
			EffectiveFrom: m,
			Value:         ledger.MustParseDecimal(value),
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return ledger.Schedule{}, err
	}
	return ledger.NewSchedule(entries), nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) AddExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addExpense(ctx, s.db, e)
}

func addExpense(ctx context.Context, q querier, e ledger.Expense) error {
	if !e.Amount.IsPositive() {
		return ledger.NewValidationError("amount", "expense amount must be positive, got %v", e.Amount)
	}
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expense_categories WHERE id = ?`, e.Category,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ledger.ErrCategoryNotFound
	}

	forMonth := ""
	if !e.ForMonth.IsZero() {
		forMonth = e.ForMonth.String()
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO expenses (id, property_id, category_id, amount, spent_on, for_month, employee_id, description, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Property, e.Category, e.Amount.String(),
		e.SpentOn.UTC().Format(time.RFC3339), forMonth, e.Employee,
		e.Description, e.Recurring, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			existing, _, _ := findSalaryExpense(ctx, q, e.Employee, e.ForMonth)
			return &ledger.DuplicatePaymentError{Subject: e.Employee, Month: e.ForMonth, Existing: existing}
		}
		return fmt.Errorf("failed to add expense: %w", err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listExpenses(ctx, s.db, f)
}

func listExpenses(ctx context.Context, q querier, f ledger.ExpenseFilter) ([]ledger.Expense, error) {
	query := `
		SELECT id, property_id, category_id, amount, spent_on, for_month, employee_id, description, recurring, created_at
		FROM expenses
		WHERE 1=1`
	var args []any
	if f.Property != "" {
		query += " AND property_id = ?"
		args = append(args, f.Property)
	}
	if f.Category != "" {
		query += " AND category_id = ?"
		args = append(args, f.Category)
	}
	if f.Employee != "" {
		query += " AND employee_id = ?"
		args = append(args, f.Employee)
	}
	if !f.From.IsZero() {
		query += " AND spent_on >= ?"
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		query += " AND spent_on <= ?"
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY spent_on DESC, created_at DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []ledger.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func scanExpense(rows *sql.Rows) (ledger.Expense, error) {
	var e ledger.Expense
	var amount, spentOn, forMonth, createdAt string
	err := rows.Scan(&e.ID, &e.Property, &e.Category, &amount, &spentOn,
		&forMonth, &e.Employee, &e.Description, &e.Recurring, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}
	e.Amount = ledger.MustParseDecimal(amount)
	e.SpentOn, _ = time.Parse(time.RFC3339, spentOn)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if forMonth != "" {
		if e.ForMonth, err = ledger.ParseMonth(forMonth); err != nil {
			return e, err
		}
	}
	return e, nil
}

func (s *Store) FindSalaryExpense(ctx context.Context, employee ledger.SubjectID, month ledger.Month) (ledger.ExpenseID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findSalaryExpense(ctx, s.db, employee, month)
}

func findSalaryExpense(ctx context.Context, q querier, employee ledger.SubjectID, month ledger.Month) (ledger.ExpenseID, bool, error) {
	var id ledger.ExpenseID
	err := q.QueryRowContext(ctx, `
		SELECT e.id
		FROM expenses e
		JOIN expense_categories c ON c.id = e.category_id
		WHERE e.employee_id = ? AND e.for_month = ? AND c.name = ?
		LIMIT 1`,
		employee, month.String(), ledger.CategorySalaries,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *Store) SalaryPaidByMonth(ctx context.Context, employee ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return salaryPaidByMonth(ctx, s.db, employee, from, to)
}

func salaryPaidByMonth(ctx context.Context, q querier, employee ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.for_month, e.amount
		FROM expenses e
		JOIN expense_categories c ON c.id = e.category_id
		WHERE e.employee_id = ? AND c.name = ?
		  AND e.for_month >= ? AND e.for_month <= ?`,
		employee, ledger.CategorySalaries, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary sums: %w", err)
	}
	defer rows.Close()

	sums := make(map[ledger.Month]decimal.Decimal)
	for rows.Next() {
		var monthStr, amountStr string
		if err := rows.Scan(&monthStr, &amountStr); err != nil {
			return nil, err
		}
		m, err := ledger.ParseMonth(monthStr)
		if err != nil {
			return nil, err
		}
		sums[m] = sums[m].Add(ledger.MustParseDecimal(amountStr))
	}
	return sums, rows.Err()
}

func (s *Store) LatestSalaryMonth(ctx context.Context, employee ledger.SubjectID) (ledger.Month, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestSalaryMonth(ctx, s.db, employee)
}

func latestSalaryMonth(ctx context.Context, q querier, employee ledger.SubjectID) (ledger.Month, bool, error) {
	var monthStr sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT MAX(e.for_month)
		FROM expenses e
		JOIN expense_categories c ON c.id = e.category_id
		WHERE e.employee_id = ? AND c.name = ? AND e.for_month != ''`,
		employee, ledger.CategorySalaries,
	).Scan(&monthStr)
	if err != nil {
		return ledger.Month{}, false, err
	}
	if !monthStr.Valid || monthStr.String == "" {
		return ledger.Month{}, false, nil
	}
	m, err := ledger.ParseMonth(monthStr.String)
	if err != nil {
		return ledger.Month{}, false, err
	}
	return m, true, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Store) SaveProperty(ctx context.Context, p ledger.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProperty(ctx, s.db, p)
}

func saveProperty(ctx context.Context, q querier, p ledger.Property) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO properties (id, name, location, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			notes = excluded.notes`,
		p.ID, p.Name, p.Location, p.Notes, createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) PropertyByID(ctx context.Context, id ledger.PropertyID) (ledger.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return propertyByID(ctx, s.db, id)
}

func propertyByID(ctx context.Context, q querier, id ledger.PropertyID) (ledger.Property, error) {
	var p ledger.Property
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, name, location, notes, created_at FROM properties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Location, &p.Notes, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Property{}, ledger.ErrPropertyNotFound
	}
	if err != nil {
		return ledger.Property{}, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

func (s *Store) Properties(ctx context.Context) ([]ledger.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return properties(ctx, s.db)
}

func properties(ctx context.Context, q querier) ([]ledger.Property, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, location, notes, created_at FROM properties ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Property
	for rows.Next() {
		var p ledger.Property
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &p.Notes, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveTenant(ctx context.Context, t ledger.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTenant(ctx, s.db, t)
}

func saveTenant(ctx context.Context, q querier, t ledger.Tenant) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (id, property_id, name, phone, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			name = excluded.name,
			phone = excluded.phone,
			active = excluded.active`,
		t.ID, t.Property, t.Name, t.Phone, t.Active, createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) TenantByID(ctx context.Context, id ledger.SubjectID) (ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tenantByID(ctx, s.db, id)
}

func tenantByID(ctx context.Context, q querier, id ledger.SubjectID) (ledger.Tenant, error) {
	var t ledger.Tenant
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, property_id, name, phone, active, created_at FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Property, &t.Name, &t.Phone, &t.Active, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Tenant{}, ledger.ErrSubjectNotFound
	}
	if err != nil {
		return ledger.Tenant{}, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}

func (s *Store) Tenants(ctx context.Context) ([]ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tenants(ctx, s.db)
}

func tenants(ctx context.Context, q querier) ([]ledger.Tenant, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, property_id, name, phone, active, created_at FROM tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Tenant
	for rows.Next() {
		var t ledger.Tenant
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Property, &t.Name, &t.Phone, &t.Active, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveEmployee(ctx context.Context, e ledger.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, e)
}

func saveEmployee(ctx context.Context, q querier, e ledger.Employee) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (id, property_id, name, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			name = excluded.name,
			role = excluded.role,
			active = excluded.active`,
		e.ID, e.Property, e.Name, e.Role, e.Active, createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) EmployeeByID(ctx context.Context, id ledger.SubjectID) (ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return employeeByID(ctx, s.db, id)
}

func employeeByID(ctx context.Context, q querier, id ledger.SubjectID) (ledger.Employee, error) {
	var e ledger.Employee
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, property_id, name, role, active, created_at FROM employees WHERE id = ?`, id,
	).Scan(&e.ID, &e.Property, &e.Name, &e.Role, &e.Active, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Employee{}, ledger.ErrSubjectNotFound
	}
	if err != nil {
		return ledger.Employee{}, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

func (s *Store) Employees(ctx context.Context) ([]ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return employees(ctx, s.db)
}

func employees(ctx context.Context, q querier) ([]ledger.Employee, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, property_id, name, role, active, created_at FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Employee
	for rows.Next() {
		var e ledger.Employee
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Property, &e.Name, &e.Role, &e.Active, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveCategory(ctx context.Context, c ledger.ExpenseCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCategory(ctx, s.db, c)
}

func saveCategory(ctx context.Context, q querier, c ledger.ExpenseCategory) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO expense_categories (id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		c.ID, c.Name, c.Description,
	)
	return err
}

func (s *Store) CategoryByName(ctx context.Context, name string) (ledger.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categoryByName(ctx, s.db, name)
}

func categoryByName(ctx context.Context, q querier, name string) (ledger.ExpenseCategory, error) {
	var c ledger.ExpenseCategory
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description FROM expense_categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return ledger.ExpenseCategory{}, ledger.ErrCategoryNotFound
	}
	if err != nil {
		return ledger.ExpenseCategory{}, err
	}
	return c, nil
}

func (s *Store) Categories(ctx context.Context) ([]ledger.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categories(ctx, s.db)
}

func categories(ctx context.Context, q querier) ([]ledger.ExpenseCategory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, description FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.ExpenseCategory
	for rows.Next() {
		var c ledger.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a Store view bound to one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every Store call through one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) AppendEntries(ctx context.Context, entries []ledger.Entry) error {
	return appendEntries(ctx, ts.tx, entries)
}

func (ts *txStore) EntriesBySubject(ctx context.Context, subject ledger.SubjectID) ([]ledger.Entry, error) {
	return entriesBySubject(ctx, ts.tx, subject)
}

func (ts *txStore) SumByMonth(ctx context.Context, subject ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	return sumByMonth(ctx, ts.tx, subject, from, to)
}

func (ts *txStore) LatestEntryMonth(ctx context.Context, subject ledger.SubjectID) (ledger.Month, bool, error) {
	return latestEntryMonth(ctx, ts.tx, subject)
}

func (ts *txStore) SetScheduleValue(ctx context.Context, entry ledger.ScheduleEntry) error {
	return setScheduleValue(ctx, ts.tx, entry)
}

func (ts *txStore) ScheduleFor(ctx context.Context, kind ledger.ScheduleKind, subject ledger.SubjectID) (ledger.Schedule, error) {
	return scheduleFor(ctx, ts.tx, kind, subject)
}

func (ts *txStore) AddExpense(ctx context.Context, e ledger.Expense) error {
	return addExpense(ctx, ts.tx, e)
}

func (ts *txStore) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]ledger.Expense, error) {
	return listExpenses(ctx, ts.tx, f)
}

func (ts *txStore) FindSalaryExpense(ctx context.Context, employee ledger.SubjectID, month ledger.Month) (ledger.ExpenseID, bool, error) {
	return findSalaryExpense(ctx, ts.tx, employee, month)
}

func (ts *txStore) SalaryPaidByMonth(ctx context.Context, employee ledger.SubjectID, from, to ledger.Month) (map[ledger.Month]decimal.Decimal, error) {
	return salaryPaidByMonth(ctx, ts.tx, employee, from, to)
}

func (ts *txStore) LatestSalaryMonth(ctx context.Context, employee ledger.SubjectID) (ledger.Month, bool, error) {
	return latestSalaryMonth(ctx, ts.tx, employee)
}

func (ts *txStore) SaveProperty(ctx context.Context, p ledger.Property) error {
	return saveProperty(ctx, ts.tx, p)
}

func (ts *txStore) PropertyByID(ctx context.Context, id ledger.PropertyID) (ledger.Property, error) {
	return propertyByID(ctx, ts.tx, id)
}

func (ts *txStore) Properties(ctx context.Context) ([]ledger.Property, error) {
	return properties(ctx, ts.tx)
}

func (ts *txStore) SaveTenant(ctx context.Context, t ledger.Tenant) error {
	return saveTenant(ctx, ts.tx, t)
}

func (ts *txStore) TenantByID(ctx context.Context, id ledger.SubjectID) (ledger.Tenant, error) {
	return tenantByID(ctx, ts.tx, id)
}

func (ts *txStore) Tenants(ctx context.Context) ([]ledger.Tenant, error) {
	return tenants(ctx, ts.tx)
}

func (ts *txStore) SaveEmployee(ctx context.Context, e ledger.Employee) error {
	return saveEmployee(ctx, ts.tx, e)
}

func (ts *txStore) EmployeeByID(ctx context.Context, id ledger.SubjectID) (ledger.Employee, error) {
	return employeeByID(ctx, ts.tx, id)
}

func (ts *txStore) Employees(ctx context.Context) ([]ledger.Employee, error) {
	return employees(ctx, ts.tx)
}

func (ts *txStore) SaveCategory(ctx context.Context, c ledger.ExpenseCategory) error {
	return saveCategory(ctx, ts.tx, c)
}

func (ts *txStore) CategoryByName(ctx context.Context, name string) (ledger.ExpenseCategory, error) {
	return categoryByName(ctx, ts.tx, name)
}

func (ts *txStore) Categories(ctx context.Context) ([]ledger.ExpenseCategory, error) {
	return categories(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
