/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements billing.Store and billing.SnapshotStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  billing.Store:         Reference data, time logs, invoices, write-offs
  billing.SnapshotStore: Cached WIP balances

APPEND-ONLY ENFORCEMENT:
  Write-off reconciliations are append-only:
  - No UPDATE statements on writeoff_reconciliations/writeoff_entries
  - No DELETE statements on those tables
  - A duplicate reconciliation ID is rejected, so a retried save cannot
    write off the same value twice

KEY TABLES:
  clients, jobs, team_members:  Practice reference data
  time_logs:                    Recorded billable work (the WIP source)
  invoices:                     Value raised against job WIP
  writeoff_reconciliations:     Write-off headers (reason, target, method)
  writeoff_entries:             Per-entry allocation records
  wip_snapshots:                Cached WIP balances (scheduler-refreshed)

MONEY ENCODING:
  All decimal amounts are stored as TEXT and parsed back through
  shopspring/decimal. REAL columns would reintroduce the float drift the
  engine exists to avoid.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/practice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
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
	"github.com/warp/wip-engine/billing"
	"github.com/warp/wip-engine/writeoff"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Clients
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT,
		created_at TEXT NOT NULL
	);

	-- Jobs (engagements)
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_client
		ON jobs(client_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status
		ON jobs(status);

	-- Team members (fee earners)
	CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		billable_rate TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Time logs (the WIP source)
	CREATE TABLE IF NOT EXISTS time_logs (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		category_id TEXT,
		team_member TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- Composite index for job WIP queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_logs_job_date
		ON time_logs(job_id, date);
	CREATE INDEX IF NOT EXISTS idx_time_logs_user_date
		ON time_logs(user_id, date);

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		reference TEXT,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_job
		ON invoices(job_id);

	-- Write-off reconciliations (append-only headers)
	CREATE TABLE IF NOT EXISTS writeoff_reconciliations (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		writeoff_target TEXT NOT NULL,
		method TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_writeoff_reconciliations_job
		ON writeoff_reconciliations(job_id);

	-- Write-off entries (append-only, one row per chargeable entry)
	CREATE TABLE IF NOT EXISTS writeoff_entries (
		reconciliation_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		time_log_id TEXT,
		writeoff_amount TEXT NOT NULL,
		writeoff_percentage TEXT NOT NULL,
		original_amount TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		client_id TEXT,
		job_id TEXT,
		user_id TEXT,
		category_id TEXT,
		PRIMARY KEY (reconciliation_id, entry_id)
	);

	CREATE INDEX IF NOT EXISTS idx_writeoff_entries_time_log
		ON writeoff_entries(time_log_id);

	-- WIP snapshots (display cache, scheduler-refreshed)
	CREATE TABLE IF NOT EXISTS wip_snapshots (
		job_id TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		total_value TEXT NOT NULL,
		invoiced TEXT NOT NULL,
		written_off TEXT NOT NULL,
		balance TEXT NOT NULL,
		as_of TEXT NOT NULL,
		PRIMARY KEY (job_id, as_of)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, code, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, code = excluded.code
	`, c.ID, c.Name, c.Code, createdAt(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, code, created_at FROM clients WHERE id = ?", id)

	var c billing.Client
	var code sql.NullString
	var created string
	if err := row.Scan(&c.ID, &c.Name, &code, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c.Code = code.String
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, code, created_at FROM clients ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		var c billing.Client
		var code sql.NullString
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &code, &created); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.Code = code.String
		c.CreatedAt = parseTime(created)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// =============================================================================
// JOBS
// =============================================================================

func (s *Store) SaveJob(ctx context.Context, j billing.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.Status == "" {
		j.Status = billing.JobActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, client_id, name, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, status = excluded.status
	`, j.ID, j.ClientID, j.Name, j.Status, createdAt(j.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*billing.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, client_id, name, status, created_at FROM jobs WHERE id = ?", id)

	var j billing.Job
	var created string
	if err := row.Scan(&j.ID, &j.ClientID, &j.Name, &j.Status, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	j.CreatedAt = parseTime(created)
	return &j, nil
}

func (s *Store) ListJobs(ctx context.Context, clientID string) ([]billing.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, client_id, name, status, created_at FROM jobs"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []billing.Job
	for rows.Next() {
		var j billing.Job
		var created string
		if err := rows.Scan(&j.ID, &j.ClientID, &j.Name, &j.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.CreatedAt = parseTime(created)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// =============================================================================
// TEAM MEMBERS
// =============================================================================

func (s *Store) SaveTeamMember(ctx context.Context, m billing.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (id, name, email, billable_rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, billable_rate = excluded.billable_rate
	`, m.ID, m.Name, m.Email, m.BillableRate.String(), createdAt(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save team member: %w", err)
	}
	return nil
}

func (s *Store) GetTeamMember(ctx context.Context, id string) (*billing.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, billable_rate, created_at FROM team_members WHERE id = ?", id)

	var m billing.TeamMember
	var email sql.NullString
	var rateStr, created string
	if err := row.Scan(&m.ID, &m.Name, &email, &rateStr, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	m.Email = email.String
	m.BillableRate = mustDecimal(rateStr)
	m.CreatedAt = parseTime(created)
	return &m, nil
}

func (s *Store) ListTeamMembers(ctx context.Context) ([]billing.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, billable_rate, created_at FROM team_members ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []billing.TeamMember
	for rows.Next() {
		var m billing.TeamMember
		var email sql.NullString
		var rateStr, created string
		if err := rows.Scan(&m.ID, &m.Name, &email, &rateStr, &created); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		m.Email = email.String
		m.BillableRate = mustDecimal(rateStr)
		m.CreatedAt = parseTime(created)
		members = append(members, m)
	}
	return members, rows.Err()
}

// =============================================================================
// TIME LOGS
// =============================================================================

func (s *Store) SaveTimeLog(ctx context.Context, l billing.TimeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_logs
		(id, job_id, client_id, user_id, category_id, team_member, date, hours, rate, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hours = excluded.hours, rate = excluded.rate, amount = excluded.amount,
			description = excluded.description
	`,
		l.ID, l.JobID, l.ClientID, l.UserID, nullString(l.CategoryID), l.TeamMember,
		l.Date.Format("2006-01-02"), l.Hours.String(), l.Rate.String(), l.Amount.String(),
		nullString(l.Description), createdAt(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save time log: %w", err)
	}
	return nil
}

func (s *Store) ListTimeLogsByJob(ctx context.Context, jobID string) ([]billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, job_id, client_id, user_id, category_id, team_member, date, hours, rate, amount, description, created_at
		FROM time_logs
		WHERE job_id = ?
		ORDER BY date ASC, id ASC
	`
	return s.queryTimeLogs(ctx, query, jobID)
}

func (s *Store) ListTimeLogsByUser(ctx context.Context, userID string, from, to time.Time) ([]billing.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, job_id, client_id, user_id, category_id, team_member, date, hours, rate, amount, description, created_at
		FROM time_logs
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC
	`
	return s.queryTimeLogs(ctx, query, userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (s *Store) queryTimeLogs(ctx context.Context, query string, args ...any) ([]billing.TimeLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time logs: %w", err)
	}
	defer rows.Close()

	var logs []billing.TimeLog
	for rows.Next() {
		l, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanTimeLog(rows *sql.Rows) (billing.TimeLog, error) {
	var (
		l           billing.TimeLog
		categoryID  sql.NullString
		description sql.NullString
		date        string
		hours       string
		rate        string
		amount      string
		created     string
	)

	err := rows.Scan(
		&l.ID, &l.JobID, &l.ClientID, &l.UserID, &categoryID, &l.TeamMember,
		&date, &hours, &rate, &amount, &description, &created,
	)
	if err != nil {
		return l, fmt.Errorf("failed to scan time log: %w", err)
	}

	l.CategoryID = categoryID.String
	l.Description = description.String
	l.Date = parseDate(date)
	l.Hours = mustDecimal(hours)
	l.Rate = mustDecimal(rate)
	l.Amount = mustDecimal(amount)
	l.CreatedAt = parseTime(created)
	return l, nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, job_id, client_id, reference, amount, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID, inv.JobID, inv.ClientID, nullString(inv.Reference),
		inv.Amount.String(), inv.Date.Format("2006-01-02"), createdAt(inv.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (s *Store) ListInvoicesByJob(ctx context.Context, jobID string) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, client_id, reference, amount, date, created_at
		FROM invoices
		WHERE job_id = ?
		ORDER BY date ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var inv billing.Invoice
		var reference sql.NullString
		var amount, date, created string
		if err := rows.Scan(&inv.ID, &inv.JobID, &inv.ClientID, &reference, &amount, &date, &created); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.Reference = reference.String
		inv.Amount = mustDecimal(amount)
		inv.Date = parseDate(date)
		inv.CreatedAt = parseTime(created)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// =============================================================================
// WRITE-OFF RECONCILIATIONS - Append-only
// =============================================================================

// SaveReconciliation persists a reconciliation header and its entry records
// atomically. Append-only: a duplicate ID is rejected so a retried save
// cannot write off the same value twice.
func (s *Store) SaveReconciliation(ctx context.Context, r billing.Reconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO writeoff_reconciliations (id, job_id, reason, writeoff_target, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.JobID, r.Reason, r.WriteOffTarget.String(), string(r.Method), createdAt(r.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrDuplicateReconciliation
		}
		return fmt.Errorf("failed to save reconciliation: %w", err)
	}

	for _, rec := range r.Records {
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO writeoff_entries
			(reconciliation_id, entry_id, time_log_id, writeoff_amount, writeoff_percentage,
			 original_amount, duration_seconds, client_id, job_id, user_id, category_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, string(rec.EntryID), nullString(string(rec.TimeLogID)),
			rec.WriteOffAmount.String(), rec.WriteOffPercentage.String(),
			rec.OriginalAmount.String(), rec.DurationSeconds,
			nullString(rec.ClientID), nullString(rec.JobID),
			nullString(rec.UserID), nullString(rec.CategoryID),
		)
		if err != nil {
			return fmt.Errorf("failed to save write-off entry: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) ListReconciliations(ctx context.Context, jobID string) ([]billing.Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, job_id, reason, writeoff_target, method, created_at
		FROM writeoff_reconciliations
	`
	var args []any
	if jobID != "" {
		query += " WHERE job_id = ?"
		args = append(args, jobID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []billing.Reconciliation
	for rows.Next() {
		var r billing.Reconciliation
		var target, method, created string
		if err := rows.Scan(&r.ID, &r.JobID, &r.Reason, &target, &method, &created); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		r.WriteOffTarget = mustDecimal(target)
		r.Method = writeoff.AllocationMethod(method)
		r.CreatedAt = parseTime(created)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recs {
		records, err := s.loadWriteOffEntries(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Records = records
	}
	return recs, nil
}

func (s *Store) loadWriteOffEntries(ctx context.Context, reconciliationID string) ([]writeoff.WriteOffRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, time_log_id, writeoff_amount, writeoff_percentage,
		       original_amount, duration_seconds, client_id, job_id, user_id, category_id
		FROM writeoff_entries
		WHERE reconciliation_id = ?
		ORDER BY entry_id ASC
	`, reconciliationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query write-off entries: %w", err)
	}
	defer rows.Close()

	var records []writeoff.WriteOffRecord
	for rows.Next() {
		var (
			rec        writeoff.WriteOffRecord
			entryID    string
			timeLogID  sql.NullString
			amount     string
			percentage string
			original   string
			clientID   sql.NullString
			jobID      sql.NullString
			userID     sql.NullString
			categoryID sql.NullString
		)
		err := rows.Scan(&entryID, &timeLogID, &amount, &percentage, &original,
			&rec.DurationSeconds, &clientID, &jobID, &userID, &categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan write-off entry: %w", err)
		}
		rec.EntryID = writeoff.EntryID(entryID)
		rec.TimeLogID = writeoff.EntryID(timeLogID.String)
		rec.WriteOffAmount = mustDecimal(amount)
		rec.WriteOffPercentage = mustDecimal(percentage)
		rec.OriginalAmount = mustDecimal(original)
		rec.ClientID = clientID.String
		rec.JobID = jobID.String
		rec.UserID = userID.String
		rec.CategoryID = categoryID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// WIP SNAPSHOTS
// =============================================================================

func (s *Store) SaveWIPSnapshot(ctx context.Context, snap billing.WIPSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asOf := snap.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wip_snapshots (job_id, total_hours, total_value, invoiced, written_off, balance, as_of)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, as_of) DO UPDATE SET
			total_hours = excluded.total_hours, total_value = excluded.total_value,
			invoiced = excluded.invoiced, written_off = excluded.written_off,
			balance = excluded.balance
	`,
		snap.JobID, snap.TotalHours.String(), snap.TotalValue.String(),
		snap.Invoiced.String(), snap.WrittenOff.String(), snap.Balance.String(),
		asOf.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save WIP snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestWIPSnapshot(ctx context.Context, jobID string) (*billing.WIPSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, total_hours, total_value, invoiced, written_off, balance, as_of
		FROM wip_snapshots
		WHERE job_id = ?
		ORDER BY as_of DESC
		LIMIT 1
	`, jobID)

	var snap billing.WIPSnapshot
	var hours, value, invoiced, writtenOff, balance, asOf string
	if err := row.Scan(&snap.JobID, &hours, &value, &invoiced, &writtenOff, &balance, &asOf); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get WIP snapshot: %w", err)
	}
	snap.TotalHours = mustDecimal(hours)
	snap.TotalValue = mustDecimal(value)
	snap.Invoiced = mustDecimal(invoiced)
	snap.WrittenOff = mustDecimal(writtenOff)
	snap.Balance = mustDecimal(balance)
	snap.AsOf = parseTime(asOf)
	return &snap, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// mustDecimal parses a stored decimal. Stored values were written by
// decimal.String, so a parse failure means corruption; fall back to zero.
func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
