package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"ledger-reconciliation-engine/internal/models"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// WAL for better concurrent read performance during audits.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	// Amounts are stored as TEXT so decimal values round-trip exactly.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			document_type TEXT NOT NULL,
			status TEXT NOT NULL,
			issue_date DATETIME,
			total_amount TEXT NOT NULL,
			outstanding_balance TEXT NOT NULL,
			center_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_center ON documents(center_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_issue_date ON documents(issue_date)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			date DATETIME NOT NULL,
			mode TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (document_id) REFERENCES documents(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_document ON payments(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_created_at ON payments(created_at)`,

		`CREATE TABLE IF NOT EXISTS audit_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			documents_scanned INTEGER NOT NULL,
			mismatch_count INTEGER NOT NULL,
			duplicate_count INTEGER NOT NULL,
			overpaid_count INTEGER NOT NULL,
			unclassified_count INTEGER NOT NULL,
			orphaned_count INTEGER NOT NULL,
			total_stored TEXT NOT NULL,
			total_calculated_net TEXT NOT NULL,
			total_calculated_gross TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_started ON audit_runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// SQLiteDocumentStore implements DocumentStore over a SQLite database.
type SQLiteDocumentStore struct {
	db *sql.DB
}

// NewSQLiteDocumentStore creates a document store over an initialized database.
func NewSQLiteDocumentStore(db *sql.DB) *SQLiteDocumentStore {
	return &SQLiteDocumentStore{db: db}
}

// InsertDocument adds a document, used to build snapshot databases and fixtures.
func (s *SQLiteDocumentStore) InsertDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents
		(id, number, document_type, status, issue_date, total_amount, outstanding_balance, center_id)
		VALUES (?,?,?,?,?,?,?,?)`,
		doc.ID, doc.Number, string(doc.Type), string(doc.Status),
		formatNullableTime(doc.IssueDate),
		doc.TotalAmount.String(), doc.OutstandingBalance.String(),
		nullableString(doc.CenterID),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]*models.Document, error) {
	where, args := buildDocumentWhere(f)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, document_type, status, issue_date, total_amount, outstanding_balance, center_id FROM documents"+where+" ORDER BY id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteDocumentStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, document_type, status, issue_date, total_amount, outstanding_balance, center_id FROM documents WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanDocument(rows)
}

// UpdateBalance performs the compare-and-set inside a transaction: the
// stored balance is re-read and compared before the write, so a concurrent
// update between the caller's read and this write surfaces as
// ErrBalanceMoved instead of being silently overwritten.
func (s *SQLiteDocumentStore) UpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal, status *models.DocumentStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var storedStr string
	err = tx.QueryRowContext(ctx, "SELECT outstanding_balance FROM documents WHERE id = ?", id).Scan(&storedStr)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read stored balance: %w", err)
	}

	stored, err := decimal.NewFromString(storedStr)
	if err != nil {
		return fmt.Errorf("parse stored balance %q: %w", storedStr, err)
	}

	if !stored.Equal(expected) {
		return ErrBalanceMoved
	}

	if status != nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET outstanding_balance = ?, status = ? WHERE id = ?",
			balance.String(), string(*status), id)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET outstanding_balance = ? WHERE id = ?",
			balance.String(), id)
	}
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SQLitePaymentStore implements PaymentStore over a SQLite database.
type SQLitePaymentStore struct {
	db *sql.DB
}

// NewSQLitePaymentStore creates a payment store over an initialized database.
func NewSQLitePaymentStore(db *sql.DB) *SQLitePaymentStore {
	return &SQLitePaymentStore{db: db}
}

// InsertPayment adds a payment, used to build snapshot databases and fixtures.
func (s *SQLitePaymentStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO payments (id, document_id, amount, date, mode, created_at)
		VALUES (?,?,?,?,?,?)`,
		p.ID, p.DocumentID, p.Amount.String(),
		p.Date.Format(time.RFC3339), string(p.Mode), p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *SQLitePaymentStore) ListPayments(ctx context.Context, f PaymentFilter) ([]*models.Payment, error) {
	query := "SELECT p.id, p.document_id, p.amount, p.date, p.mode, p.created_at FROM payments p"
	var args []any
	if f.CenterID != "" {
		query += " JOIN documents d ON d.id = p.document_id WHERE d.center_id = ?"
		args = append(args, f.CenterID)
	}
	query += " ORDER BY p.created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func (s *SQLitePaymentStore) ListPaymentsByDocument(ctx context.Context, documentID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document_id, amount, date, mode, created_at FROM payments WHERE document_id = ? ORDER BY created_at",
		documentID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func (s *SQLitePaymentStore) DeletePayments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM payments WHERE id = ?")
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	deleted := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return deleted, fmt.Errorf("delete payment %s: %w", id, err)
		}
		ra, _ := res.RowsAffected()
		deleted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return deleted, nil
}

// SQLiteAuditRunStore implements AuditRunStore over a SQLite database.
type SQLiteAuditRunStore struct {
	db *sql.DB
}

// NewSQLiteAuditRunStore creates an audit run store over an initialized database.
func NewSQLiteAuditRunStore(db *sql.DB) *SQLiteAuditRunStore {
	return &SQLiteAuditRunStore{db: db}
}

func (s *SQLiteAuditRunStore) SaveAuditRun(ctx context.Context, run *AuditRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs
		(id, started_at, duration_ms, documents_scanned, mismatch_count, duplicate_count,
		 overpaid_count, unclassified_count, orphaned_count,
		 total_stored, total_calculated_net, total_calculated_gross)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Format(time.RFC3339), run.Duration.Milliseconds(),
		run.DocumentsScanned, run.MismatchCount, run.DuplicateCount,
		run.OverpaidCount, run.UnclassifiedCount, run.OrphanedCount,
		run.TotalStored.String(), run.TotalCalculatedNet.String(), run.TotalCalculatedGross.String(),
	)
	if err != nil {
		return fmt.Errorf("insert audit run: %w", err)
	}
	return nil
}

func (s *SQLiteAuditRunStore) ListAuditRuns(ctx context.Context, limit int) ([]*AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, documents_scanned, mismatch_count, duplicate_count,
		 overpaid_count, unclassified_count, orphaned_count,
		 total_stored, total_calculated_net, total_calculated_gross
		 FROM audit_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit runs: %w", err)
	}
	defer rows.Close()

	var runs []*AuditRun
	for rows.Next() {
		var run AuditRun
		var startedAt string
		var durationMs int64
		var stored, net, gross string

		if err := rows.Scan(&run.ID, &startedAt, &durationMs,
			&run.DocumentsScanned, &run.MismatchCount, &run.DuplicateCount,
			&run.OverpaidCount, &run.UnclassifiedCount, &run.OrphanedCount,
			&stored, &net, &gross); err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}

		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		if run.TotalStored, err = decimal.NewFromString(stored); err != nil {
			return nil, fmt.Errorf("parse total stored: %w", err)
		}
		if run.TotalCalculatedNet, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("parse total net: %w", err)
		}
		if run.TotalCalculatedGross, err = decimal.NewFromString(gross); err != nil {
			return nil, fmt.Errorf("parse total gross: %w", err)
		}

		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// --- helpers ---

func buildDocumentWhere(f DocumentFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.CenterID != "" {
		clauses = append(clauses, "center_id = ?")
		args = append(args, f.CenterID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		clauses = append(clauses, "issue_date >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "issue_date <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanDocument(rows *sql.Rows) (*models.Document, error) {
	var doc models.Document
	var docType, status, total, balance string
	var issueDate, centerID sql.NullString

	err := rows.Scan(&doc.ID, &doc.Number, &docType, &status,
		&issueDate, &total, &balance, &centerID)
	if err != nil {
		return nil, err
	}

	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)

	if doc.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total amount %q: %w", total, err)
	}
	if doc.OutstandingBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse outstanding balance %q: %w", balance, err)
	}

	if issueDate.Valid {
		t, err := time.Parse(time.RFC3339, issueDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse issue date %q: %w", issueDate.String, err)
		}
		doc.IssueDate = &t
	}
	if centerID.Valid {
		doc.CenterID = centerID.String
	}

	return &doc, nil
}

func scanPayments(rows *sql.Rows) ([]*models.Payment, error) {
	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		var amount, date, mode, createdAt string

		if err := rows.Scan(&p.ID, &p.DocumentID, &amount, &date, &mode, &createdAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}

		var err error
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if p.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created at %q: %w", createdAt, err)
		}
		p.Mode = models.PaymentMode(mode)

		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
