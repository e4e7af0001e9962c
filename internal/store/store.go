// Package store provides the persistence boundary of the reconciliation
// engine: interfaces over the document and payment stores, a SQLite
// implementation for snapshot databases and an in-memory implementation for
// tests and dry runs.
//
// The engine takes these interfaces as explicit dependencies; nothing in the
// engine touches a database handle directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrBalanceMoved is returned by UpdateBalance when the stored balance no
// longer matches the expected value, meaning a concurrent writer updated the
// document between read and write. The caller decides whether to retry.
var ErrBalanceMoved = errors.New("stored balance changed since read")

// DocumentFilter narrows a document listing. Zero values mean no filtering.
type DocumentFilter struct {
	CenterID string
	Status   models.DocumentStatus
	// From and To bound the issue date. Documents without an issue date are
	// excluded only when a bound is set, mirroring the source queries.
	From *time.Time
	To   *time.Time
}

// DocumentStore is the engine's read and repair interface to documents.
type DocumentStore interface {
	// ListDocuments returns the documents matching the filter.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*models.Document, error)

	// GetDocument returns one document by ID, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// UpdateBalance writes a repaired balance with compare-and-set
	// semantics: the write happens only if the stored balance still equals
	// expected. A non-nil status is written together with the balance.
	// Returns ErrBalanceMoved on a CAS miss and ErrNotFound when the
	// document is gone.
	UpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal, status *models.DocumentStatus) error
}

// PaymentFilter narrows a payment listing. Zero values mean no filtering.
type PaymentFilter struct {
	CenterID string
}

// PaymentStore is the engine's interface to the payment ledger.
type PaymentStore interface {
	// ListPayments returns the payment snapshot matching the filter.
	ListPayments(ctx context.Context, filter PaymentFilter) ([]*models.Payment, error)

	// ListPaymentsByDocument returns all payments of one document.
	ListPaymentsByDocument(ctx context.Context, documentID string) ([]*models.Payment, error)

	// DeletePayments removes the given payments and reports how many rows
	// were actually deleted. Missing IDs are skipped, not errors, so the
	// operation is idempotent.
	DeletePayments(ctx context.Context, ids []string) (int, error)
}

// AuditRun summarizes one audit pass for comparison with later runs.
type AuditRun struct {
	ID                   string          `json:"id"`
	StartedAt            time.Time       `json:"started_at"`
	Duration             time.Duration   `json:"duration"`
	DocumentsScanned     int             `json:"documents_scanned"`
	MismatchCount        int             `json:"mismatch_count"`
	DuplicateCount       int             `json:"duplicate_count"`
	OverpaidCount        int             `json:"overpaid_count"`
	UnclassifiedCount    int             `json:"unclassified_count"`
	OrphanedCount        int             `json:"orphaned_count"`
	TotalStored          decimal.Decimal `json:"total_stored"`
	TotalCalculatedNet   decimal.Decimal `json:"total_calculated_net"`
	TotalCalculatedGross decimal.Decimal `json:"total_calculated_gross"`
}

// AuditRunStore persists audit run summaries.
type AuditRunStore interface {
	SaveAuditRun(ctx context.Context, run *AuditRun) error
	ListAuditRuns(ctx context.Context, limit int) ([]*AuditRun, error)
}
