// Package engine orchestrates reconciliation passes over the document and
// payment stores: read-only audits and idempotent balance repairs.
//
// The engine owns no storage; it is handed store interfaces and runs a
// finite pass over a bounded snapshot. Nothing here is fatal: findings are
// collected as warnings and per-document repair failures never abort the
// batch.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/classifier"
	"ledger-reconciliation-engine/internal/ledger"
	"ledger-reconciliation-engine/internal/models"
	"ledger-reconciliation-engine/internal/store"
	apperrors "ledger-reconciliation-engine/pkg/errors"
	"ledger-reconciliation-engine/pkg/logger"
)

// Config holds configuration options for the reconciliation engine.
type Config struct {
	// Mode selects NET or GROSS balance policy. There is no default: which
	// policy is correct is a deployment decision, so construction fails
	// when the mode is unset.
	Mode ledger.BalanceMode

	// Tolerance for balance comparisons; zero falls back to
	// ledger.DefaultTolerance.
	Tolerance decimal.Decimal

	// Snapshot filtering options
	CenterID string
	From     *time.Time
	To       *time.Time

	// Workers bounds repair parallelism. Repair is parallel by document;
	// there is no cross-document dependency.
	Workers int

	// ProgressReporting enables interval progress logs on long batches.
	ProgressReporting bool

	// DryRun makes Repair report what it would change without writing.
	DryRun bool

	// Classifier overrides the number-prefix conventions; nil uses defaults.
	Classifier *classifier.Config
}

// Validate validates the engine configuration
func (c *Config) Validate() error {
	if !c.Mode.IsValid() {
		return fmt.Errorf("balance mode must be %q or %q, got %q", ledger.ModeNet, ledger.ModeGross, c.Mode)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative, got %s", c.Tolerance)
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		return fmt.Errorf("start date must be before end date")
	}
	return nil
}

// Engine runs reconciliation passes against the stores.
type Engine struct {
	documents store.DocumentStore
	payments  store.PaymentStore
	runs      store.AuditRunStore // optional; nil disables run persistence
	config    *Config
	detector  *ledger.MismatchDetector
	clf       *classifier.Classifier
	log       logger.Logger
}

// NewEngine creates a reconciliation engine. The audit run store may be nil,
// in which case audit summaries are not persisted.
func NewEngine(documents store.DocumentStore, payments store.PaymentStore, runs store.AuditRunStore, config *Config, log logger.Logger) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("engine configuration is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if documents == nil || payments == nil {
		return nil, fmt.Errorf("document and payment stores are required")
	}

	if config.Workers == 0 {
		config.Workers = 4
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	tolerance := config.Tolerance
	if tolerance.IsZero() {
		tolerance = ledger.DefaultTolerance
	}

	return &Engine{
		documents: documents,
		payments:  payments,
		runs:      runs,
		config:    config,
		detector:  ledger.NewMismatchDetector(tolerance),
		clf:       classifier.New(config.Classifier),
		log:       log.WithComponent("engine"),
	}, nil
}

// AuditReport is the structured result of a read-only audit pass. Formatting
// for humans lives in the reporter package; this type is the contract.
type AuditReport struct {
	RunID            string                    `json:"run_id"`
	ProcessedAt      time.Time                 `json:"processed_at"`
	Duration         time.Duration             `json:"duration"`
	DocumentsScanned int                       `json:"documents_scanned"`
	Mismatches       *ledger.MismatchReport    `json:"mismatches"`
	Overpayments     *ledger.OverpaymentReport `json:"overpayments"`
	Duplicates       *ledger.DuplicateReport   `json:"duplicates"`
	Census           *classifier.Census        `json:"census"`
	Orphaned         []*models.Document        `json:"orphaned,omitempty"`
	Warnings         *apperrors.ErrorSummary   `json:"warnings"`
}

// Audit runs the full read-only pass: balance mismatches, overpayments,
// duplicate payments, classification census and orphan detection, over one
// consistent snapshot of documents and payments.
func (e *Engine) Audit(ctx context.Context) (*AuditReport, error) {
	started := time.Now()

	docs, payments, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logger.Fields{
		"documents": len(docs),
		"payments":  len(payments),
	}).Info("Starting audit pass")

	report := &AuditReport{
		RunID:            uuid.NewString(),
		ProcessedAt:      started,
		DocumentsScanned: len(docs),
		Mismatches:       e.detector.Detect(docs, payments),
		Overpayments:     ledger.DetectOverpayments(docs, payments, e.config.Tolerance),
		Duplicates:       ledger.DetectDuplicates(payments),
		Census:           e.clf.Census(docs),
	}

	for _, doc := range docs {
		if doc.IsOrphaned() {
			report.Orphaned = append(report.Orphaned, doc)
		}
	}

	report.Warnings = e.collectWarnings(report)
	report.Duration = time.Since(started)

	if e.runs != nil {
		if err := e.runs.SaveAuditRun(ctx, auditRunFromReport(report)); err != nil {
			// Persistence of the summary is best effort; the audit result
			// itself is already complete.
			e.log.WithError(err).Warn("Failed to persist audit run")
		}
	}

	e.log.WithFields(logger.Fields{
		"run_id":       report.RunID,
		"mismatches":   report.Mismatches.MismatchCount(),
		"duplicates":   report.Duplicates.DuplicateCount(),
		"overpaid":     report.Overpayments.OverpaidCount(),
		"unclassified": len(report.Census.Unclassified),
		"orphaned":     len(report.Orphaned),
		"duration":     report.Duration.String(),
	}).Info("Audit pass complete")

	return report, nil
}

// RemoveDuplicates deletes a previously detected duplicate set. This is the
// explicit second step after detection; the audit itself never deletes.
func (e *Engine) RemoveDuplicates(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := e.payments.DeletePayments(ctx, ids)
	if err != nil {
		return deleted, apperrors.StoreError(apperrors.CodeDeleteFailed, "remove duplicates", err)
	}

	e.log.WithFields(logger.Fields{
		"requested": len(ids),
		"deleted":   deleted,
	}).Info("Removed duplicate payments")

	return deleted, nil
}

func (e *Engine) loadSnapshot(ctx context.Context) ([]*models.Document, []*models.Payment, error) {
	docs, err := e.documents.ListDocuments(ctx, store.DocumentFilter{
		CenterID: e.config.CenterID,
		From:     e.config.From,
		To:       e.config.To,
	})
	if err != nil {
		return nil, nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list documents", err)
	}

	payments, err := e.payments.ListPayments(ctx, store.PaymentFilter{CenterID: e.config.CenterID})
	if err != nil {
		return nil, nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list payments", err)
	}

	return docs, payments, nil
}

func (e *Engine) collectWarnings(report *AuditReport) *apperrors.ErrorSummary {
	var warnings []*apperrors.LedgerError

	for _, m := range report.Mismatches.Mismatches {
		warnings = append(warnings, apperrors.IntegrityWarning(
			apperrors.CodeBalanceMismatch, m.DocumentID,
			fmt.Sprintf("stored %s, calculated %s", m.Stored, m.Calculated)))
	}

	for _, doc := range report.Census.Unclassified {
		warnings = append(warnings, apperrors.IntegrityWarning(
			apperrors.CodeUnclassified, doc.ID,
			fmt.Sprintf("type %s, number %s, status %s, stored balance %s",
				doc.Type, doc.Number, doc.Status, doc.OutstandingBalance)))
	}

	for _, doc := range report.Orphaned {
		warnings = append(warnings, apperrors.IntegrityWarning(
			apperrors.CodeOrphanedDocument, doc.ID, ""))
	}

	for _, o := range report.Overpayments.Overpaid {
		warnings = append(warnings, apperrors.IntegrityWarning(
			apperrors.CodeNegativeBalance, o.DocumentID,
			fmt.Sprintf("surplus %s", o.Surplus)))
	}

	for _, group := range report.Duplicates.Groups {
		for _, dup := range group.Duplicates {
			warnings = append(warnings, apperrors.DuplicateWarning(dup.ID, group.DocumentID))
		}
	}

	return apperrors.NewErrorSummary(warnings)
}

func auditRunFromReport(report *AuditReport) *store.AuditRun {
	return &store.AuditRun{
		ID:                   report.RunID,
		StartedAt:            report.ProcessedAt,
		Duration:             report.Duration,
		DocumentsScanned:     report.DocumentsScanned,
		MismatchCount:        report.Mismatches.MismatchCount(),
		DuplicateCount:       report.Duplicates.DuplicateCount(),
		OverpaidCount:        report.Overpayments.OverpaidCount(),
		UnclassifiedCount:    len(report.Census.Unclassified),
		OrphanedCount:        len(report.Orphaned),
		TotalStored:          report.Mismatches.TotalStored,
		TotalCalculatedNet:   report.Mismatches.TotalCalculatedNet,
		TotalCalculatedGross: report.Mismatches.TotalCalculatedGross,
	}
}
