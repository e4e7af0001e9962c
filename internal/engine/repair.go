package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/ledger"
	"ledger-reconciliation-engine/internal/models"
	"ledger-reconciliation-engine/internal/store"
	apperrors "ledger-reconciliation-engine/pkg/errors"
	"ledger-reconciliation-engine/pkg/logger"
)

// RepairFailure records a document that could not be repaired. Failures are
// collected, never propagated: one stuck document must not abort the rest of
// the batch.
type RepairFailure struct {
	DocumentID string `json:"document_id"`
	Number     string `json:"number"`
	Error      string `json:"error"`
}

// RepairReport summarizes a repair pass.
type RepairReport struct {
	DocumentsScanned int `json:"documents_scanned"`
	// DocumentsFixed counts successful balance writes. Reconciled documents
	// are skipped and do not count.
	DocumentsFixed int `json:"documents_fixed"`
	// TotalAdjustment is the sum of absolute corrections applied.
	TotalAdjustment decimal.Decimal  `json:"total_adjustment"`
	Failures        []*RepairFailure `json:"failures,omitempty"`
}

// FailureCount returns the number of documents that failed to repair.
func (r *RepairReport) FailureCount() int {
	return len(r.Failures)
}

// Repair rewrites every stored balance that disagrees with the calculated
// one, using compare-and-set against the balance read at the start of the
// pass. A document whose stored balance changed underneath the pass is
// reported as a failure and left alone; re-running the repair picks it up
// with fresh values.
//
// Repair is idempotent: a second run over repaired documents finds stored
// equal to calculated and writes nothing.
func (e *Engine) Repair(ctx context.Context) (*RepairReport, error) {
	docs, payments, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	byDoc := ledger.PaymentsByDocument(payments)

	e.log.WithFields(logger.Fields{
		"documents": len(docs),
		"mode":      e.config.Mode,
		"workers":   e.config.Workers,
	}).Info("Starting repair pass")

	var tracker *logger.ProgressTracker
	if e.config.ProgressReporting {
		tracker = logger.NewProgressTracker(logger.ProgressConfig{
			Operation: "repair",
			Total:     int64(len(docs)),
			Logger:    e.log,
		})
	}

	report := &RepairReport{
		DocumentsScanned: len(docs),
		TotalAdjustment:  decimal.Zero,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan *models.Document)

	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range work {
				fixed, adjustment, failure := e.repairDocument(ctx, doc, byDoc[doc.ID])
				mu.Lock()
				if fixed {
					report.DocumentsFixed++
					report.TotalAdjustment = report.TotalAdjustment.Add(adjustment)
				}
				if failure != nil {
					report.Failures = append(report.Failures, failure)
				}
				mu.Unlock()
				if tracker != nil {
					tracker.Increment()
				}
			}
		}()
	}

	for _, doc := range docs {
		select {
		case work <- doc:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return report, ctx.Err()
		}
	}
	close(work)
	wg.Wait()

	if tracker != nil {
		tracker.Complete()
	}

	// Worker completion order is not deterministic; sort for stable output.
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].DocumentID < report.Failures[j].DocumentID
	})

	e.log.WithFields(logger.Fields{
		"scanned":          report.DocumentsScanned,
		"fixed":            report.DocumentsFixed,
		"failures":         report.FailureCount(),
		"total_adjustment": report.TotalAdjustment.String(),
	}).Info("Repair pass complete")

	return report, nil
}

// repairDocument repairs a single document. It returns whether a write
// happened, the absolute adjustment applied, and a failure record if the
// repair could not complete.
func (e *Engine) repairDocument(ctx context.Context, doc *models.Document, payments []*models.Payment) (bool, decimal.Decimal, *RepairFailure) {
	calculated := ledger.CalculateBalance(doc, payments, e.config.Mode)
	diff := doc.OutstandingBalance.Sub(calculated)

	if diff.Abs().LessThanOrEqual(e.detector.Tolerance()) {
		return false, decimal.Zero, nil
	}

	status := e.deriveStatus(doc, payments)

	if e.config.DryRun {
		e.log.WithFields(logger.Fields{
			"document_id": doc.ID,
			"stored":      doc.OutstandingBalance.String(),
			"calculated":  calculated.String(),
		}).Info("Would repair balance (dry run)")
		return true, diff.Abs(), nil
	}

	err := e.documents.UpdateBalance(ctx, doc.ID, doc.OutstandingBalance, calculated, status)
	if err != nil {
		code := apperrors.CodeWriteFailed
		switch err {
		case store.ErrBalanceMoved:
			code = apperrors.CodeBalanceMoved
		case store.ErrNotFound:
			code = apperrors.CodeDocumentMissing
		}
		lerr := apperrors.RepairError(code, doc.ID, err)
		e.log.WithError(lerr).WithField("document_id", doc.ID).Warn("Repair failed, skipping document")
		return false, decimal.Zero, &RepairFailure{
			DocumentID: doc.ID,
			Number:     doc.Number,
			Error:      lerr.Error(),
		}
	}

	e.log.WithFields(logger.Fields{
		"document_id": doc.ID,
		"number":      doc.Number,
		"stored":      doc.OutstandingBalance.String(),
		"calculated":  calculated.String(),
	}).Debug("Repaired balance")

	return true, diff.Abs(), nil
}

// deriveStatus decides whether the repair also rewrites the document status.
// In net mode the status is left untouched: a negative balance is a finding,
// not a state change. In gross mode a fully paid document is promoted to
// PAID; terminal statuses are never rewritten.
func (e *Engine) deriveStatus(doc *models.Document, payments []*models.Payment) *models.DocumentStatus {
	if e.config.Mode != ledger.ModeGross {
		return nil
	}
	if doc.Status.IsTerminal() || doc.Status == models.StatusPaid {
		return nil
	}
	net := ledger.CalculateBalance(doc, payments, ledger.ModeNet)
	if net.LessThanOrEqual(decimal.Zero) {
		status := models.StatusPaid
		return &status
	}
	return nil
}
