package ledger

import (
	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// Mismatch records a disagreement between a document's stored balance and
// the balance derived from its payment ledger.
type Mismatch struct {
	DocumentID string          `json:"document_id"`
	Number     string          `json:"number"`
	Stored     decimal.Decimal `json:"stored"`
	Calculated decimal.Decimal `json:"calculated"`
	Diff       decimal.Decimal `json:"diff"`
}

// MismatchReport aggregates mismatch detection over a document snapshot.
//
// The three balance totals are independently meaningful and must never be
// conflated: mixing net and gross sums produces a phantom discrepancy equal
// to the sum of all credit balances.
type MismatchReport struct {
	DocumentsScanned     int             `json:"documents_scanned"`
	Mismatches           []*Mismatch     `json:"mismatches"`
	TotalStored          decimal.Decimal `json:"total_stored"`
	TotalCalculatedNet   decimal.Decimal `json:"total_calculated_net"`
	TotalCalculatedGross decimal.Decimal `json:"total_calculated_gross"`
}

// MismatchCount returns the number of detected mismatches.
func (r *MismatchReport) MismatchCount() int {
	return len(r.Mismatches)
}

// UnaccountedCredit returns the total credit hidden by gross reporting:
// TotalCalculatedGross - TotalCalculatedNet, which equals the sum of |credit|
// over all documents with a negative net balance.
func (r *MismatchReport) UnaccountedCredit() decimal.Decimal {
	return r.TotalCalculatedGross.Sub(r.TotalCalculatedNet)
}

// MismatchDetector compares stored balances against ledger-derived ones.
type MismatchDetector struct {
	tolerance decimal.Decimal
}

// NewMismatchDetector creates a detector with the given tolerance. A zero
// tolerance falls back to DefaultTolerance.
func NewMismatchDetector(tolerance decimal.Decimal) *MismatchDetector {
	if tolerance.IsZero() {
		tolerance = DefaultTolerance
	}
	return &MismatchDetector{tolerance: tolerance}
}

// Tolerance returns the effective comparison tolerance.
func (md *MismatchDetector) Tolerance() decimal.Decimal {
	return md.tolerance
}

// Check computes the net balance for a single document and returns a
// Mismatch if it deviates from the stored balance beyond tolerance,
// or nil when the document reconciles.
func (md *MismatchDetector) Check(doc *models.Document, payments []*models.Payment) *Mismatch {
	calculated := CalculateBalance(doc, payments, ModeNet)
	diff := doc.OutstandingBalance.Sub(calculated)

	if diff.Abs().LessThanOrEqual(md.tolerance) {
		return nil
	}

	return &Mismatch{
		DocumentID: doc.ID,
		Number:     doc.Number,
		Stored:     doc.OutstandingBalance,
		Calculated: calculated,
		Diff:       diff,
	}
}

// Detect runs mismatch detection over a document snapshot and the full
// payment ledger, producing the aggregate report.
func (md *MismatchDetector) Detect(docs []*models.Document, payments []*models.Payment) *MismatchReport {
	grouped := PaymentsByDocument(payments)

	report := &MismatchReport{
		DocumentsScanned:     len(docs),
		TotalStored:          decimal.Zero,
		TotalCalculatedNet:   decimal.Zero,
		TotalCalculatedGross: decimal.Zero,
	}

	for _, doc := range docs {
		docPayments := grouped[doc.ID]

		net := CalculateBalance(doc, docPayments, ModeNet)
		gross := CalculateBalance(doc, docPayments, ModeGross)

		report.TotalStored = report.TotalStored.Add(doc.OutstandingBalance)
		report.TotalCalculatedNet = report.TotalCalculatedNet.Add(net)
		report.TotalCalculatedGross = report.TotalCalculatedGross.Add(gross)

		if m := md.Check(doc, docPayments); m != nil {
			report.Mismatches = append(report.Mismatches, m)
		}
	}

	return report
}
