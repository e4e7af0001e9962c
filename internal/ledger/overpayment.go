package ledger

import (
	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// Overpayment records a document whose collected payments exceed its total.
// This is independent of mismatch detection: a document can reconcile
// perfectly (stored equals calculated) and still be overpaid, because the
// calculated balance itself is negative.
type Overpayment struct {
	DocumentID string          `json:"document_id"`
	Number     string          `json:"number"`
	Surplus    decimal.Decimal `json:"surplus"`
}

// OverpaymentReport aggregates overpayment detection over a snapshot.
type OverpaymentReport struct {
	Overpaid     []*Overpayment  `json:"overpaid"`
	TotalSurplus decimal.Decimal `json:"total_surplus"`
}

// OverpaidCount returns the number of overpaid documents.
func (r *OverpaymentReport) OverpaidCount() int {
	return len(r.Overpaid)
}

// DetectOverpayments scans documents for collected surplus beyond tolerance:
// surplus = sum(payments) - totalAmount.
func DetectOverpayments(docs []*models.Document, payments []*models.Payment, tolerance decimal.Decimal) *OverpaymentReport {
	if tolerance.IsZero() {
		tolerance = DefaultTolerance
	}

	grouped := PaymentsByDocument(payments)

	report := &OverpaymentReport{
		TotalSurplus: decimal.Zero,
	}

	for _, doc := range docs {
		paid := decimal.Zero
		for _, p := range grouped[doc.ID] {
			paid = paid.Add(p.Amount)
		}

		surplus := paid.Sub(doc.TotalAmount).Round(2)
		if surplus.LessThanOrEqual(tolerance) {
			continue
		}

		report.Overpaid = append(report.Overpaid, &Overpayment{
			DocumentID: doc.ID,
			Number:     doc.Number,
			Surplus:    surplus,
		})
		report.TotalSurplus = report.TotalSurplus.Add(surplus)
	}

	return report
}
