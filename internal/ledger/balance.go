// Package ledger implements the core reconciliation arithmetic: authoritative
// balance calculation from the payment ledger, mismatch detection against the
// stored balance cache, duplicate payment detection and overpayment detection.
//
// The package operates on in-memory snapshots and never mutates stores;
// repair and deletion live in the engine package.
package ledger

import (
	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// BalanceMode selects how a calculated balance is reported. The engine never
// infers a mode; callers pick one explicitly.
type BalanceMode string

const (
	// ModeNet returns the signed balance. Negative values are credit owed
	// to the client and are first-class information.
	ModeNet BalanceMode = "net"
	// ModeGross clamps the balance at zero, for contexts that must not
	// report negative debt.
	ModeGross BalanceMode = "gross"
)

// String returns the string representation of BalanceMode
func (m BalanceMode) String() string {
	return string(m)
}

// IsValid checks if the balance mode is valid
func (m BalanceMode) IsValid() bool {
	return m == ModeNet || m == ModeGross
}

// DefaultTolerance is the balance comparison tolerance in currency units.
var DefaultTolerance = decimal.NewFromFloat(0.01)

// CalculateBalance computes the authoritative balance of a document from its
// payment ledger: round2(totalAmount - sum(payments)), reported per mode.
// Payments belonging to other documents are ignored so callers may pass an
// unfiltered slice.
func CalculateBalance(doc *models.Document, payments []*models.Payment, mode BalanceMode) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.DocumentID != doc.ID {
			continue
		}
		paid = paid.Add(p.Amount)
	}

	balance := doc.TotalAmount.Sub(paid).Round(2)

	if mode == ModeGross && balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// PaymentsByDocument groups a payment snapshot by owning document ID.
func PaymentsByDocument(payments []*models.Payment) map[string][]*models.Payment {
	grouped := make(map[string][]*models.Payment)
	for _, p := range payments {
		grouped[p.DocumentID] = append(grouped[p.DocumentID], p)
	}
	return grouped
}
