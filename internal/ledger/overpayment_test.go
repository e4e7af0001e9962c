package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

func TestDetectOverpayments(t *testing.T) {
	docs := []*models.Document{
		testDocument("D1", 500, 0),
		testDocument("D2", 1000, 600),
	}
	payments := []*models.Payment{
		testPayment("P1", "D1", 300, 5),
		testPayment("P2", "D1", 300, 6),
		testPayment("P3", "D2", 400, 7),
	}

	report := DetectOverpayments(docs, payments, decimal.Zero)

	if report.OverpaidCount() != 1 {
		t.Fatalf("Expected 1 overpaid document, got %d", report.OverpaidCount())
	}
	if report.Overpaid[0].DocumentID != "D1" {
		t.Errorf("Expected D1 overpaid, got %s", report.Overpaid[0].DocumentID)
	}
	if !report.Overpaid[0].Surplus.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected surplus 100, got %s", report.Overpaid[0].Surplus)
	}
	if !report.TotalSurplus.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected total surplus 100, got %s", report.TotalSurplus)
	}
}

// A reconciled document can still be overpaid: the stored balance matches the
// calculated one, but both are negative.
func TestDetectOverpaymentsIndependentOfMismatch(t *testing.T) {
	doc := testDocument("D1", 500, -100)
	payments := []*models.Payment{
		testPayment("P1", "D1", 600, 5),
	}

	detector := NewMismatchDetector(decimal.Zero)
	if m := detector.Check(doc, payments); m != nil {
		t.Fatalf("Expected document to reconcile, got mismatch %+v", m)
	}

	report := DetectOverpayments([]*models.Document{doc}, payments, decimal.Zero)
	if report.OverpaidCount() != 1 {
		t.Fatalf("Expected overpayment on reconciled document, got %d", report.OverpaidCount())
	}
	if !report.Overpaid[0].Surplus.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected surplus 100, got %s", report.Overpaid[0].Surplus)
	}
}

func TestDetectOverpaymentsWithinTolerance(t *testing.T) {
	docs := []*models.Document{testDocument("D1", 100, 0)}
	payments := []*models.Payment{testPayment("P1", "D1", 100.01, 5)}

	report := DetectOverpayments(docs, payments, decimal.Zero)
	if report.OverpaidCount() != 0 {
		t.Errorf("Expected surplus within tolerance to be ignored, got %d", report.OverpaidCount())
	}
}

func TestDetectOverpaymentsExactPaymentNotFlagged(t *testing.T) {
	docs := []*models.Document{testDocument("D1", 500, 0)}
	payments := []*models.Payment{testPayment("P1", "D1", 500, 5)}

	report := DetectOverpayments(docs, payments, decimal.Zero)
	if report.OverpaidCount() != 0 {
		t.Errorf("Expected exactly paid document not to be flagged, got %d", report.OverpaidCount())
	}
}
