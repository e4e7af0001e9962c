package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

func TestMismatchDetectorCheck(t *testing.T) {
	detector := NewMismatchDetector(decimal.Zero)

	// Stored 300 versus ledger-derived 200.
	doc := testDocument("D1", 1000, 300)
	payments := []*models.Payment{
		testPayment("P1", "D1", 400, 5),
		testPayment("P2", "D1", 400, 10),
	}

	m := detector.Check(doc, payments)
	if m == nil {
		t.Fatal("Expected a mismatch")
	}

	if !m.Stored.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected stored 300, got %s", m.Stored)
	}
	if !m.Calculated.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected calculated 200, got %s", m.Calculated)
	}
	if !m.Diff.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected diff 100, got %s", m.Diff)
	}
}

func TestMismatchDetectorWithinTolerance(t *testing.T) {
	detector := NewMismatchDetector(decimal.Zero)

	doc := testDocument("D1", 1000, 600.01)
	payments := []*models.Payment{
		testPayment("P1", "D1", 400, 5),
	}

	if m := detector.Check(doc, payments); m != nil {
		t.Errorf("Expected no mismatch within tolerance, got %+v", m)
	}
}

func TestMismatchDetectorDetect(t *testing.T) {
	detector := NewMismatchDetector(decimal.Zero)

	docs := []*models.Document{
		testDocument("D1", 1000, 300), // mismatched: calculated 200
		testDocument("D2", 500, 500),  // correct, no payments
		testDocument("D3", 500, -100), // correct, overpaid credit
	}
	payments := []*models.Payment{
		testPayment("P1", "D1", 400, 5),
		testPayment("P2", "D1", 400, 10),
		testPayment("P3", "D3", 600, 7),
	}

	report := detector.Detect(docs, payments)

	if report.DocumentsScanned != 3 {
		t.Errorf("Expected 3 documents scanned, got %d", report.DocumentsScanned)
	}
	if report.MismatchCount() != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", report.MismatchCount())
	}
	if report.Mismatches[0].DocumentID != "D1" {
		t.Errorf("Expected mismatch on D1, got %s", report.Mismatches[0].DocumentID)
	}

	// Stored: 300 + 500 - 100 = 700
	if !report.TotalStored.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected total stored 700, got %s", report.TotalStored)
	}
	// Net: 200 + 500 - 100 = 600
	if !report.TotalCalculatedNet.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected total net 600, got %s", report.TotalCalculatedNet)
	}
	// Gross: 200 + 500 + 0 = 700
	if !report.TotalCalculatedGross.Equal(decimal.NewFromInt(700)) {
		t.Errorf("Expected total gross 700, got %s", report.TotalCalculatedGross)
	}
}

// The gross/net difference must equal the total credit over documents with a
// negative net balance.
func TestMismatchReportUnaccountedCreditIdentity(t *testing.T) {
	detector := NewMismatchDetector(decimal.Zero)

	docs := []*models.Document{
		testDocument("D1", 500, 0),
		testDocument("D2", 200, 0),
		testDocument("D3", 1000, 1000),
	}
	payments := []*models.Payment{
		testPayment("P1", "D1", 600, 5), // credit 100
		testPayment("P2", "D2", 250, 6), // credit 50
	}

	report := detector.Detect(docs, payments)

	credit := decimal.Zero
	for _, doc := range docs {
		net := CalculateBalance(doc, payments, ModeNet)
		if net.IsNegative() {
			credit = credit.Add(net.Abs())
		}
	}

	if !report.UnaccountedCredit().Equal(credit) {
		t.Errorf("Expected unaccounted credit %s, got %s", credit, report.UnaccountedCredit())
	}
	if !report.UnaccountedCredit().Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected unaccounted credit 150, got %s", report.UnaccountedCredit())
	}
}
