package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

func testDocument(id string, total, stored float64) *models.Document {
	return &models.Document{
		ID:                 id,
		Number:             "FAC-" + id,
		Type:               models.DocumentTypeInvoice,
		Status:             models.StatusValidated,
		TotalAmount:        decimal.NewFromFloat(total),
		OutstandingBalance: decimal.NewFromFloat(stored),
		CenterID:           "center-1",
	}
}

func testPayment(id, docID string, amount float64, day int) *models.Payment {
	return &models.Payment{
		ID:         id,
		DocumentID: docID,
		Amount:     decimal.NewFromFloat(amount),
		Date:       time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Mode:       models.ModeCash,
		CreatedAt:  time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestCalculateBalanceNoPayments(t *testing.T) {
	doc := testDocument("D1", 1000, 1000)

	balance := CalculateBalance(doc, nil, ModeNet)
	if !balance.Equal(doc.TotalAmount) {
		t.Errorf("Expected balance %s with no payments, got %s", doc.TotalAmount, balance)
	}
}

func TestCalculateBalanceNet(t *testing.T) {
	doc := testDocument("D1", 1000, 300)
	payments := []*models.Payment{
		testPayment("P1", "D1", 400, 5),
		testPayment("P2", "D1", 400, 10),
	}

	balance := CalculateBalance(doc, payments, ModeNet)
	if !balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected 200, got %s", balance)
	}
}

func TestCalculateBalanceNegativeNetPreserved(t *testing.T) {
	doc := testDocument("D1", 500, 0)
	payments := []*models.Payment{
		testPayment("P1", "D1", 300, 5),
		testPayment("P2", "D1", 300, 6),
	}

	net := CalculateBalance(doc, payments, ModeNet)
	if !net.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("Expected -100 net, got %s", net)
	}

	gross := CalculateBalance(doc, payments, ModeGross)
	if !gross.IsZero() {
		t.Errorf("Expected 0 gross, got %s", gross)
	}
}

func TestCalculateBalanceIgnoresForeignPayments(t *testing.T) {
	doc := testDocument("D1", 1000, 1000)
	payments := []*models.Payment{
		testPayment("P1", "D1", 400, 5),
		testPayment("P2", "D2", 999, 5),
	}

	balance := CalculateBalance(doc, payments, ModeNet)
	if !balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected 600, got %s", balance)
	}
}

func TestCalculateBalanceRounding(t *testing.T) {
	doc := testDocument("D1", 100, 0)
	payments := []*models.Payment{
		testPayment("P1", "D1", 33.333, 5),
		testPayment("P2", "D1", 33.333, 6),
	}

	balance := CalculateBalance(doc, payments, ModeNet)
	if !balance.Equal(decimal.NewFromFloat(33.33)) {
		t.Errorf("Expected 33.33, got %s", balance)
	}
}

func TestPaymentsByDocument(t *testing.T) {
	payments := []*models.Payment{
		testPayment("P1", "D1", 100, 5),
		testPayment("P2", "D2", 200, 5),
		testPayment("P3", "D1", 300, 6),
	}

	grouped := PaymentsByDocument(payments)

	if len(grouped) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(grouped))
	}
	if len(grouped["D1"]) != 2 {
		t.Errorf("Expected 2 payments for D1, got %d", len(grouped["D1"]))
	}
	if len(grouped["D2"]) != 1 {
		t.Errorf("Expected 1 payment for D2, got %d", len(grouped["D2"]))
	}
}

func TestBalanceModeIsValid(t *testing.T) {
	if !ModeNet.IsValid() || !ModeGross.IsValid() {
		t.Error("Expected net and gross to be valid modes")
	}
	if BalanceMode("clamped").IsValid() {
		t.Error("Expected unknown mode to be invalid")
	}
}
