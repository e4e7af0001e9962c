package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDocument(t *testing.T, s *SQLiteDocumentStore, doc *models.Document) {
	t.Helper()
	if err := s.InsertDocument(context.Background(), doc); err != nil {
		t.Fatalf("InsertDocument failed: %v", err)
	}
}

func seedPayment(t *testing.T, s *SQLitePaymentStore, p *models.Payment) {
	t.Helper()
	if err := s.InsertPayment(context.Background(), p); err != nil {
		t.Fatalf("InsertPayment failed: %v", err)
	}
}

func sampleDocument(id string) *models.Document {
	issued := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return &models.Document{
		ID:                 id,
		Number:             "FAC-" + id,
		Type:               models.DocumentTypeInvoice,
		Status:             models.StatusValidated,
		IssueDate:          &issued,
		TotalAmount:        decimal.NewFromInt(1000),
		OutstandingBalance: decimal.NewFromInt(600),
		CenterID:           "center-1",
	}
}

func samplePayment(id, docID string, amount float64) *models.Payment {
	return &models.Payment{
		ID:         id,
		DocumentID: docID,
		Amount:     decimal.NewFromFloat(amount),
		Date:       time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Mode:       models.ModeCash,
		CreatedAt:  time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)

	doc := sampleDocument("D1")
	seedDocument(t, s, doc)

	got, err := s.GetDocument(context.Background(), "D1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}

	if got.Number != doc.Number {
		t.Errorf("Expected number %s, got %s", doc.Number, got.Number)
	}
	if !got.TotalAmount.Equal(doc.TotalAmount) {
		t.Errorf("Expected total %s, got %s", doc.TotalAmount, got.TotalAmount)
	}
	if !got.OutstandingBalance.Equal(doc.OutstandingBalance) {
		t.Errorf("Expected balance %s, got %s", doc.OutstandingBalance, got.OutstandingBalance)
	}
	if got.IssueDate == nil || !got.IssueDate.Equal(*doc.IssueDate) {
		t.Errorf("Expected issue date %v, got %v", doc.IssueDate, got.IssueDate)
	}
	if got.CenterID != "center-1" {
		t.Errorf("Expected center-1, got %s", got.CenterID)
	}
}

func TestDocumentNullableFields(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)

	doc := sampleDocument("D1")
	doc.IssueDate = nil
	doc.CenterID = ""
	seedDocument(t, s, doc)

	got, err := s.GetDocument(context.Background(), "D1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}

	if got.IssueDate != nil {
		t.Errorf("Expected nil issue date, got %v", got.IssueDate)
	}
	if got.CenterID != "" {
		t.Errorf("Expected empty center, got %s", got.CenterID)
	}
	if !got.IsOrphaned() {
		t.Error("Expected document to be orphaned")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)

	if _, err := s.GetDocument(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListDocumentsFilter(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)

	d1 := sampleDocument("D1")
	d2 := sampleDocument("D2")
	d2.CenterID = "center-2"
	d3 := sampleDocument("D3")
	d3.Status = models.StatusCancelled
	seedDocument(t, s, d1)
	seedDocument(t, s, d2)
	seedDocument(t, s, d3)

	all, err := s.ListDocuments(context.Background(), DocumentFilter{})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 documents, got %d", len(all))
	}

	byCenter, err := s.ListDocuments(context.Background(), DocumentFilter{CenterID: "center-2"})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(byCenter) != 1 || byCenter[0].ID != "D2" {
		t.Errorf("Expected only D2 for center-2, got %d documents", len(byCenter))
	}

	byStatus, err := s.ListDocuments(context.Background(), DocumentFilter{Status: models.StatusCancelled})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "D3" {
		t.Errorf("Expected only D3 cancelled, got %d documents", len(byStatus))
	}
}

func TestUpdateBalanceCompareAndSet(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)
	ctx := context.Background()

	seedDocument(t, s, sampleDocument("D1"))

	// CAS with the correct expected value succeeds.
	err := s.UpdateBalance(ctx, "D1", decimal.NewFromInt(600), decimal.NewFromInt(200), nil)
	if err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	got, _ := s.GetDocument(ctx, "D1")
	if !got.OutstandingBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected balance 200, got %s", got.OutstandingBalance)
	}

	// CAS with a stale expected value fails and does not write.
	err = s.UpdateBalance(ctx, "D1", decimal.NewFromInt(600), decimal.NewFromInt(999), nil)
	if err != ErrBalanceMoved {
		t.Errorf("Expected ErrBalanceMoved, got %v", err)
	}

	got, _ = s.GetDocument(ctx, "D1")
	if !got.OutstandingBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected balance unchanged at 200, got %s", got.OutstandingBalance)
	}
}

func TestUpdateBalanceWithStatus(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)
	ctx := context.Background()

	seedDocument(t, s, sampleDocument("D1"))

	paid := models.StatusPaid
	err := s.UpdateBalance(ctx, "D1", decimal.NewFromInt(600), decimal.Zero, &paid)
	if err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	got, _ := s.GetDocument(ctx, "D1")
	if got.Status != models.StatusPaid {
		t.Errorf("Expected status PAID, got %s", got.Status)
	}
}

func TestUpdateBalanceNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLiteDocumentStore(db)

	err := s.UpdateBalance(context.Background(), "missing", decimal.Zero, decimal.Zero, nil)
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPaymentRoundTripAndListByDocument(t *testing.T) {
	db := setupTestDB(t)
	docs := NewSQLiteDocumentStore(db)
	pays := NewSQLitePaymentStore(db)
	ctx := context.Background()

	seedDocument(t, docs, sampleDocument("D1"))
	seedDocument(t, docs, sampleDocument("D2"))
	seedPayment(t, pays, samplePayment("P1", "D1", 400))
	seedPayment(t, pays, samplePayment("P2", "D1", 200.50))
	seedPayment(t, pays, samplePayment("P3", "D2", 100))

	got, err := pays.ListPaymentsByDocument(ctx, "D1")
	if err != nil {
		t.Fatalf("ListPaymentsByDocument failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 payments, got %d", len(got))
	}

	total := decimal.Zero
	for _, p := range got {
		total = total.Add(p.Amount)
	}
	if !total.Equal(decimal.NewFromFloat(600.50)) {
		t.Errorf("Expected total 600.50, got %s", total)
	}
}

func TestListPaymentsByCenter(t *testing.T) {
	db := setupTestDB(t)
	docs := NewSQLiteDocumentStore(db)
	pays := NewSQLitePaymentStore(db)
	ctx := context.Background()

	d1 := sampleDocument("D1")
	d2 := sampleDocument("D2")
	d2.CenterID = "center-2"
	seedDocument(t, docs, d1)
	seedDocument(t, docs, d2)
	seedPayment(t, pays, samplePayment("P1", "D1", 100))
	seedPayment(t, pays, samplePayment("P2", "D2", 200))

	got, err := pays.ListPayments(ctx, PaymentFilter{CenterID: "center-2"})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "P2" {
		t.Errorf("Expected only P2 for center-2, got %d payments", len(got))
	}
}

func TestDeletePaymentsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	docs := NewSQLiteDocumentStore(db)
	pays := NewSQLitePaymentStore(db)
	ctx := context.Background()

	seedDocument(t, docs, sampleDocument("D1"))
	seedPayment(t, pays, samplePayment("P1", "D1", 100))
	seedPayment(t, pays, samplePayment("P2", "D1", 100))

	deleted, err := pays.DeletePayments(ctx, []string{"P2", "missing"})
	if err != nil {
		t.Fatalf("DeletePayments failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	// Deleting the same set again removes nothing.
	deleted, err = pays.DeletePayments(ctx, []string{"P2", "missing"})
	if err != nil {
		t.Fatalf("DeletePayments failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deleted on re-run, got %d", deleted)
	}

	remaining, _ := pays.ListPaymentsByDocument(ctx, "D1")
	if len(remaining) != 1 || remaining[0].ID != "P1" {
		t.Errorf("Expected only P1 to remain, got %d payments", len(remaining))
	}
}

func TestAuditRunRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	runs := NewSQLiteAuditRunStore(db)
	ctx := context.Background()

	run := &AuditRun{
		ID:                   "run-1",
		StartedAt:            time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
		Duration:             1500 * time.Millisecond,
		DocumentsScanned:     120,
		MismatchCount:        3,
		DuplicateCount:       2,
		OverpaidCount:        1,
		UnclassifiedCount:    4,
		OrphanedCount:        5,
		TotalStored:          decimal.NewFromInt(10000),
		TotalCalculatedNet:   decimal.NewFromInt(9900),
		TotalCalculatedGross: decimal.NewFromInt(9950),
	}

	if err := runs.SaveAuditRun(ctx, run); err != nil {
		t.Fatalf("SaveAuditRun failed: %v", err)
	}

	got, err := runs.ListAuditRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListAuditRuns failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(got))
	}

	if got[0].MismatchCount != 3 {
		t.Errorf("Expected 3 mismatches, got %d", got[0].MismatchCount)
	}
	if got[0].Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", got[0].Duration)
	}
	if !got[0].TotalCalculatedGross.Equal(decimal.NewFromInt(9950)) {
		t.Errorf("Expected gross 9950, got %s", got[0].TotalCalculatedGross)
	}
}
