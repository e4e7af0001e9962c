package classifier

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

func doc(docType models.DocumentType, number string, status models.DocumentStatus) *models.Document {
	return &models.Document{
		ID:                 "doc-" + number,
		Number:             number,
		Type:               docType,
		Status:             status,
		TotalAmount:        decimal.NewFromInt(100),
		OutstandingBalance: decimal.NewFromInt(100),
	}
}

func TestClassify(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		doc      *models.Document
		expected Category
	}{
		{
			name:     "validated invoice",
			doc:      doc(models.DocumentTypeInvoice, "FAC-2024-01", models.StatusValidated),
			expected: CategoryActiveInvoice,
		},
		{
			name:     "cancelled wins over invoice match",
			doc:      doc(models.DocumentTypeInvoice, "FAC-2024-01", models.StatusCancelled),
			expected: CategoryCancelled,
		},
		{
			name:     "archived wins over invoice match",
			doc:      doc(models.DocumentTypeInvoice, "FAC-2024-02", models.StatusArchived),
			expected: CategoryArchived,
		},
		{
			name:     "validated purchase order",
			doc:      doc(models.DocumentTypePurchaseOrder, "BC-2024-01", models.StatusValidated),
			expected: CategoryPurchaseOrder,
		},
		{
			name:     "invoice prefix overrides wrong type",
			doc:      doc(models.DocumentTypeQuote, "FAC-2024-03", models.StatusValidated),
			expected: CategoryActiveInvoice,
		},
		{
			name:     "order prefix overrides wrong type",
			doc:      doc(models.DocumentTypeQuote, "BC-2024-02", models.StatusValidated),
			expected: CategoryPurchaseOrder,
		},
		{
			name:     "pending invoice type falls through to purchase order",
			doc:      doc(models.DocumentTypeInvoice, "FAC-2024-04", models.StatusPending),
			expected: CategoryPurchaseOrder,
		},
		{
			name:     "pending status alone is order evidence",
			doc:      doc(models.DocumentTypeQuote, "Q-2024-01", models.StatusPending),
			expected: CategoryPurchaseOrder,
		},
		{
			name:     "credit note with invoice prefix is not an active invoice",
			doc:      doc(models.DocumentTypeCreditNote, "FAC-2024-05", models.StatusValidated),
			expected: CategoryUnclassified,
		},
		{
			name:     "quote with no signals is a ghost",
			doc:      doc(models.DocumentTypeQuote, "Q-2024-02", models.StatusDraft),
			expected: CategoryUnclassified,
		},
		{
			name:     "paid invoice stays active",
			doc:      doc(models.DocumentTypeInvoice, "FAC-2024-06", models.StatusPaid),
			expected: CategoryActiveInvoice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.doc)
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestClassifyCustomPrefixes(t *testing.T) {
	c := New(&Config{InvoicePrefix: "INV", OrderPrefix: "PO"})

	if got := c.Classify(doc(models.DocumentTypeQuote, "INV-001", models.StatusValidated)); got != CategoryActiveInvoice {
		t.Errorf("Expected custom invoice prefix to classify as invoice, got %s", got)
	}
	if got := c.Classify(doc(models.DocumentTypeQuote, "PO-001", models.StatusValidated)); got != CategoryPurchaseOrder {
		t.Errorf("Expected custom order prefix to classify as order, got %s", got)
	}
	// The source convention no longer applies.
	if got := c.Classify(doc(models.DocumentTypeQuote, "FAC-001", models.StatusDraft)); got != CategoryUnclassified {
		t.Errorf("Expected FAC prefix to be meaningless with custom config, got %s", got)
	}
}

func TestCensusCountsEveryDocumentOnce(t *testing.T) {
	c := New(nil)

	docs := []*models.Document{
		doc(models.DocumentTypeInvoice, "FAC-01", models.StatusValidated),
		doc(models.DocumentTypeInvoice, "FAC-02", models.StatusCancelled),
		doc(models.DocumentTypePurchaseOrder, "BC-01", models.StatusValidated),
		doc(models.DocumentTypeQuote, "Q-01", models.StatusDraft),
		doc(models.DocumentTypeQuote, "Q-02", models.StatusArchived),
	}

	census := c.Census(docs)

	total := 0
	for _, count := range census.Counts {
		total += count
	}
	if total != len(docs) {
		t.Errorf("Expected census to count %d documents, counted %d", len(docs), total)
	}

	if census.Counts[CategoryActiveInvoice] != 1 {
		t.Errorf("Expected 1 active invoice, got %d", census.Counts[CategoryActiveInvoice])
	}
	if census.Counts[CategoryUnclassified] != 1 {
		t.Errorf("Expected 1 ghost, got %d", census.Counts[CategoryUnclassified])
	}
	if len(census.Unclassified) != 1 || census.Unclassified[0].Number != "Q-01" {
		t.Error("Expected ghost document Q-01 to be surfaced")
	}
}
