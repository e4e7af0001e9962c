// Package classifier assigns documents to business categories.
//
// Real documents carry inconsistent type values relative to their number
// prefix and status, so classification never trusts a single signal. The
// rules form an explicit ordered list, first match wins, and a document
// matching no positive rule is reported as unclassified rather than dropped.
package classifier

import (
	"strings"

	"ledger-reconciliation-engine/internal/models"
)

// Category is the business category of a document.
type Category string

const (
	CategoryActiveInvoice Category = "ACTIVE_INVOICE"
	CategoryPurchaseOrder Category = "PURCHASE_ORDER"
	CategoryArchived      Category = "ARCHIVED"
	CategoryCancelled     Category = "CANCELLED"
	// CategoryUnclassified marks ghost documents matching no positive rule.
	CategoryUnclassified Category = "UNCLASSIFIED"
)

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryActiveInvoice,
		CategoryPurchaseOrder,
		CategoryArchived,
		CategoryCancelled,
		CategoryUnclassified,
	}
}

// Config holds the number-prefix conventions used as secondary type signals.
type Config struct {
	// InvoicePrefix is the human-assigned invoice number prefix.
	InvoicePrefix string
	// OrderPrefix is the purchase order number prefix.
	OrderPrefix string
}

// DefaultConfig returns the prefix conventions of the source data.
func DefaultConfig() *Config {
	return &Config{
		InvoicePrefix: "FAC",
		OrderPrefix:   "BC",
	}
}

// Classifier classifies documents by the ordered rule list.
type Classifier struct {
	config *Config
}

// New creates a classifier. A nil config uses DefaultConfig.
func New(config *Config) *Classifier {
	if config == nil {
		config = DefaultConfig()
	}
	return &Classifier{config: config}
}

// Classify returns the business category of a document.
//
// The rule order is load-bearing and must not be changed:
//  1. cancelled status wins over everything
//  2. archived status wins over type and prefix signals
//  3. invoice evidence (type or number prefix), unless the status or type
//     contradicts it
//  4. purchase order evidence (type, number prefix, or pending status)
//  5. anything else is a ghost document
//
// Classification is a function of type, number prefix and status only; it
// never looks at the outstanding balance.
func (c *Classifier) Classify(doc *models.Document) Category {
	if doc.Status == models.StatusCancelled {
		return CategoryCancelled
	}

	if doc.Status == models.StatusArchived {
		return CategoryArchived
	}

	invoiceEvidence := doc.Type == models.DocumentTypeInvoice ||
		strings.HasPrefix(doc.Number, c.config.InvoicePrefix)
	if invoiceEvidence &&
		doc.Status != models.StatusPending &&
		doc.Type != models.DocumentTypeCreditNote {
		return CategoryActiveInvoice
	}

	orderEvidence := doc.Type == models.DocumentTypePurchaseOrder ||
		strings.HasPrefix(doc.Number, c.config.OrderPrefix) ||
		doc.Status == models.StatusPending
	if orderEvidence {
		return CategoryPurchaseOrder
	}

	return CategoryUnclassified
}

// Census counts a document snapshot by category and collects the ghost
// documents so they can be surfaced with their stored balances.
type Census struct {
	Counts       map[Category]int   `json:"counts"`
	Unclassified []*models.Document `json:"unclassified,omitempty"`
}

// Census classifies every document in the snapshot exactly once.
func (c *Classifier) Census(docs []*models.Document) *Census {
	census := &Census{
		Counts: make(map[Category]int, len(Categories())),
	}
	for _, cat := range Categories() {
		census.Counts[cat] = 0
	}

	for _, doc := range docs {
		cat := c.Classify(doc)
		census.Counts[cat]++
		if cat == CategoryUnclassified {
			census.Unclassified = append(census.Unclassified, doc)
		}
	}

	return census
}
