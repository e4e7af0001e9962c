package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType discriminates the polymorphic document entity.
type DocumentType string

const (
	// DocumentTypeInvoice represents a customer invoice
	DocumentTypeInvoice DocumentType = "INVOICE"
	// DocumentTypePurchaseOrder represents a purchase order
	DocumentTypePurchaseOrder DocumentType = "PURCHASE_ORDER"
	// DocumentTypeCreditNote represents a credit note
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
	// DocumentTypeQuote represents a quote
	DocumentTypeQuote DocumentType = "QUOTE"
)

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypePurchaseOrder, DocumentTypeCreditNote, DocumentTypeQuote:
		return true
	default:
		return false
	}
}

// DocumentStatus represents the lifecycle status of a document
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "DRAFT"
	StatusValidated     DocumentStatus = "VALIDATED"
	StatusPartiallyPaid DocumentStatus = "PARTIALLY_PAID"
	StatusPaid          DocumentStatus = "PAID"
	StatusPending       DocumentStatus = "PENDING"
	StatusCancelled     DocumentStatus = "CANCELLED"
	StatusArchived      DocumentStatus = "ARCHIVED"
)

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsValid checks if the document status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusValidated, StatusPartiallyPaid, StatusPaid,
		StatusPending, StatusCancelled, StatusArchived:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the document lifecycle.
// Terminal statuses are never rewritten by balance repair.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusArchived
}

// Document represents an invoice-like document tracked by the system.
// OutstandingBalance is a denormalized cache; the payment ledger is the
// source of truth and the reconciliation engine recomputes it.
type Document struct {
	ID                 string          `json:"id"`
	Number             string          `json:"number"`
	Type               DocumentType    `json:"documentType"`
	Status             DocumentStatus  `json:"status"`
	IssueDate          *time.Time      `json:"issueDate,omitempty"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CenterID           string          `json:"centerId,omitempty"`
}

// Validate performs basic validation on the Document.
// IssueDate and CenterID are intentionally not required: real data contains
// documents with neither, and those must be reported, not rejected.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	if !d.Type.IsValid() {
		return fmt.Errorf("invalid document type: %s", d.Type)
	}

	if !d.Status.IsValid() {
		return fmt.Errorf("invalid document status: %s", d.Status)
	}

	if d.TotalAmount.IsNegative() {
		return fmt.Errorf("document total amount cannot be negative: %s", d.TotalAmount.String())
	}

	return nil
}

// IsOrphaned reports whether the document lacks an owning business unit.
func (d *Document) IsOrphaned() bool {
	return strings.TrimSpace(d.CenterID) == ""
}

// String returns a string representation of the Document
func (d *Document) String() string {
	return fmt.Sprintf("Document{ID: %s, Number: %s, Type: %s, Status: %s, Total: %s, Outstanding: %s}",
		d.ID, d.Number, d.Type, d.Status, d.TotalAmount.String(), d.OutstandingBalance.String())
}

// MarshalJSON implements custom JSON marshaling for Document
func (d *Document) MarshalJSON() ([]byte, error) {
	type Alias Document
	aux := &struct {
		TotalAmount        string `json:"totalAmount"`
		OutstandingBalance string `json:"outstandingBalance"`
		IssueDate          string `json:"issueDate,omitempty"`
		*Alias
	}{
		TotalAmount:        d.TotalAmount.String(),
		OutstandingBalance: d.OutstandingBalance.String(),
		Alias:              (*Alias)(d),
	}
	if d.IssueDate != nil {
		aux.IssueDate = d.IssueDate.Format("2006-01-02")
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements custom JSON unmarshaling for Document
func (d *Document) UnmarshalJSON(data []byte) error {
	type Alias Document
	aux := &struct {
		TotalAmount        string `json:"totalAmount"`
		OutstandingBalance string `json:"outstandingBalance"`
		IssueDate          string `json:"issueDate,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	d.TotalAmount, err = decimal.NewFromString(aux.TotalAmount)
	if err != nil {
		return fmt.Errorf("invalid total amount format: %w", err)
	}

	d.OutstandingBalance, err = decimal.NewFromString(aux.OutstandingBalance)
	if err != nil {
		return fmt.Errorf("invalid outstanding balance format: %w", err)
	}

	if aux.IssueDate != "" {
		t, err := ParseTimeWithFormats(aux.IssueDate)
		if err != nil {
			return fmt.Errorf("invalid issue date format: %w", err)
		}
		d.IssueDate = &t
	}

	return nil
}

// PaymentMode represents the payment collection method
type PaymentMode string

const (
	ModeCash     PaymentMode = "CASH"
	ModeCard     PaymentMode = "CARD"
	ModeCheck    PaymentMode = "CHECK"
	ModeTransfer PaymentMode = "TRANSFER"
	ModeOther    PaymentMode = "OTHER"
)

// String returns the string representation of PaymentMode
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case ModeCash, ModeCard, ModeCheck, ModeTransfer, ModeOther:
		return true
	default:
		return false
	}
}

// Payment represents one entry of the payment ledger.
// Date is the business payment date; CreatedAt is the record-creation
// timestamp. The two are distinct and both participate in duplicate
// detection.
type Payment struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Mode       PaymentMode     `json:"mode"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Validate performs basic validation on the Payment.
// Negative amounts are allowed: refunds recorded as negative payments exist
// in the ledger and the balance calculator must see them.
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("payment ID cannot be empty")
	}

	if strings.TrimSpace(p.DocumentID) == "" {
		return fmt.Errorf("payment document ID cannot be empty")
	}

	if !p.Mode.IsValid() {
		return fmt.Errorf("invalid payment mode: %s", p.Mode)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("payment creation timestamp cannot be zero")
	}

	return nil
}

// String returns a string representation of the Payment
func (p *Payment) String() string {
	return fmt.Sprintf("Payment{ID: %s, Document: %s, Amount: %s, Mode: %s, Date: %s}",
		p.ID, p.DocumentID, p.Amount.String(), p.Mode, p.Date.Format("2006-01-02"))
}

// MarshalJSON implements custom JSON marshaling for Payment
func (p *Payment) MarshalJSON() ([]byte, error) {
	type Alias Payment
	return json.Marshal(&struct {
		Amount    string `json:"amount"`
		Date      string `json:"date"`
		CreatedAt string `json:"createdAt"`
		*Alias
	}{
		Amount:    p.Amount.String(),
		Date:      p.Date.Format("2006-01-02"),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		Alias:     (*Alias)(p),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Payment
func (p *Payment) UnmarshalJSON(data []byte) error {
	type Alias Payment
	aux := &struct {
		Amount    string `json:"amount"`
		Date      string `json:"date"`
		CreatedAt string `json:"createdAt"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	p.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	p.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid payment date format: %w", err)
	}

	p.CreatedAt, err = ParseTimeWithFormats(aux.CreatedAt)
	if err != nil {
		return fmt.Errorf("invalid creation timestamp format: %w", err)
	}

	return nil
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDocumentType parses and validates a document type from string.
// Legacy exports spell the same type several ways.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	switch s {
	case "INVOICE", "FACTURE", "FAC":
		return DocumentTypeInvoice, nil
	case "PURCHASE_ORDER", "ORDER", "BON_COMMANDE", "BC":
		return DocumentTypePurchaseOrder, nil
	case "CREDIT_NOTE", "AVOIR":
		return DocumentTypeCreditNote, nil
	case "QUOTE", "DEVIS":
		return DocumentTypeQuote, nil
	default:
		return "", fmt.Errorf("invalid document type '%s'", s)
	}
}

// ParseDocumentStatus parses and validates a document status from string
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	status := DocumentStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid document status '%s'", s)
	}
	return status, nil
}

// ParsePaymentMode parses a payment mode from string, tolerating the
// spellings found in historical payment records.
func ParsePaymentMode(s string) (PaymentMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	switch s {
	case "CASH", "ESPECES", "ESP":
		return ModeCash, nil
	case "CARD", "CB", "CARTE":
		return ModeCard, nil
	case "CHECK", "CHEQUE", "CHQ":
		return ModeCheck, nil
	case "TRANSFER", "VIREMENT", "VIR":
		return ModeTransfer, nil
	case "OTHER", "AUTRE":
		return ModeOther, nil
	default:
		return "", fmt.Errorf("invalid payment mode '%s'", s)
	}
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}
