// Package errors defines the application error taxonomy.
//
// Nothing in the reconciliation engine is fatal to the process: integrity
// and duplicate findings are recoverable warnings recorded in reports, and
// repair failures are collected without aborting the batch. The types here
// carry category, code, context and an operator suggestion so that reports
// and the CLI can act on errors without string matching.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	// CategoryIntegrity covers balance invariant violations, unclassified
	// and orphaned documents. Recoverable: recorded, processing continues.
	CategoryIntegrity ErrorCategory = "integrity"
	// CategoryDuplicate covers detected duplicate payments. Recoverable:
	// surfaced for operator decision before any deletion.
	CategoryDuplicate ErrorCategory = "duplicate"
	// CategoryRepair covers single-document repair write failures.
	CategoryRepair ErrorCategory = "repair"
	// CategoryStore covers storage access failures.
	CategoryStore ErrorCategory = "store"
	// CategoryConfiguration covers invalid engine or CLI configuration.
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryInternal covers unexpected conditions.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Integrity codes
	CodeBalanceMismatch    ErrorCode = "balance_mismatch"
	CodeUnclassified       ErrorCode = "unclassified_document"
	CodeOrphanedDocument   ErrorCode = "orphaned_document"
	CodeNegativeBalance    ErrorCode = "negative_balance"

	// Duplicate codes
	CodeDuplicatePayment ErrorCode = "duplicate_payment"

	// Repair codes
	CodeWriteFailed     ErrorCode = "write_failed"
	CodeBalanceMoved    ErrorCode = "balance_moved"
	CodeDocumentMissing ErrorCode = "document_missing"

	// Store codes
	CodeQueryFailed      ErrorCode = "query_failed"
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeDeleteFailed     ErrorCode = "delete_failed"

	// Configuration codes
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal codes
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// LedgerError is the base error type for all application errors
type LedgerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *LedgerError) GetExitCode() int {
	switch e.Category {
	case CategoryIntegrity, CategoryDuplicate:
		return 2
	case CategoryRepair:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStore, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *LedgerError) WithContext(key string, value interface{}) *LedgerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *LedgerError) WithSuggestion(suggestion string) *LedgerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LedgerError
func New(category ErrorCategory, code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with LedgerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// IntegrityWarning creates a data integrity warning for a document
func IntegrityWarning(code ErrorCode, documentID string, detail string) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeBalanceMismatch:
		message = fmt.Sprintf("balance mismatch on document %s: %s", documentID, detail)
		suggestion = "run a balance repair for this document"
	case CodeUnclassified:
		message = fmt.Sprintf("document %s matches no classification rule: %s", documentID, detail)
		suggestion = "review the document type, number prefix and status"
	case CodeOrphanedDocument:
		message = fmt.Sprintf("document %s has no owning center", documentID)
		suggestion = "assign the document to a business unit"
	case CodeNegativeBalance:
		message = fmt.Sprintf("document %s carries a credit balance: %s", documentID, detail)
		suggestion = "verify the overpayment and issue a credit note or refund"
	default:
		message = fmt.Sprintf("integrity warning on document %s: %s", documentID, detail)
		suggestion = "inspect the document and its payment ledger"
	}

	return New(CategoryIntegrity, code, message).
		WithSuggestion(suggestion).
		WithContext("document_id", documentID)
}

// DuplicateWarning creates a duplicate payment warning
func DuplicateWarning(paymentID, documentID string) *LedgerError {
	return New(CategoryDuplicate, CodeDuplicatePayment,
		fmt.Sprintf("payment %s on document %s appears to be a duplicate", paymentID, documentID)).
		WithSuggestion("review the duplicate report before deleting; deletion is never automatic").
		WithContext("payment_id", paymentID).
		WithContext("document_id", documentID)
}

// RepairError creates a repair-related error for a single document
func RepairError(code ErrorCode, documentID string, err error) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeWriteFailed:
		message = fmt.Sprintf("failed to write repaired balance for document %s", documentID)
		suggestion = "check store availability; the batch continues without this document"
	case CodeBalanceMoved:
		message = fmt.Sprintf("stored balance of document %s changed during repair", documentID)
		suggestion = "a concurrent writer updated the document; re-run the repair"
	case CodeDocumentMissing:
		message = fmt.Sprintf("document %s disappeared during repair", documentID)
		suggestion = "the document was deleted mid-batch; re-run the audit"
	default:
		message = fmt.Sprintf("repair error on document %s", documentID)
		suggestion = "inspect the failure and re-run the batch"
	}

	var result *LedgerError
	if err != nil {
		result = Wrap(err, CategoryRepair, code, message)
	} else {
		result = New(CategoryRepair, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("document_id", documentID)
}

// StoreError creates a storage-related error
func StoreError(code ErrorCode, operation string, err error) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeQueryFailed:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "check the database file and its permissions"
	case CodeConnectionFailed:
		message = fmt.Sprintf("could not open store for %s", operation)
		suggestion = "verify the database path and that the file is not locked"
	case CodeDeleteFailed:
		message = fmt.Sprintf("store delete failed during %s", operation)
		suggestion = "re-run the deletion; already-deleted rows are skipped"
	default:
		message = fmt.Sprintf("store error during %s", operation)
		suggestion = "check the store and try again"
	}

	var result *LedgerError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the flag documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, environment variable or config file entry"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return New(CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*LedgerError        `json:"errors"`
	SampleErrors []*LedgerError        `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*LedgerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if len(errs) == 0 {
		summary.Errors = []*LedgerError{}
		return summary
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsLedgerError checks if an error is a LedgerError
func IsLedgerError(err error) bool {
	_, ok := err.(*LedgerError)
	return ok
}

// AsLedgerError extracts a LedgerError from an error chain
func AsLedgerError(err error) (*LedgerError, bool) {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a LedgerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	if ledgerErr, ok := AsLedgerError(err); ok {
		return ledgerErr
	}

	return Wrap(err, category, code, message)
}
