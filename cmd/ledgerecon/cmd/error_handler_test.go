package cmd

import (
	"errors"
	"testing"

	apperrors "ledger-reconciliation-engine/pkg/errors"
)

func TestHandleErrorNil(t *testing.T) {
	handler := NewCLIErrorHandler()
	if code := handler.HandleError(nil); code != 0 {
		t.Errorf("expected exit code 0 for nil error, got %d", code)
	}
}

func TestHandleErrorGeneric(t *testing.T) {
	handler := NewCLIErrorHandler()
	if code := handler.HandleError(errors.New("boom")); code != 1 {
		t.Errorf("expected exit code 1 for generic error, got %d", code)
	}
}

func TestHandleErrorExitCodes(t *testing.T) {
	handler := NewCLIErrorHandler()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			"integrity finding",
			apperrors.IntegrityWarning(apperrors.CodeBalanceMismatch, "doc-1", "stored 300, calculated 200"),
			2,
		},
		{
			"repair failure",
			apperrors.RepairError(apperrors.CodeBalanceMoved, "doc-1", nil),
			3,
		},
		{
			"configuration error",
			apperrors.ConfigurationError(apperrors.CodeMissingConfig, "mode", nil),
			4,
		},
		{
			"store error",
			apperrors.StoreError(apperrors.CodeConnectionFailed, "open database", errors.New("locked")),
			5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := handler.HandleError(tc.err); code != tc.want {
				t.Errorf("expected exit code %d, got %d", tc.want, code)
			}
		})
	}
}

func TestHandleErrorSummary(t *testing.T) {
	handler := NewCLIErrorHandler()

	summary := apperrors.NewErrorSummary([]*apperrors.LedgerError{
		apperrors.IntegrityWarning(apperrors.CodeBalanceMismatch, "doc-1", "stored 300, calculated 200"),
		apperrors.DuplicateWarning("pay-2", "doc-1"),
	})

	if code := handler.HandleError(summary); code != 2 {
		t.Errorf("expected exit code 2 for finding summary, got %d", code)
	}
}
