package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	apperrors "ledger-reconciliation-engine/pkg/errors"
	"ledger-reconciliation-engine/pkg/logger"
)

// CLIErrorHandler maps errors to user-facing messages and exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints the error and returns the exit code for main.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	// An audit that found problems returns the finding summary itself.
	if summary, ok := err.(*apperrors.ErrorSummary); ok {
		return h.handleSummary(summary)
	}

	if ledgerErr, ok := apperrors.AsLedgerError(err); ok {
		return h.handleLedgerError(ledgerErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nRun with --verbose for more detailed logging\n")
	}
	return 1
}

func (h *CLIErrorHandler) handleLedgerError(err *apperrors.LedgerError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleSummary(summary *apperrors.ErrorSummary) int {
	fmt.Fprintf(os.Stderr, "Audit found problems: %s\n", summary.Error())

	for _, sample := range summary.SampleErrors {
		fmt.Fprintf(os.Stderr, "  - %s\n", sample.Message)
	}
	if summary.Total > len(summary.SampleErrors) {
		fmt.Fprintf(os.Stderr, "  ... and %d more findings (see the report for the full list)\n",
			summary.Total-len(summary.SampleErrors))
	}

	return summary.GetExitCode()
}
