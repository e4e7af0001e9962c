package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ledger-reconciliation-engine/cmd/ledgerecon/config"
	"ledger-reconciliation-engine/internal/reporter"
	apperrors "ledger-reconciliation-engine/pkg/errors"
)

// repairCmd represents the repair command
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite stored balances from the payment ledger",
	Long: `Repair recomputes every document balance from its payments and rewrites
the stored value where the two disagree. Each write is compare-and-set
against the balance read at the start of the pass: a document changed by a
concurrent writer is skipped and reported, never clobbered.

Repair is idempotent. Running it twice produces no further writes.

In net mode the document status is never touched. In gross mode a fully
paid document is promoted to PAID; cancelled and archived documents keep
their status.

Examples:
  ledgerecon repair --db ledger.db --mode net
  ledgerecon repair --db ledger.db --mode gross --center center-1 --workers 8

  # Preview the changes without writing
  ledgerecon repair --db ledger.db --mode net --dry-run`,

	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
	addEngineFlags(repairCmd)
	repairCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
}

func runRepair(cmd *cobra.Command, args []string) error {
	eng, stores, err := buildEngine()
	if err != nil {
		return err
	}
	defer stores.Close()

	report, err := eng.Repair(context.Background())
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := generator.GenerateRepairReport(report, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if report.FailureCount() > 0 {
		return apperrors.New(apperrors.CategoryRepair, apperrors.CodeWriteFailed,
			fmt.Sprintf("%d of %d documents could not be repaired", report.FailureCount(), report.DocumentsScanned)).
			WithSuggestion("re-run the repair; skipped documents are retried with fresh values")
	}

	return nil
}
