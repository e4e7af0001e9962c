package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-reconciliation-engine/cmd/ledgerecon/config"
	"ledger-reconciliation-engine/internal/engine"
	"ledger-reconciliation-engine/internal/reporter"
	apperrors "ledger-reconciliation-engine/pkg/errors"
	"ledger-reconciliation-engine/pkg/logger"
)

// Flags for the audit and repair commands
var (
	balanceMode     string
	centerID        string
	startDate       string
	endDate         string
	amountTolerance float64
	outputFormat    string
	outputFile      string
	showProgress    bool
	workers         int
	failOnFindings  bool
	dryRun          bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit document balances against their payment ledgers",
	Long: `Audit runs a read-only integrity pass over the ledger: it recomputes
every document balance from its payments and reports mismatches, duplicate
payments, overpayments, unclassifiable documents and documents without an
owning center. Nothing is written; repairing is a separate command.

The balance mode is required. Net mode reports credit balances as negative
amounts; gross mode clamps them to zero. The two modes produce different
numbers and the choice belongs to the operator, not the tool.

Examples:
  # Audit the whole ledger with net balances
  ledgerecon audit --db ledger.db --mode net

  # Audit one business unit for a date range, as JSON
  ledgerecon audit --db ledger.db --mode gross --center center-1 \
    --start-date 2024-01-01 --end-date 2024-03-31 --output-format json

  # Exit non-zero when any finding exists (for cron)
  ledgerecon audit --db ledger.db --mode net --fail-on-findings`,

	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	addEngineFlags(auditCmd)
	auditCmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit with a non-zero code when the audit reports findings")
}

// addEngineFlags registers the flags shared by audit and repair.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&balanceMode, "mode", "m", "", "balance mode: net or gross (required)")
	cmd.Flags().StringVar(&centerID, "center", "", "restrict to one business unit")
	cmd.Flags().StringVar(&startDate, "start-date", "", "filter start issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "filter end issue date (YYYY-MM-DD)")
	cmd.Flags().Float64VarP(&amountTolerance, "tolerance", "t", 0.01, "balance comparison tolerance")
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "log progress on long batches")
	cmd.Flags().IntVar(&workers, "workers", 4, "repair worker count")

	cmd.MarkFlagRequired("mode")
}

func engineFlags() config.EngineFlags {
	return config.EngineFlags{
		Mode:      balanceMode,
		Tolerance: amountTolerance,
		CenterID:  centerID,
		StartDate: startDate,
		EndDate:   endDate,
		Workers:   workers,
		Progress:  showProgress,
		DryRun:    dryRun,
	}
}

// buildEngine opens the stores and assembles an engine from the shared flags.
// The caller owns closing the returned stores.
func buildEngine() (*engine.Engine, *config.Stores, error) {
	engineConfig, err := config.CreateEngineConfig(engineFlags())
	if err != nil {
		return nil, nil, err
	}

	stores, err := config.OpenStores(viper.GetString("db"))
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.NewEngine(stores.Documents, stores.Payments, stores.AuditRuns, engineConfig, logger.GetGlobalLogger())
	if err != nil {
		stores.Close()
		return nil, nil, apperrors.WrapIfNeeded(err, apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig, "invalid engine configuration")
	}

	return eng, stores, nil
}

// openOutput resolves the report destination. The caller closes the
// returned closer when it is not stdout.
func openOutput() (io.Writer, func() error, error) {
	if outputFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	eng, stores, err := buildEngine()
	if err != nil {
		return err
	}
	defer stores.Close()

	report, err := eng.Audit(context.Background())
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

	if err := generator.GenerateAuditReport(report, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if failOnFindings && report.Warnings.Total > 0 {
		return report.Warnings
	}

	return nil
}
