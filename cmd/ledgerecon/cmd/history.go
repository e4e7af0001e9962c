package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-reconciliation-engine/cmd/ledgerecon/config"
	apperrors "ledger-reconciliation-engine/pkg/errors"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent audit runs",
	Long: `History lists the summaries of past audit runs, newest first. Every
audit persists its counts and balance totals, so drift between runs is
visible without re-reading old reports.

Examples:
  ledgerecon history --db ledger.db
  ledgerecon history --db ledger.db --limit 50`,

	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	stores, err := config.OpenStores(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer stores.Close()

	runs, err := stores.AuditRuns.ListAuditRuns(context.Background(), historyLimit)
	if err != nil {
		return apperrors.StoreError(apperrors.CodeQueryFailed, "list audit runs", err)
	}

	if len(runs) == 0 {
		fmt.Println("No audit runs recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %8s  %10s  %10s  %8s  %12s\n",
		"RUN", "STARTED", "DOCS", "MISMATCH", "DUPLICATE", "OVERPAID", "STORED")
	for _, run := range runs {
		fmt.Printf("%-36s  %-20s  %8d  %10d  %10d  %8d  %12s\n",
			run.ID,
			run.StartedAt.Format(time.RFC3339),
			run.DocumentsScanned,
			run.MismatchCount,
			run.DuplicateCount,
			run.OverpaidCount,
			run.TotalStored.StringFixed(2))
	}

	return nil
}
