package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-reconciliation-engine/cmd/ledgerecon/config"
	"ledger-reconciliation-engine/internal/ledger"
	"ledger-reconciliation-engine/internal/store"
	apperrors "ledger-reconciliation-engine/pkg/errors"
)

var (
	dedupeCenter string
	dedupeApply  bool
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Detect and optionally delete duplicate payments",
	Long: `Dedupe scans the payment ledger with two independent fingerprints:
the exact tuple (document, amount, date, payment mode) catches operator
double entry, and the creation timestamp (document, amount, created-at)
catches double-submitted imports. The earliest payment of each group is
kept; the rest are deletion candidates.

Detection alone never deletes. Pass --apply to delete the candidates.

Examples:
  # List duplicate candidates
  ledgerecon dedupe --db ledger.db

  # Delete them
  ledgerecon dedupe --db ledger.db --apply`,

	RunE: runDedupe,
}

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().StringVar(&dedupeCenter, "center", "", "restrict to one business unit")
	dedupeCmd.Flags().BoolVar(&dedupeApply, "apply", false, "delete the duplicate candidates")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	stores, err := config.OpenStores(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer stores.Close()

	ctx := context.Background()

	payments, err := stores.Payments.ListPayments(ctx, store.PaymentFilter{CenterID: dedupeCenter})
	if err != nil {
		return apperrors.StoreError(apperrors.CodeQueryFailed, "list payments", err)
	}

	report := ledger.DetectDuplicates(payments)

	fmt.Printf("Scanned %d payments, found %d duplicate candidates in %d groups\n",
		len(payments), report.DuplicateCount(), len(report.Groups))

	for _, group := range report.Groups {
		fmt.Printf("  Document %s (%s strategy): keep %s\n", group.DocumentID, group.Strategy, group.Kept.ID)
		for _, dup := range group.Duplicates {
			fmt.Printf("    delete candidate %s  amount=%s  created=%s\n",
				dup.ID, dup.Amount.StringFixed(2), dup.CreatedAt.Format(time.RFC3339))
		}
	}

	if report.DuplicateCount() == 0 {
		return nil
	}

	if !dedupeApply {
		fmt.Fprintf(os.Stderr, "\nNo payments deleted. Re-run with --apply to delete the candidates.\n")
		return nil
	}

	deleted, err := stores.Payments.DeletePayments(ctx, report.DuplicateIDs)
	if err != nil {
		return apperrors.StoreError(apperrors.CodeDeleteFailed, "remove duplicates", err)
	}

	fmt.Printf("\nDeleted %d duplicate payments (total amount %s).\n",
		deleted, report.TotalDuplicateAmount.StringFixed(2))
	fmt.Fprintf(os.Stderr, "Stored balances are now stale; run 'ledgerecon repair' to recompute them.\n")

	return nil
}
