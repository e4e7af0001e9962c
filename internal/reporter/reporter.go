// Package reporter formats audit and repair results for people and machines.
//
// Supported output formats:
//   - Console: human-readable sectioned output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per finding, for spreadsheet triage
//
// The engine produces structured reports; this package only renders them.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"ledger-reconciliation-engine/internal/classifier"
	"ledger-reconciliation-engine/internal/engine"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMismatches   bool `json:"include_mismatches"`
	IncludeDuplicates   bool `json:"include_duplicates"`
	IncludeOverpayments bool `json:"include_overpayments"`
	IncludeGhosts       bool `json:"include_ghosts"`
	IncludeCensus       bool `json:"include_census"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeMismatches:   true,
		IncludeDuplicates:   true,
		IncludeOverpayments: true,
		IncludeGhosts:       true,
		IncludeCensus:       true,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders audit and repair reports in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator. A nil config uses defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateAuditReport renders an audit report to the writer.
func (rg *ReportGenerator) GenerateAuditReport(report *engine.AuditReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("audit report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.auditConsole(report, writer)
	case FormatJSON:
		return writeJSON(report, writer)
	case FormatCSV:
		return rg.auditCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateRepairReport renders a repair report to the writer.
func (rg *ReportGenerator) GenerateRepairReport(report *engine.RepairReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("repair report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.repairConsole(report, writer)
	case FormatJSON:
		return writeJSON(report, writer)
	case FormatCSV:
		return rg.repairCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (rg *ReportGenerator) auditConsole(report *engine.AuditReport, writer io.Writer) error {
	fmt.Fprintf(writer, "LEDGER AUDIT REPORT\n")
	fmt.Fprintf(writer, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", report.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:  %v\n\n", report.Duration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Documents Scanned:  %d\n", report.DocumentsScanned)
	fmt.Fprintf(writer, "Balance Mismatches: %d\n", report.Mismatches.MismatchCount())
	fmt.Fprintf(writer, "Duplicate Payments: %d\n", report.Duplicates.DuplicateCount())
	fmt.Fprintf(writer, "Overpaid Documents: %d\n", report.Overpayments.OverpaidCount())
	fmt.Fprintf(writer, "Unclassified:       %d\n", len(report.Census.Unclassified))
	fmt.Fprintf(writer, "Orphaned:           %d\n\n", len(report.Orphaned))

	fmt.Fprintf(writer, "=== BALANCE TOTALS ===\n")
	fmt.Fprintf(writer, "Total Stored:           %s\n", report.Mismatches.TotalStored.StringFixed(2))
	fmt.Fprintf(writer, "Total Calculated (net): %s\n", report.Mismatches.TotalCalculatedNet.StringFixed(2))
	fmt.Fprintf(writer, "Total Calculated (gross): %s\n", report.Mismatches.TotalCalculatedGross.StringFixed(2))
	if credit := report.Mismatches.UnaccountedCredit(); !credit.IsZero() {
		fmt.Fprintf(writer, "Credit hidden by gross reporting: %s\n", credit.StringFixed(2))
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeMismatches && report.Mismatches.MismatchCount() > 0 {
		fmt.Fprintf(writer, "=== BALANCE MISMATCHES ===\n")
		for _, m := range report.Mismatches.Mismatches {
			fmt.Fprintf(writer, "  %-20s %-16s stored=%s calculated=%s diff=%s\n",
				m.Number, m.DocumentID, m.Stored.StringFixed(2), m.Calculated.StringFixed(2), m.Diff.StringFixed(2))
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeDuplicates && report.Duplicates.DuplicateCount() > 0 {
		fmt.Fprintf(writer, "=== DUPLICATE PAYMENTS ===\n")
		fmt.Fprintf(writer, "Total Duplicate Amount: %s\n", report.Duplicates.TotalDuplicateAmount.StringFixed(2))
		for _, group := range report.Duplicates.Groups {
			fmt.Fprintf(writer, "  Document %s (%s strategy): keep %s\n",
				group.DocumentID, group.Strategy, group.Kept.ID)
			for _, dup := range group.Duplicates {
				fmt.Fprintf(writer, "    delete candidate %s  amount=%s  created=%s\n",
					dup.ID, dup.Amount.StringFixed(2), dup.CreatedAt.Format(time.RFC3339))
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeOverpayments && report.Overpayments.OverpaidCount() > 0 {
		fmt.Fprintf(writer, "=== OVERPAYMENTS ===\n")
		fmt.Fprintf(writer, "Total Surplus: %s\n", report.Overpayments.TotalSurplus.StringFixed(2))
		for _, o := range report.Overpayments.Overpaid {
			fmt.Fprintf(writer, "  %-20s %-16s surplus=%s\n", o.Number, o.DocumentID, o.Surplus.StringFixed(2))
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeCensus {
		fmt.Fprintf(writer, "=== CLASSIFICATION CENSUS ===\n")
		for _, cat := range classifier.Categories() {
			fmt.Fprintf(writer, "  %-16s %d\n", cat, report.Census.Counts[cat])
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeGhosts && len(report.Census.Unclassified) > 0 {
		fmt.Fprintf(writer, "=== UNCLASSIFIED DOCUMENTS ===\n")
		for _, doc := range report.Census.Unclassified {
			fmt.Fprintf(writer, "  %-20s %-16s type=%s status=%s stored=%s\n",
				doc.Number, doc.ID, doc.Type, doc.Status, doc.OutstandingBalance.StringFixed(2))
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(report.Orphaned) > 0 {
		fmt.Fprintf(writer, "=== ORPHANED DOCUMENTS ===\n")
		for _, doc := range report.Orphaned {
			fmt.Fprintf(writer, "  %-20s %-16s no owning center\n", doc.Number, doc.ID)
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) auditCSV(report *engine.AuditReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{"Finding", "Document_ID", "Number", "Payment_ID", "Stored", "Calculated", "Diff", "Detail"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	if rg.config.IncludeMismatches {
		for _, m := range report.Mismatches.Mismatches {
			record := []string{
				"Balance Mismatch", m.DocumentID, m.Number, "",
				m.Stored.StringFixed(2), m.Calculated.StringFixed(2), m.Diff.StringFixed(2), "",
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write mismatch record: %w", err)
			}
		}
	}

	if rg.config.IncludeDuplicates {
		for _, group := range report.Duplicates.Groups {
			for _, dup := range group.Duplicates {
				record := []string{
					"Duplicate Payment", group.DocumentID, "", dup.ID,
					"", "", dup.Amount.StringFixed(2),
					fmt.Sprintf("strategy=%s keep=%s", group.Strategy, group.Kept.ID),
				}
				if err := csvWriter.Write(record); err != nil {
					return fmt.Errorf("failed to write duplicate record: %w", err)
				}
			}
		}
	}

	if rg.config.IncludeOverpayments {
		for _, o := range report.Overpayments.Overpaid {
			record := []string{
				"Overpayment", o.DocumentID, o.Number, "",
				"", "", o.Surplus.StringFixed(2), "collected exceeds total",
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write overpayment record: %w", err)
			}
		}
	}

	if rg.config.IncludeGhosts {
		for _, doc := range report.Census.Unclassified {
			record := []string{
				"Unclassified Document", doc.ID, doc.Number, "",
				doc.OutstandingBalance.StringFixed(2), "", "",
				fmt.Sprintf("type=%s status=%s", doc.Type, doc.Status),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unclassified record: %w", err)
			}
		}
	}

	for _, doc := range report.Orphaned {
		record := []string{
			"Orphaned Document", doc.ID, doc.Number, "", "", "", "", "no owning center",
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write orphaned record: %w", err)
		}
	}

	return nil
}

func (rg *ReportGenerator) repairConsole(report *engine.RepairReport, writer io.Writer) error {
	fmt.Fprintf(writer, "LEDGER REPAIR REPORT\n\n")
	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Documents Scanned: %d\n", report.DocumentsScanned)
	fmt.Fprintf(writer, "Documents Fixed:   %d\n", report.DocumentsFixed)
	fmt.Fprintf(writer, "Total Adjustment:  %s\n", report.TotalAdjustment.StringFixed(2))
	fmt.Fprintf(writer, "Failures:          %d\n", report.FailureCount())

	if report.FailureCount() > 0 {
		fmt.Fprintf(writer, "\n=== FAILURES ===\n")
		for _, f := range report.Failures {
			fmt.Fprintf(writer, "  %-20s %-16s %s\n", f.Number, f.DocumentID, f.Error)
		}
	}
	fmt.Fprintf(writer, "\n")

	return nil
}

func (rg *ReportGenerator) repairCSV(report *engine.RepairReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"Finding", "Document_ID", "Number", "Detail"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, f := range report.Failures {
		if err := csvWriter.Write([]string{"Repair Failure", f.DocumentID, f.Number, f.Error}); err != nil {
			return fmt.Errorf("failed to write failure record: %w", err)
		}
	}

	return nil
}
