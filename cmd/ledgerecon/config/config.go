// Package config assembles component configurations from CLI flag values.
package config

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/engine"
	"ledger-reconciliation-engine/internal/ledger"
	"ledger-reconciliation-engine/internal/reporter"
	"ledger-reconciliation-engine/internal/store"
	apperrors "ledger-reconciliation-engine/pkg/errors"
)

// EngineFlags holds the raw flag values that shape an engine configuration.
type EngineFlags struct {
	Mode      string
	Tolerance float64
	CenterID  string
	StartDate string
	EndDate   string
	Workers   int
	Progress  bool
	DryRun    bool
}

// CreateEngineConfig validates the flag values and builds the engine
// configuration. The balance mode is required: net and gross produce
// different repairs, so the choice is never defaulted.
func CreateEngineConfig(flags EngineFlags) (*engine.Config, error) {
	mode := ledger.BalanceMode(flags.Mode)
	if flags.Mode == "" {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "mode", nil).
			WithSuggestion(fmt.Sprintf("pass --mode %s or --mode %s", ledger.ModeNet, ledger.ModeGross))
	}
	if !mode.IsValid() {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "mode", flags.Mode)
	}

	if flags.Tolerance < 0 {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "tolerance", flags.Tolerance)
	}

	config := &engine.Config{
		Mode:              mode,
		Tolerance:         decimal.NewFromFloat(flags.Tolerance),
		CenterID:          flags.CenterID,
		Workers:           flags.Workers,
		ProgressReporting: flags.Progress,
		DryRun:            flags.DryRun,
	}

	if flags.StartDate != "" {
		t, err := time.Parse("2006-01-02", flags.StartDate)
		if err != nil {
			return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "start-date", flags.StartDate).
				WithSuggestion("use YYYY-MM-DD")
		}
		config.From = &t
	}
	if flags.EndDate != "" {
		t, err := time.Parse("2006-01-02", flags.EndDate)
		if err != nil {
			return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "end-date", flags.EndDate).
				WithSuggestion("use YYYY-MM-DD")
		}
		// Inclusive end of day.
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		config.To = &t
	}
	if config.From != nil && config.To != nil && config.From.After(*config.To) {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "start-date", flags.StartDate).
			WithSuggestion("start date must be before end date")
	}

	return config, nil
}

// CreateReportConfig builds a reporter configuration for the output format.
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	if !config.Format.IsValid() {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "output-format", format).
			WithSuggestion("valid formats: console, json, csv")
	}
	return config, nil
}

// Stores bundles the SQLite-backed store implementations behind one handle.
type Stores struct {
	DB        *sql.DB
	Documents *store.SQLiteDocumentStore
	Payments  *store.SQLitePaymentStore
	AuditRuns *store.SQLiteAuditRunStore
}

// OpenStores opens the ledger database and wires the store implementations.
func OpenStores(dbPath string) (*Stores, error) {
	if dbPath == "" {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "db", nil).
			WithSuggestion("pass --db with the path to the ledger SQLite database")
	}

	db, err := store.InitDB(dbPath)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeConnectionFailed, "open database", err)
	}

	return &Stores{
		DB:        db,
		Documents: store.NewSQLiteDocumentStore(db),
		Payments:  store.NewSQLitePaymentStore(db),
		AuditRuns: store.NewSQLiteAuditRunStore(db),
	}, nil
}

// Close releases the database handle.
func (s *Stores) Close() error {
	return s.DB.Close()
}
