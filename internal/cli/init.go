// Package cli holds the start-up steps shared by cmd/ledgerd and
// cmd/report-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"threepl/internal/catalog"
	"threepl/internal/config"
	"threepl/internal/core"
	"threepl/internal/importer"
	"threepl/internal/ledger"
	"threepl/internal/ledger/memory"
	"threepl/internal/log"
	"threepl/internal/storage"
)

// SetupLogger builds the process logger from a LOG_LEVEL value and installs
// it as the slog default. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.Format = "json"
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development; a missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the environment is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog reads CATALOG_FILE when set and the embedded catalog otherwise,
// then selects the configured variant.
func LoadCatalog(cfg *config.Config) (*catalog.Catalog, catalog.Variant, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if cfg.CatalogFile != "" {
		c, err = catalog.Load(cfg.CatalogFile)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return nil, catalog.Variant{}, err
	}
	v, err := c.Variant(cfg.Variant)
	if err != nil {
		return nil, catalog.Variant{}, err
	}
	return c, v, nil
}

// OpenStore returns the configured ledger store and its closer.
func OpenStore(cfg *config.Config) (ledger.Store, io.Closer, error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return repo, repo, nil
	default:
		return memory.New(nil), io.NopCloser(nil), nil
	}
}

// SeedLedger fills an empty store. Sources are tried in order: the XLSX
// workbook, the Google spreadsheet, then the variant defaults for twelve
// months. A store that already holds months is left alone.
func SeedLedger(ctx context.Context, cfg *config.Config, store ledger.Store, v catalog.Variant, logger *log.Logger) error {
	logger = logger.WithComponent(log.ComponentImporter)
	existing, err := store.Months(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("Ledger already populated, skipping seed", "months", len(existing))
		return nil
	}

	var (
		recs   []core.MonthlyLedgerRecord
		source string
	)
	switch {
	case cfg.SeedXLSX != "":
		source = cfg.SeedXLSX
		recs, err = importer.ReadWorkbook(cfg.SeedXLSX, cfg.SeedSheet, v.Buckets)
	case cfg.SeedSpreadsheetID != "":
		source = "sheets:" + cfg.SeedSpreadsheetID
		var r *importer.SheetsReader
		if r, err = importer.NewSheetsReader(ctx, cfg.SeedSpreadsheetID); err == nil {
			recs, err = r.Read(ctx, cfg.SeedRange, v.Buckets)
		}
	default:
		source = "catalog:" + v.Name
		recs = v.SeedLedger(catalog.DefaultMonths)
	}
	if err != nil {
		return fmt.Errorf("seed ledger from %s: %w", source, err)
	}
	if err := store.Replace(ctx, recs); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Ledger seeded",
		log.FieldOperation, log.OpImport,
		"source", source,
		"months", len(recs))
	return nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
