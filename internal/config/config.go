package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"threepl/internal/log"
	"threepl/internal/storage"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger store
	DataBackend string
	SQLiteDSN   string

	// Catalog
	Variant     string
	CatalogFile string

	// Seed sources, tried in order: workbook, spreadsheet, catalog defaults
	SeedXLSX          string
	SeedSheet         string
	SeedSpreadsheetID string
	SeedRange         string

	// AMQP, optional; reports are dropped when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Metrics cache
	CacheSize int
	CacheTTL  time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDSN:   getEnv("SQLITE_DSN", ":memory:"),

		Variant:     getEnv("VARIANT", "standard"),
		CatalogFile: getEnv("CATALOG_FILE", ""),

		SeedXLSX:          getEnv("SEED_XLSX", ""),
		SeedSheet:         getEnv("SEED_SHEET", ""),
		SeedSpreadsheetID: getEnv("SEED_SPREADSHEET_ID", ""),
		SeedRange:         getEnv("SEED_RANGE", "Ledger!A1:Z13"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "threepl"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "metrics_reports"),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDSN) == "" {
			errors = append(errors, "SQLite DSN cannot be empty when using sqlite backend")
		} else if !storage.IsMemoryDSN(c.SQLiteDSN) {
			errors = append(errors, fmt.Sprintf("SQLite DSN '%s' is not in-memory: use ':memory:' or mode=memory", c.SQLiteDSN))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if strings.TrimSpace(c.Variant) == "" {
		errors = append(errors, "variant cannot be empty")
	}
	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); err != nil {
			errors = append(errors, fmt.Sprintf("catalog file not readable: %s", c.CatalogFile))
		}
	}
	if c.SeedXLSX != "" {
		if _, err := os.Stat(c.SeedXLSX); err != nil {
			errors = append(errors, fmt.Sprintf("seed workbook not readable: %s", c.SeedXLSX))
		}
	}
	if c.SeedSpreadsheetID != "" && strings.TrimSpace(c.SeedRange) == "" {
		errors = append(errors, "SEED_RANGE is required when SEED_SPREADSHEET_ID is set")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
