// Package database opens the SQLite database shared by the detection and
// system configuration stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"
)

const (
	// DriverSQLite selects the pure Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"

	// DriverSQLite3 selects the cgo github.com/mattn/go-sqlite3 driver.
	DriverSQLite3 = "sqlite3"
)

// Config contains configuration for the SQLite database.
type Config struct {
	// Driver is the database/sql driver name: "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default SQLite configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:       DriverSQLite,
		Path:         "data/alpr.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// Open opens the database described by cfg, creating the parent directory
// of the database file if needed, and verifies the connection.
//
// Pragmas are passed through the DSN rather than executed once, so every
// pooled connection gets the same busy timeout.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	dsn, err := buildDSN(driver, cfg)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Default().With("component", "database").Info("database opened",
		"driver", driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", maxOpen,
	)

	return db, nil
}

// buildDSN encodes the connection pragmas in the parameter syntax of the
// selected driver.
func buildDSN(driver string, cfg *Config) (string, error) {
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	ms := busyTimeout.Milliseconds()

	switch driver {
	case DriverSQLite:
		dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)", cfg.Path, ms)
		if cfg.WALMode {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn, nil
	case DriverSQLite3:
		dsn := fmt.Sprintf("%s?_busy_timeout=%d&_synchronous=NORMAL", cfg.Path, ms)
		if cfg.WALMode {
			dsn += "&_journal_mode=WAL"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (valid: %s, %s)", driver, DriverSQLite, DriverSQLite3)
	}
}
