package sysconfig

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

const backendSQLite = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS system_config (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    config_key TEXT NOT NULL UNIQUE,
    config_value TEXT NOT NULL,
    description TEXT,
    updated_at INTEGER NOT NULL
);
`

const upsertEntry = `
INSERT INTO system_config (config_key, config_value, description, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(config_key) DO UPDATE SET
    config_value = excluded.config_value,
    description = COALESCE(excluded.description, system_config.description),
    updated_at = excluded.updated_at
`

const selectEntry = `
SELECT config_key, config_value, description, updated_at
FROM system_config WHERE config_key = ?
`

// SQLiteStore keeps configuration entries in the system_config table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	upsertStmt *sql.Stmt
	getStmt    *sql.Stmt
}

// NewSQLiteStore creates the system_config table if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, newStoreError(backendSQLite, "open", "", errors.New("nil database"))
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, newStoreError(backendSQLite, "create_schema", "", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "sysconfig.sqlite"),
	}

	var err error
	if s.upsertStmt, err = db.PrepareContext(ctx, upsertEntry); err != nil {
		return nil, newStoreError(backendSQLite, "prepare_upsert", "", err)
	}
	if s.getStmt, err = db.PrepareContext(ctx, selectEntry); err != nil {
		s.upsertStmt.Close()
		return nil, newStoreError(backendSQLite, "prepare_get", "", err)
	}

	return s, nil
}

// Get returns the entry stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	entry, err := scanEntry(s.getStmt.QueryRowContext(ctx, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newStoreError(backendSQLite, "get", key, err)
	}
	return entry, nil
}

// Set upserts the value for key. An empty description keeps the existing one.
func (s *SQLiteStore) Set(ctx context.Context, key, value, description string) error {
	var desc any
	if description != "" {
		desc = description
	}

	if _, err := s.upsertStmt.ExecContext(ctx, key, value, desc, time.Now().UnixMilli()); err != nil {
		return newStoreError(backendSQLite, "set", key, err)
	}

	s.logger.Debug("config entry saved", "key", key)
	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM system_config WHERE config_key = ?", key); err != nil {
		return newStoreError(backendSQLite, "delete", key, err)
	}
	return nil
}

// List returns all entries ordered by key.
func (s *SQLiteStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT config_key, config_value, description, updated_at FROM system_config ORDER BY config_key")
	if err != nil {
		return nil, newStoreError(backendSQLite, "list", "", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, newStoreError(backendSQLite, "scan", "", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, newStoreError(backendSQLite, "list", "", err)
	}
	return entries, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return newStoreError(backendSQLite, "ping", "", err)
	}
	return nil
}

// Close releases prepared statements. The database is closed by its owner.
func (s *SQLiteStore) Close() error {
	s.upsertStmt.Close()
	s.getStmt.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry     Entry
		desc      sql.NullString
		updatedAt int64
	)
	if err := row.Scan(&entry.Key, &entry.Value, &desc, &updatedAt); err != nil {
		return nil, err
	}
	entry.Description = desc.String
	entry.UpdatedAt = time.UnixMilli(updatedAt)
	return &entry, nil
}
