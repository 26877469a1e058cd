package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		wal      bool
		contains []string
		wantErr  bool
	}{
		{
			name:     "modernc with WAL",
			driver:   DriverSQLite,
			wal:      true,
			contains: []string{"_pragma=busy_timeout(2000)", "_pragma=journal_mode(WAL)"},
		},
		{
			name:     "mattn without WAL",
			driver:   DriverSQLite3,
			wal:      false,
			contains: []string{"_busy_timeout=2000"},
		},
		{
			name:    "unknown driver",
			driver:  "postgres",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Path: "test.db", WALMode: tt.wal, BusyTimeout: 2 * time.Second}
			dsn, err := buildDSN(tt.driver, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildDSN() expected error, got %q", dsn)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDSN() failed: %v", err)
			}
			if !strings.HasPrefix(dsn, "test.db?") {
				t.Errorf("dsn = %q, want prefix test.db?", dsn)
			}
			for _, want := range tt.contains {
				if !strings.Contains(dsn, want) {
					t.Errorf("dsn = %q, missing %q", dsn, want)
				}
			}
			if !tt.wal && strings.Contains(dsn, "WAL") {
				t.Errorf("dsn = %q, WAL should not be enabled", dsn)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "alpr.db")

	db, err := Open(context.Background(), &Config{
		Driver:       DriverSQLite,
		Path:         dbPath,
		MaxOpenConns: 2,
		WALMode:      true,
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if one != 1 {
		t.Errorf("SELECT 1 = %d", one)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), &Config{Driver: DriverSQLite}); err == nil {
		t.Fatal("Open() with empty path should fail")
	}
}
