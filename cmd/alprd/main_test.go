package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/cli"
	"github.com/afelipfo/alpr-dashboard/pkg/database"
	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/detection/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a config file pointing at a fresh SQLite database and
// returns its path together with the database path.
func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "alpr.db")
	cfgPath = filepath.Join(dir, "config.yaml")

	content := "storage:\n" +
		"  driver: sqlite\n" +
		"  path: " + dbPath + "\n" +
		"telemetry:\n" +
		"  logging:\n" +
		"    level: info\n" +
		"    format: text\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return cfgPath, dbPath
}

func seedDetections(t *testing.T, dbPath string, ages ...time.Duration) {
	t.Helper()
	ctx := context.Background()

	cfg := database.DefaultConfig()
	cfg.Path = dbPath
	db, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	records, err := storage.NewSQLiteStorage(ctx, db)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer records.Close()

	now := time.Now()
	for _, age := range ages {
		_, err := records.Store(ctx, &detection.Record{
			PlateText:        "ABC123",
			Confidence:       88,
			Status:           detection.StatusOK,
			OriginalImageURL: "https://images.example.com/frame.jpg",
			DetectedAt:       now.Add(-age),
		})
		if err != nil {
			t.Fatalf("failed to seed detection: %v", err)
		}
	}
}

func decodeJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	return v
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	info := decodeJSON(t, out)
	if info["version"] != Version {
		t.Errorf("version = %v, want %s", info["version"], Version)
	}
	if info["goVersion"] != runtime.Version() {
		t.Errorf("goVersion = %v", info["goVersion"])
	}

	out, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "Git Commit:") || !strings.Contains(out, "OS/Arch:") {
		t.Errorf("unexpected text output:\n%s", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "version", "-o", "xml")
	if got := cli.ExitCode(err); got != cli.ExitConfigError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, cli.ExitConfigError, err)
	}
}

func TestRetentionConfigCommands(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "retention", "config", "get", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	policy := decodeJSON(t, out)
	if policy["retentionDays"] != float64(90) || policy["enabled"] != true {
		t.Errorf("default policy = %v", policy)
	}

	out, err = execute(t, "retention", "config", "set", "--days", "30", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	policy = decodeJSON(t, out)
	if policy["retentionDays"] != float64(30) || policy["enabled"] != true {
		t.Errorf("after --days 30 = %v", policy)
	}

	out, err = execute(t, "retention", "config", "set", "--enabled=false", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	policy = decodeJSON(t, out)
	if policy["retentionDays"] != float64(30) || policy["enabled"] != false {
		t.Errorf("after --enabled=false = %v", policy)
	}

	out, err = execute(t, "retention", "config", "get", "-c", cfgPath)
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if !strings.Contains(out, "Retention days:  30") || !strings.Contains(out, "never") {
		t.Errorf("unexpected text output:\n%s", out)
	}
}

func TestRetentionConfigSet_Invalid(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no flags", args: []string{"retention", "config", "set", "-c", cfgPath}},
		{name: "zero days", args: []string{"retention", "config", "set", "--days", "0", "-c", cfgPath}},
		{name: "too many days", args: []string{"retention", "config", "set", "--days", "400", "-c", cfgPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if got := cli.ExitCode(err); got != cli.ExitConfigError {
				t.Errorf("exit code = %d, want %d (err: %v)", got, cli.ExitConfigError, err)
			}
		})
	}
}

func TestRetentionStatsAndCleanup(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	day := 24 * time.Hour
	seedDetections(t, dbPath, 100*day, 95*day, day)

	out, err := execute(t, "retention", "stats", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	stats := decodeJSON(t, out)
	if stats["totalRecords"] != float64(3) || stats["recordsToDelete"] != float64(2) {
		t.Errorf("stats = %v", stats)
	}

	out, err = execute(t, "retention", "cleanup", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	result := decodeJSON(t, out)
	if result["deletedCount"] != float64(2) || result["trigger"] != "manual" {
		t.Errorf("result = %v", result)
	}

	out, err = execute(t, "retention", "config", "get", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if policy := decodeJSON(t, out); policy["lastRun"] == nil {
		t.Errorf("lastRun not recorded: %v", policy)
	}

	out, err = execute(t, "retention", "stats", "-c", cfgPath, "-o", "yaml")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "totalRecords: 1") || !strings.Contains(out, "recordsToDelete: 0") {
		t.Errorf("unexpected YAML output:\n%s", out)
	}
}

func TestRetentionCleanup_Disabled(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	seedDetections(t, dbPath, 400*24*time.Hour)

	if _, err := execute(t, "retention", "config", "set", "--enabled=false", "-c", cfgPath); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	out, err := execute(t, "retention", "cleanup", "-c", cfgPath)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !strings.Contains(out, "skipped") {
		t.Errorf("expected skipped status:\n%s", out)
	}

	out, err = execute(t, "retention", "stats", "-c", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats := decodeJSON(t, out); stats["totalRecords"] != float64(1) {
		t.Errorf("disabled cleanup deleted records: %v", stats)
	}
}

func TestRunDryRun(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "run", "--dry-run", "-c", cfgPath)
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("unexpected output: %q", out)
	}

	_, err = execute(t, "run", "--dry-run", "--listen", "not-an-address", "-c", cfgPath)
	if got := cli.ExitCode(err); got != cli.ExitConfigError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, cli.ExitConfigError, err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "retention", "stats", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	if got := cli.ExitCode(err); got != cli.ExitConfigError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, cli.ExitConfigError, err)
	}
}
