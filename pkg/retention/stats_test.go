package retention

import (
	"context"
	"strings"
	"testing"

	"github.com/afelipfo/alpr-dashboard/pkg/config"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestGetStats_Empty tests statistics over an empty store.
func TestGetStats_Empty(t *testing.T) {
	env := newTestEnv()

	stats := env.reporter.GetStats(context.Background())

	if stats.TotalRecords != 0 || stats.RecordsToDelete != 0 {
		t.Errorf("stats = %+v, want zero counts", stats)
	}
	if stats.OldestRecord != nil || stats.NewestRecord != nil {
		t.Errorf("oldest/newest = %v/%v, want absent", stats.OldestRecord, stats.NewestRecord)
	}
	if stats.RetentionDays != 90 {
		t.Errorf("retentionDays = %d, want default 90", stats.RetentionDays)
	}
}

// TestGetStats_Counts tests totals and the time range.
func TestGetStats_Counts(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(10, 40, 90)

	stats := env.reporter.GetStats(context.Background())

	if stats.TotalRecords != 3 {
		t.Errorf("totalRecords = %d, want 3", stats.TotalRecords)
	}
	if stats.RecordsToDelete != 2 {
		t.Errorf("recordsToDelete = %d, want 2", stats.RecordsToDelete)
	}
	if stats.OldestRecord == nil || !stats.OldestRecord.Equal(testNow.AddDate(0, 0, -90)) {
		t.Errorf("oldestRecord = %v", stats.OldestRecord)
	}
	if stats.NewestRecord == nil || !stats.NewestRecord.Equal(testNow.AddDate(0, 0, -10)) {
		t.Errorf("newestRecord = %v", stats.NewestRecord)
	}
	if !stats.Cutoff.Equal(testNow.AddDate(0, 0, -30)) {
		t.Errorf("cutoff = %v", stats.Cutoff)
	}
}

// TestGetStats_IgnoresEnabled tests that the preview is computed whether or
// not automatic cleanup is enabled.
func TestGetStats_IgnoresEnabled(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		env := newTestEnv()
		env.setPolicy(30, enabled)
		env.seedAges(5, 31, 45, 365)

		stats := env.reporter.GetStats(context.Background())
		if stats.RecordsToDelete != 3 {
			t.Errorf("enabled=%v: recordsToDelete = %d, want 3", enabled, stats.RecordsToDelete)
		}
		if stats.Enabled != enabled {
			t.Errorf("enabled=%v: stats.Enabled = %v", enabled, stats.Enabled)
		}
	}
}

// TestGetStats_ScenarioC tests that a policy change is reflected right away.
func TestGetStats_ScenarioC(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(5, 15, 40)

	before := env.reporter.GetStats(context.Background())
	if before.RecordsToDelete != 1 {
		t.Fatalf("recordsToDelete with 30 days = %d, want 1", before.RecordsToDelete)
	}

	if _, err := env.policies.Update(context.Background(), 10, true); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	after := env.reporter.GetStats(context.Background())
	if after.RecordsToDelete != 2 {
		t.Errorf("recordsToDelete with 10 days = %d, want 2", after.RecordsToDelete)
	}
	if after.RetentionDays != 10 {
		t.Errorf("retentionDays = %d, want 10", after.RetentionDays)
	}
}

// TestGetStats_StoreUnavailable tests the zeroed fallback.
func TestGetStats_StoreUnavailable(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(40)
	env.records.SetFailure(errDown)

	stats := env.reporter.GetStats(context.Background())

	if stats.TotalRecords != 0 || stats.RecordsToDelete != 0 || stats.OldestRecord != nil {
		t.Errorf("stats = %+v, want zeroed counts", stats)
	}
	if stats.RetentionDays != 30 {
		t.Errorf("retentionDays = %d, want 30", stats.RetentionDays)
	}
}

// TestGetStats_AfterCleanup tests that a run empties the eligible set.
func TestGetStats_AfterCleanup(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(1, 31, 61)

	env.engine.RunCleanup(context.Background(), TriggerManual)

	stats := env.reporter.GetStats(context.Background())
	if stats.RecordsToDelete != 0 || stats.TotalRecords != 1 {
		t.Errorf("stats = %+v, want 1 record and nothing eligible", stats)
	}
	if stats.LastRun == nil {
		t.Error("expected lastRun after cleanup")
	}
}

// TestGetStats_StoreUnavailableResetsGauges tests that an outage zeroes the
// record gauges instead of leaving the last observed values.
func TestGetStats_StoreUnavailableResetsGauges(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(10, 40)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, registry)
	reporter := NewReporter(env.records, env.policies,
		WithClock(env.clock), WithLogger(discardLg), WithMetrics(collector))

	reporter.GetStats(context.Background())
	env.records.SetFailure(errDown)
	reporter.GetStats(context.Background())

	expected := `
# HELP test_detection_records Detection records currently stored
# TYPE test_detection_records gauge
test_detection_records 0
# HELP test_retention_eligible_records Detection records older than the retention cutoff
# TYPE test_retention_eligible_records gauge
test_retention_eligible_records 0
# HELP test_retention_policy_days Configured retention period in days
# TYPE test_retention_policy_days gauge
test_retention_policy_days 30
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"test_detection_records", "test_retention_eligible_records", "test_retention_policy_days"); err != nil {
		t.Errorf("gauges after outage: %v", err)
	}
}
