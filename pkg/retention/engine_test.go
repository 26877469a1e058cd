package retention

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/sysconfig"
)

// TestRunCleanup_ScenarioA tests deletion of records older than the period.
func TestRunCleanup_ScenarioA(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	ids := env.seedAges(10, 40, 90)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)

	if result.Failed() {
		t.Fatalf("RunCleanup() failed: %s", result.Error)
	}
	if result.DeletedCount != 2 {
		t.Errorf("deletedCount = %d, want 2", result.DeletedCount)
	}
	if _, err := env.records.Get(context.Background(), ids[0]); err != nil {
		t.Errorf("10-day-old record should remain: %v", err)
	}
	if env.records.Size() != 1 {
		t.Errorf("remaining records = %d, want 1", env.records.Size())
	}
	if result.RetentionDays != 30 || result.Cutoff == nil {
		t.Errorf("result = %+v, want retentionDays 30 and a cutoff", result)
	}
	if result.RunID == "" || result.Trigger != TriggerManual {
		t.Errorf("result missing run id or trigger: %+v", result)
	}
}

// TestRunCleanup_ScenarioB tests that a disabled policy deletes nothing.
func TestRunCleanup_ScenarioB(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, false)
	env.seedAges(10, 40, 90)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)

	if result.Failed() || result.DeletedCount != 0 || !result.Skipped {
		t.Errorf("result = %+v, want skipped with deletedCount 0", result)
	}
	if env.records.Size() != 3 {
		t.Errorf("remaining records = %d, want 3", env.records.Size())
	}
	if got := env.policies.Get(context.Background()); got.LastRun != nil {
		t.Errorf("lastRun = %v, want unchanged nil", got.LastRun)
	}
}

// TestRunCleanup_DisabledKeepsLastRun tests that a skipped run leaves an
// existing lastRun as it was.
func TestRunCleanup_DisabledKeepsLastRun(t *testing.T) {
	env := newTestEnv()
	previous := testNow.AddDate(0, 0, -3)
	if err := env.policies.Set(context.Background(), Policy{RetentionDays: 5, Enabled: false, LastRun: &previous}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	env.seedAges(100)

	env.clock.Advance(time.Hour)
	env.engine.RunCleanup(context.Background(), TriggerScheduled)

	got := env.policies.Get(context.Background())
	if got.LastRun == nil || !got.LastRun.Equal(previous) {
		t.Errorf("lastRun = %v, want %v", got.LastRun, previous)
	}
}

// TestRunCleanup_Idempotent tests that a second run deletes nothing.
func TestRunCleanup_Idempotent(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(7, true)
	env.seedAges(1, 8, 9, 30)

	first := env.engine.RunCleanup(context.Background(), TriggerManual)
	second := env.engine.RunCleanup(context.Background(), TriggerManual)

	if first.Failed() || second.Failed() {
		t.Fatalf("unexpected errors: %q, %q", first.Error, second.Error)
	}
	if first.DeletedCount != 3 {
		t.Errorf("first deletedCount = %d, want 3", first.DeletedCount)
	}
	if second.DeletedCount != 0 {
		t.Errorf("second deletedCount = %d, want 0", second.DeletedCount)
	}
}

// TestRunCleanup_CutoffBoundary tests records on either side of the cutoff.
func TestRunCleanup_CutoffBoundary(t *testing.T) {
	const days = 30

	env := newTestEnv()
	env.setPolicy(days, true)
	cutoff := testNow.AddDate(0, 0, -days)

	older := env.seedAt(testNow.AddDate(0, 0, -(days + 1)))
	newer := env.seedAt(testNow.AddDate(0, 0, -(days - 1)))
	atCutoff := env.seedAt(cutoff)
	justBefore := env.seedAt(cutoff.Add(-time.Millisecond))

	result := env.engine.RunCleanup(context.Background(), TriggerManual)
	if result.DeletedCount != 2 {
		t.Fatalf("deletedCount = %d, want 2", result.DeletedCount)
	}
	if !result.Cutoff.Equal(cutoff) {
		t.Errorf("cutoff = %v, want %v", result.Cutoff, cutoff)
	}

	ctx := context.Background()
	for _, id := range []int64{older, justBefore} {
		if _, err := env.records.Get(ctx, id); !errors.Is(err, detection.ErrNotFound) {
			t.Errorf("record %d should be deleted, got %v", id, err)
		}
	}
	for _, id := range []int64{newer, atCutoff} {
		if _, err := env.records.Get(ctx, id); err != nil {
			t.Errorf("record %d should remain, got %v", id, err)
		}
	}
}

// TestRunCleanup_CalendarDays tests that the cutoff uses calendar days.
func TestRunCleanup_CalendarDays(t *testing.T) {
	env := newTestEnvAt(time.Date(2025, time.March, 1, 9, 30, 0, 0, time.Local))
	env.setPolicy(1, true)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)

	want := time.Date(2025, time.February, 28, 9, 30, 0, 0, time.Local)
	if result.Cutoff == nil || !result.Cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", result.Cutoff, want)
	}
}

// TestRunCleanup_SetsLastRun tests that lastRun is written after success
// while the other fields are preserved.
func TestRunCleanup_SetsLastRun(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(45, true)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)
	if result.Failed() {
		t.Fatalf("RunCleanup() failed: %s", result.Error)
	}

	got := env.policies.Get(context.Background())
	if got.LastRun == nil || !got.LastRun.Equal(testNow) {
		t.Errorf("lastRun = %v, want %v", got.LastRun, testNow)
	}
	if got.RetentionDays != 45 || !got.Enabled {
		t.Errorf("policy fields changed: %+v", got)
	}
}

// TestRunCleanup_DefaultPolicy tests a run before any policy was saved.
func TestRunCleanup_DefaultPolicy(t *testing.T) {
	env := newTestEnv()
	env.seedAges(89, 91)

	result := env.engine.RunCleanup(context.Background(), TriggerStartup)
	if result.DeletedCount != 1 || result.RetentionDays != 90 {
		t.Errorf("result = %+v, want 1 deletion under the 90 day default", result)
	}
}

// TestRunCleanup_PolicyStoreUnavailable tests that an unreachable
// configuration store never falls back to deleting under the default.
func TestRunCleanup_PolicyStoreUnavailable(t *testing.T) {
	env := newTestEnv()
	env.seedAges(100, 200)
	env.configs.SetFailure(errDown)

	result := env.engine.RunCleanup(context.Background(), TriggerScheduled)

	if !result.Failed() || result.DeletedCount != 0 {
		t.Fatalf("result = %+v, want error with deletedCount 0", result)
	}
	if !errors.Is(result.Err(), ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", result.Err())
	}
	if env.records.Size() != 2 {
		t.Errorf("records deleted despite unavailable policy store")
	}
}

// TestRunCleanup_RecordStoreUnavailable tests delete failures.
func TestRunCleanup_RecordStoreUnavailable(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(40)
	env.records.SetFailure(errDown)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)

	if !result.Failed() || result.DeletedCount != 0 || result.Error == "" {
		t.Fatalf("result = %+v, want error with deletedCount 0", result)
	}
	var storageErr *detection.StorageError
	if !errors.As(result.Err(), &storageErr) || storageErr.Operation != "delete" {
		t.Errorf("error = %v, want StorageError on delete", result.Err())
	}
	if got := env.policies.Get(context.Background()); got.LastRun != nil {
		t.Errorf("lastRun = %v, want nil after failed run", got.LastRun)
	}
}

// TestRunCleanup_RecoversPanic tests that a panic becomes an error result.
func TestRunCleanup_RecoversPanic(t *testing.T) {
	env := newTestEnv()
	engine := NewEngine(panickingStorage{env.records}, env.policies,
		WithClock(env.clock), WithLogger(discardLg), WithPublisher(env.publisher))

	result := engine.RunCleanup(context.Background(), TriggerManual)

	if !errors.Is(result.Err(), ErrCleanupPanic) || result.DeletedCount != 0 {
		t.Errorf("result = %+v, want recovered panic", result)
	}
	if len(env.publisher.Messages()) != 1 {
		t.Error("panicked run should still be published")
	}
}

// TestRunCleanup_LastRunWriteFailure tests that a failed lastRun write does
// not turn a successful deletion into an error.
func TestRunCleanup_LastRunWriteFailure(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(40, 50)

	policies := NewPolicyStore(failingSetStore{env.configs}, 90, discardLg)
	engine := NewEngine(env.records, policies, WithClock(env.clock), WithLogger(discardLg))

	result := engine.RunCleanup(context.Background(), TriggerManual)

	if result.Failed() {
		t.Fatalf("RunCleanup() failed: %s", result.Error)
	}
	if result.DeletedCount != 2 {
		t.Errorf("deletedCount = %d, want 2", result.DeletedCount)
	}
}

// TestRunCleanup_Concurrent tests that overlapping runs delete each record
// exactly once.
func TestRunCleanup_Concurrent(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	for i := 0; i < 50; i++ {
		env.seedAges(31 + i)
		env.seedAges(i % 30)
	}

	const runs = 8
	results := make([]Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.engine.RunCleanup(context.Background(), TriggerManual)
		}(i)
	}
	wg.Wait()

	var total int64
	for _, r := range results {
		if r.Failed() {
			t.Errorf("concurrent run failed: %s", r.Error)
		}
		total += r.DeletedCount
	}
	if total != 50 {
		t.Errorf("total deleted = %d, want 50", total)
	}
	if env.records.Size() != 50 {
		t.Errorf("remaining = %d, want 50", env.records.Size())
	}
}

// TestRunCleanup_PublishesResult tests the cleanup event payload.
func TestRunCleanup_PublishesResult(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(60)

	result := env.engine.RunCleanup(context.Background(), TriggerScheduled)

	msgs := env.publisher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d events, want 1", len(msgs))
	}
	if msgs[0].Subject != events.SubjectCleanup {
		t.Errorf("subject = %q, want %q", msgs[0].Subject, events.SubjectCleanup)
	}

	var payload map[string]any
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["deletedCount"] != float64(1) {
		t.Errorf("deletedCount = %v, want 1", payload["deletedCount"])
	}
	if payload["runId"] != result.RunID || payload["trigger"] != "scheduled" {
		t.Errorf("payload = %v", payload)
	}
	if _, ok := payload["error"]; ok {
		t.Error("successful run must not carry an error field")
	}
}

// TestRunCleanup_PublishFailureIgnored tests that a broker outage does not
// affect the run.
func TestRunCleanup_PublishFailureIgnored(t *testing.T) {
	env := newTestEnv()
	env.setPolicy(30, true)
	env.seedAges(60)
	env.publisher.SetFailure(errDown)

	result := env.engine.RunCleanup(context.Background(), TriggerManual)
	if result.Failed() || result.DeletedCount != 1 {
		t.Errorf("result = %+v, want success", result)
	}
}

var _ sysconfig.Store = failingSetStore{}
