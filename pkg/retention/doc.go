// Package retention enforces the data retention policy on detection records.
//
// # Policy
//
// The policy is a singleton stored as JSON in the system configuration
// store under the key "data_retention_policy":
//
//	{"retentionDays": 90, "enabled": true, "lastRun": "2025-11-20T03:00:00Z"}
//
// PolicyStore.Get never fails and falls back to the default policy
// (90 days, enabled). PolicyStore.Load reports why it fell back, which the
// Engine uses to refuse deleting anything under a policy it could not read.
//
// # Cleanup
//
// Engine.RunCleanup deletes every record whose detectedAt is strictly
// before now minus retentionDays calendar days, then saves lastRun. A
// disabled policy skips the run. Failures and panics are reported in the
// returned Result with deletedCount 0; RunCleanup never panics.
//
// Runs are not serialized. Deletion is a predicate over detectedAt, so
// overlapping runs remove each record once and report disjoint counts.
//
// # Scheduling
//
// Scheduler runs a startup cleanup after a short delay, then one every
// interval (24h by default) or on a cron expression:
//
//	engine := retention.NewEngine(records, policies, retention.WithMetrics(collector))
//	scheduler := retention.NewScheduler(engine, retention.SchedulerConfig{
//		InitialDelay: 5 * time.Second,
//		Interval:     24 * time.Hour,
//	})
//	if err := scheduler.Start(ctx); err != nil {
//		return err
//	}
//	defer scheduler.Stop()
//
// # Statistics
//
// Reporter.GetStats counts all records and those past the cutoff. The
// count is a preview and ignores the enabled flag.
package retention
