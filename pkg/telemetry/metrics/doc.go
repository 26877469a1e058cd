// Package metrics provides Prometheus metrics for the ALPR dashboard backend.
//
// # Metrics Categories
//
//   - Retention: cleanup runs, deleted records, run duration, last success,
//     active policy and the record counts seen by the stats reporter
//   - HTTP: API request count and latency by route
//   - Ingest: detections recorded by status and rejected vision payloads
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordCleanup("scheduled", "success", 42, 180*time.Millisecond)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Metric names use the configured namespace (default "alpr"), e.g.
// alpr_retention_runs_total{trigger="manual",outcome="error"}.
package metrics
