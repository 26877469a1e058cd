// Package telemetry groups the observability packages of the ALPR
// dashboard backend.
//
//   - logging: structured slog logging with request and run IDs
//   - metrics: Prometheus collectors for retention, HTTP and ingest
//   - health: liveness, readiness and version endpoints
package telemetry
