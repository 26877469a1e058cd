// Package logging builds the process logger.
//
// Every component logs through log/slog with a component-scoped child logger
// and snake_case keys:
//
//	logger := slog.Default().With("component", "retention.engine")
//	logger.Info("cleanup completed", "deleted_count", n, "retention_days", days)
//
// New returns a Logger whose level lives in a slog.LevelVar, so a config
// reload can change verbosity without rebuilding handlers. FromContext adds
// the request_id and run_id fields carried by a context.
package logging
