// Package detection defines plate detection records and the storage contract
// used to persist them.
//
// A Record is identified by a store-assigned integer id and carries the
// timestamp at which the plate was detected. Retention and statistics work
// purely on that timestamp: they count and delete records through Query
// predicates such as DetectedBefore, so the Storage interface never exposes
// row-level iteration to them.
//
// Backends live in the storage sub-package:
//
//   - SQLite (pure Go modernc driver or cgo mattn driver)
//   - Memory, for tests and ephemeral deployments
package detection
