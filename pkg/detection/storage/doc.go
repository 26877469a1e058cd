// Package storage provides storage backends for detection records.
//
// # Storage Backends
//
//   - SQLite: durable storage on a database opened by pkg/database, with
//     either the pure Go modernc driver or the cgo mattn driver
//   - Memory: in-memory storage for tests and throwaway deployments
//
// # SQLite Backend
//
// Detection timestamps are stored as INTEGER Unix milliseconds and indexed,
// so the retention predicate "detected_at < cutoff" is a range scan on
// idx_detections_detected_at. The database handle is shared with the system
// configuration store and is closed by its owner, not by SQLiteStorage.
//
// # Basic Usage
//
//	db, err := database.Open(ctx, &database.Config{Path: "data/alpr.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	store, err := storage.NewSQLiteStorage(ctx, db)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	cutoff := time.Now().AddDate(0, 0, -90)
//	deleted, err := store.Delete(ctx, &detection.Query{DetectedBefore: &cutoff})
package storage
