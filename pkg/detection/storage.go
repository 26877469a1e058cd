package detection

import (
	"context"
	"strings"
	"time"
)

// Storage persists detection records.
//
// Implementations must be safe for concurrent use. Delete is predicate
// based, so running the same deletion twice is harmless.
type Storage interface {
	// Store inserts a record and returns the id assigned to it. The id is
	// also written back to record.ID.
	Store(ctx context.Context, record *Record) (int64, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Record, error)

	// Query returns records matching the query, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes every record matching the query and returns how many
	// were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// DeleteByID removes a single record, or returns ErrNotFound.
	DeleteByID(ctx context.Context, id int64) error

	// TimeRange returns the smallest and largest DetectedAt. Both are nil
	// when the store is empty.
	TimeRange(ctx context.Context) (oldest, newest *time.Time, err error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}
