package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
)

const backendMemory = "memory"

// MemoryStorage implements detection.Storage using an in-memory map.
// It is used by tests and by the "memory" storage driver; records do not
// survive a restart.
type MemoryStorage struct {
	records map[int64]*detection.Record
	nextID  int64
	failErr error
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[int64]*detection.Record),
	}
}

// Store inserts a copy of record and assigns it the next id.
func (s *MemoryStorage) Store(ctx context.Context, record *detection.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return 0, detection.NewStorageError(backendMemory, "store", s.failErr)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.DetectedAt.IsZero() {
		record.DetectedAt = record.CreatedAt
	}
	if record.Status == "" {
		record.Status = detection.StatusOK
	}

	s.nextID++
	record.ID = s.nextID

	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return record.ID, nil
}

// Get returns a copy of the record with the given id.
func (s *MemoryStorage) Get(ctx context.Context, id int64) (*detection.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, detection.NewStorageError(backendMemory, "get", s.failErr)
	}

	record, ok := s.records[id]
	if !ok {
		return nil, detection.ErrNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

// Query retrieves records matching the query, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *detection.Query) ([]*detection.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, detection.NewStorageError(backendMemory, "query", s.failErr)
	}

	results := []*detection.Record{}
	for _, record := range s.records {
		if query.Matches(record) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DetectedAt.Equal(results[j].DetectedAt) {
			return results[i].ID > results[j].ID
		}
		return results[i].DetectedAt.After(results[j].DetectedAt)
	})

	limit := defaultQueryLimit
	offset := 0
	if query != nil {
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}

	if offset >= len(results) {
		return []*detection.Record{}, nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}

	return results[offset:end], nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *detection.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return 0, detection.NewStorageError(backendMemory, "count", s.failErr)
	}

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *detection.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return 0, detection.NewStorageError(backendMemory, "delete", s.failErr)
	}

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteByID removes a single record.
func (s *MemoryStorage) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return detection.NewStorageError(backendMemory, "delete_by_id", s.failErr)
	}
	if _, ok := s.records[id]; !ok {
		return detection.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// TimeRange returns the oldest and newest detection timestamps.
func (s *MemoryStorage) TimeRange(ctx context.Context) (*time.Time, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, nil, detection.NewStorageError(backendMemory, "time_range", s.failErr)
	}

	var oldest, newest *time.Time
	for _, record := range s.records {
		t := record.DetectedAt
		if oldest == nil || t.Before(*oldest) {
			oldest = &t
		}
		if newest == nil || t.After(*newest) {
			newest = &t
		}
	}
	return oldest, newest, nil
}

// Ping reports the injected failure, if any.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return detection.NewStorageError(backendMemory, "ping", s.failErr)
	}
	return nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// SetFailure makes every subsequent operation fail with err, simulating an
// unreachable backend. Pass nil to restore normal operation.
func (s *MemoryStorage) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Clear removes all records (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[int64]*detection.Record)
}

// Size returns the number of stored records (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
