package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/database"
	"github.com/afelipfo/alpr-dashboard/pkg/detection"
)

// backends returns a constructor for every storage backend under test.
// The mattn driver needs cgo and is skipped when it cannot connect.
func backends() map[string]func(t *testing.T) detection.Storage {
	sqliteWith := func(driver string) func(t *testing.T) detection.Storage {
		return func(t *testing.T) detection.Storage {
			t.Helper()
			ctx := context.Background()

			db, err := database.Open(ctx, &database.Config{
				Driver:       driver,
				Path:         filepath.Join(t.TempDir(), "test.db"),
				MaxOpenConns: 5,
				MaxIdleConns: 2,
				WALMode:      true,
				BusyTimeout:  5 * time.Second,
			})
			if err != nil {
				if driver == database.DriverSQLite3 {
					t.Skipf("mattn driver unavailable: %v", err)
				}
				t.Fatalf("Failed to open database: %v", err)
			}
			t.Cleanup(func() { db.Close() })

			store, err := NewSQLiteStorage(ctx, db)
			if err != nil {
				t.Fatalf("Failed to create SQLite storage: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		}
	}

	return map[string]func(t *testing.T) detection.Storage{
		"memory":  func(t *testing.T) detection.Storage { return NewMemoryStorage() },
		"sqlite":  sqliteWith(database.DriverSQLite),
		"sqlite3": sqliteWith(database.DriverSQLite3),
	}
}

func newRecord(plate string, detectedAt time.Time) *detection.Record {
	return &detection.Record{
		PlateText:        plate,
		Confidence:       90,
		BBox:             detection.BoundingBox{XMin: 10, YMin: 20, XMax: 40, YMax: 35},
		OriginalImageURL: "https://images.example.com/" + plate + ".jpg",
		Status:           detection.StatusOK,
		CameraID:         "cam-1",
		DetectedAt:       detectedAt,
	}
}

// TestStorage_StoreAndGet tests that a stored record round-trips.
func TestStorage_StoreAndGet(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			now := time.Now().Truncate(time.Millisecond)
			record := newRecord("ABC123", now)
			record.UserID = 7
			record.CroppedImageURL = "https://images.example.com/crop.jpg"

			id, err := store.Store(ctx, record)
			if err != nil {
				t.Fatalf("Store() failed: %v", err)
			}
			if id <= 0 || record.ID != id {
				t.Fatalf("Store() id = %d, record.ID = %d", id, record.ID)
			}

			got, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.PlateText != "ABC123" || got.Confidence != 90 || got.UserID != 7 {
				t.Errorf("Get() = %+v", got)
			}
			if !got.DetectedAt.Equal(now) {
				t.Errorf("DetectedAt = %v, want %v", got.DetectedAt, now)
			}
			if got.BBox != record.BBox {
				t.Errorf("BBox = %+v, want %+v", got.BBox, record.BBox)
			}
			if got.CroppedImageURL != record.CroppedImageURL || got.CameraID != "cam-1" {
				t.Errorf("optional fields not preserved: %+v", got)
			}

			if _, err := store.Get(ctx, id+100); !errors.Is(err, detection.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

// TestStorage_IDsIncrease tests that ids are assigned monotonically.
func TestStorage_IDsIncrease(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			var last int64
			for i := 0; i < 5; i++ {
				id, err := store.Store(ctx, newRecord("ABC123", time.Now()))
				if err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
				if id <= last {
					t.Fatalf("id %d not greater than previous %d", id, last)
				}
				last = id
			}
		})
	}
}

// TestStorage_DeleteBeforeIsStrict tests that DetectedBefore excludes the
// boundary instant.
func TestStorage_DeleteBeforeIsStrict(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			cutoff := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			for _, ts := range []time.Time{
				cutoff.Add(-48 * time.Hour),
				cutoff.Add(-time.Millisecond),
				cutoff,
				cutoff.Add(time.Hour),
			} {
				if _, err := store.Store(ctx, newRecord("ABC123", ts)); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			count, err := store.Count(ctx, &detection.Query{DetectedBefore: &cutoff})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if count != 2 {
				t.Errorf("Count(before cutoff) = %d, want 2", count)
			}

			deleted, err := store.Delete(ctx, &detection.Query{DetectedBefore: &cutoff})
			if err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if deleted != 2 {
				t.Errorf("Delete() = %d, want 2", deleted)
			}

			deleted, err = store.Delete(ctx, &detection.Query{DetectedBefore: &cutoff})
			if err != nil {
				t.Fatalf("second Delete() failed: %v", err)
			}
			if deleted != 0 {
				t.Errorf("second Delete() = %d, want 0", deleted)
			}

			total, _ := store.Count(ctx, &detection.Query{})
			if total != 2 {
				t.Errorf("remaining = %d, want 2", total)
			}
		})
	}
}

// TestStorage_TimeRange tests min/max detection timestamps.
func TestStorage_TimeRange(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			oldest, newest, err := store.TimeRange(ctx)
			if err != nil {
				t.Fatalf("TimeRange() failed: %v", err)
			}
			if oldest != nil || newest != nil {
				t.Fatalf("TimeRange() on empty store = %v, %v; want nil, nil", oldest, newest)
			}

			base := time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)
			for _, days := range []int{5, 0, 12, 3} {
				if _, err := store.Store(ctx, newRecord("ABC123", base.AddDate(0, 0, -days))); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			oldest, newest, err = store.TimeRange(ctx)
			if err != nil {
				t.Fatalf("TimeRange() failed: %v", err)
			}
			if oldest == nil || !oldest.Equal(base.AddDate(0, 0, -12)) {
				t.Errorf("oldest = %v, want %v", oldest, base.AddDate(0, 0, -12))
			}
			if newest == nil || !newest.Equal(base) {
				t.Errorf("newest = %v, want %v", newest, base)
			}
		})
	}
}

// TestStorage_QueryFilters tests filtering and pagination.
func TestStorage_QueryFilters(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			base := time.Now().Truncate(time.Millisecond)

			fixtures := []struct {
				plate      string
				status     detection.Status
				confidence int
				camera     string
				age        time.Duration
			}{
				{"ABC123", detection.StatusOK, 95, "cam-1", 1 * time.Hour},
				{"XYZ789", detection.StatusOK, 88, "cam-2", 2 * time.Hour},
				{"ABD456", detection.StatusLowConfidence, 40, "cam-1", 3 * time.Hour},
				{"NO_PLATE", detection.StatusNoPlateFound, 0, "cam-2", 4 * time.Hour},
			}
			for _, f := range fixtures {
				r := newRecord(f.plate, base.Add(-f.age))
				r.Status = f.status
				r.Confidence = f.confidence
				r.CameraID = f.camera
				if _, err := store.Store(ctx, r); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			minConf := 80
			from := base.Add(-150 * time.Minute)
			tests := []struct {
				name  string
				query *detection.Query
				want  []string
			}{
				{"all newest first", &detection.Query{}, []string{"ABC123", "XYZ789", "ABD456", "NO_PLATE"}},
				{"plate contains", &detection.Query{PlateText: "ab"}, []string{"ABC123", "ABD456"}},
				{"plate underscore is literal", &detection.Query{PlateText: "_"}, []string{"NO_PLATE"}},
				{"plate percent is literal", &detection.Query{PlateText: "%"}, []string{}},
				{"status", &detection.Query{Status: detection.StatusLowConfidence}, []string{"ABD456"}},
				{"camera", &detection.Query{CameraID: "cam-2"}, []string{"XYZ789", "NO_PLATE"}},
				{"min confidence", &detection.Query{MinConfidence: &minConf}, []string{"ABC123", "XYZ789"}},
				{"detected from", &detection.Query{DetectedFrom: &from}, []string{"ABC123", "XYZ789"}},
				{"pagination", &detection.Query{Limit: 2, Offset: 1}, []string{"XYZ789", "ABD456"}},
				{"offset past end", &detection.Query{Offset: 10}, []string{}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					records, err := store.Query(ctx, tt.query)
					if err != nil {
						t.Fatalf("Query() failed: %v", err)
					}
					if len(records) != len(tt.want) {
						t.Fatalf("Query() returned %d records, want %d", len(records), len(tt.want))
					}
					for i, r := range records {
						if r.PlateText != tt.want[i] {
							t.Errorf("records[%d] = %s, want %s", i, r.PlateText, tt.want[i])
						}
					}
				})
			}
		})
	}
}

// TestStorage_DeleteByID tests single-record deletion.
func TestStorage_DeleteByID(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			id, err := store.Store(ctx, newRecord("ABC123", time.Now()))
			if err != nil {
				t.Fatalf("Store() failed: %v", err)
			}
			if err := store.DeleteByID(ctx, id); err != nil {
				t.Fatalf("DeleteByID() failed: %v", err)
			}
			if err := store.DeleteByID(ctx, id); !errors.Is(err, detection.ErrNotFound) {
				t.Errorf("second DeleteByID() error = %v, want ErrNotFound", err)
			}
		})
	}
}

// TestStorage_ConcurrentDeletes tests that overlapping predicate deletions
// remove each record exactly once.
func TestStorage_ConcurrentDeletes(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			now := time.Now()
			for i := 0; i < 50; i++ {
				if _, err := store.Store(ctx, newRecord("ABC123", now.AddDate(0, 0, -100))); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			cutoff := now.AddDate(0, 0, -90)
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				total int64
			)
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					n, err := store.Delete(ctx, &detection.Query{DetectedBefore: &cutoff})
					if err != nil {
						t.Errorf("Delete() failed: %v", err)
						return
					}
					mu.Lock()
					total += n
					mu.Unlock()
				}()
			}
			wg.Wait()

			if total != 50 {
				t.Errorf("total deleted = %d, want 50", total)
			}
		})
	}
}

// TestMemoryStorage_Failure tests the injected failure mode.
func TestMemoryStorage_Failure(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	boom := errors.New("connection refused")

	store.SetFailure(boom)

	if _, err := store.Count(ctx, &detection.Query{}); !errors.Is(err, boom) {
		t.Errorf("Count() error = %v, want %v", err, boom)
	}
	var storageErr *detection.StorageError
	if _, err := store.Delete(ctx, &detection.Query{}); !errors.As(err, &storageErr) {
		t.Errorf("Delete() error = %v, want *StorageError", err)
	} else if storageErr.Operation != "delete" {
		t.Errorf("Operation = %s, want delete", storageErr.Operation)
	}

	store.SetFailure(nil)
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() after recovery failed: %v", err)
	}
}
