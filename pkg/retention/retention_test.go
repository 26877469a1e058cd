package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/detection/storage"
	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/sysconfig"

	"github.com/jonboulle/clockwork"
)

var (
	testNow   = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.Local)
	errDown   = errors.New("connection refused")
	discardLg = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// testEnv wires an engine and reporter over in-memory stores.
type testEnv struct {
	clock     *clockwork.FakeClock
	records   *storage.MemoryStorage
	configs   *sysconfig.MemoryStore
	policies  *PolicyStore
	publisher *events.RecordingPublisher
	engine    *Engine
	reporter  *Reporter
}

func newTestEnv() *testEnv {
	return newTestEnvAt(testNow)
}

func newTestEnvAt(now time.Time) *testEnv {
	env := &testEnv{
		clock:     clockwork.NewFakeClockAt(now),
		records:   storage.NewMemoryStorage(),
		configs:   sysconfig.NewMemoryStore(),
		publisher: &events.RecordingPublisher{},
	}
	env.policies = NewPolicyStore(env.configs, 90, discardLg)
	opts := []Option{
		WithClock(env.clock),
		WithLogger(discardLg),
		WithPublisher(env.publisher),
	}
	env.engine = NewEngine(env.records, env.policies, opts...)
	env.reporter = NewReporter(env.records, env.policies, opts...)
	return env
}

// seedAges inserts one record per age, in days before testNow.
func (env *testEnv) seedAges(days ...int) []int64 {
	ids := make([]int64, 0, len(days))
	for _, d := range days {
		ids = append(ids, env.seedAt(testNow.AddDate(0, 0, -d)))
	}
	return ids
}

func (env *testEnv) seedAt(t time.Time) int64 {
	id, err := env.records.Store(context.Background(), &detection.Record{
		PlateText:        "ABC123",
		Confidence:       90,
		OriginalImageURL: "https://images.example.com/frame.jpg",
		Status:           detection.StatusOK,
		DetectedAt:       t,
	})
	if err != nil {
		panic(err)
	}
	return id
}

func (env *testEnv) setPolicy(days int, enabled bool) {
	if err := env.policies.Set(context.Background(), Policy{RetentionDays: days, Enabled: enabled}); err != nil {
		panic(err)
	}
}

// failingSetStore accepts reads but rejects writes.
type failingSetStore struct {
	*sysconfig.MemoryStore
}

func (s failingSetStore) Set(ctx context.Context, key, value, description string) error {
	return errDown
}

// panickingStorage panics on Delete.
type panickingStorage struct {
	*storage.MemoryStorage
}

func (panickingStorage) Delete(ctx context.Context, query *detection.Query) (int64, error) {
	panic("disk on fire")
}
