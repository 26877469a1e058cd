package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/config"

	"github.com/robfig/cron/v3"
)

// minInitialDelay keeps the startup run strictly after Start.
const minInitialDelay = 10 * time.Millisecond

// ErrSchedulerRunning is returned by Start on a running scheduler.
var ErrSchedulerRunning = errors.New("retention scheduler already running")

// SchedulerConfig controls when cleanups run.
type SchedulerConfig struct {
	// InitialDelay is the wait between Start and the startup run.
	InitialDelay time.Duration

	// Interval is the period between scheduled runs.
	Interval time.Duration

	// Schedule is an optional standard cron expression that replaces
	// Interval, e.g. "0 3 * * *".
	Schedule string
}

// SchedulerConfigFrom maps the retention section of the service config.
func SchedulerConfigFrom(cfg config.RetentionConfig) SchedulerConfig {
	return SchedulerConfig{
		InitialDelay: cfg.InitialDelay,
		Interval:     cfg.Interval,
		Schedule:     cfg.Schedule,
	}
}

// delayedSchedule fires once at first, then follows next.
type delayedSchedule struct {
	first time.Time
	next  cron.Schedule
}

func (s delayedSchedule) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	return s.next.Next(t)
}

// Scheduler runs the engine once shortly after startup and then
// periodically for the life of the process.
type Scheduler struct {
	engine *Engine
	config SchedulerConfig
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	done    chan struct{}
	started atomic.Bool
}

// NewScheduler creates a scheduler for engine. Zero durations fall back to
// the service defaults.
func NewScheduler(engine *Engine, cfg SchedulerConfig, opts ...Option) *Scheduler {
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = config.DefaultRetentionInitialDelay
	}
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultRetentionInterval
	}
	o := newOptions(opts)
	return &Scheduler{
		engine: engine,
		config: cfg,
		logger: o.logger.With("component", "retention.scheduler"),
	}
}

// Start schedules the startup run after InitialDelay and the recurring
// runs after it. Runs receive ctx; cancelling ctx stops the scheduler.
//
// A scheduled tick is skipped while the previous run is still in progress.
// Manual runs through the engine are not affected.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}

	recurring, err := s.recurringSchedule()
	if err != nil {
		return err
	}

	delay := s.config.InitialDelay
	if delay < minInitialDelay {
		delay = minInitialDelay
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)
	s.started.Store(false)
	s.cron.Schedule(delayedSchedule{
		first: time.Now().Add(delay),
		next:  recurring,
	}, cron.FuncJob(func() { s.run(ctx) }))

	s.cron.Start()
	s.running = true
	done := make(chan struct{})
	s.done = done

	s.logger.Info("retention scheduler started",
		"initial_delay", delay,
		"interval", s.config.Interval,
		"schedule", s.config.Schedule,
	)

	go func() {
		select {
		case <-ctx.Done():
			s.stop(done)
		case <-done:
		}
	}()

	return nil
}

func (s *Scheduler) recurringSchedule() (cron.Schedule, error) {
	if s.config.Schedule == "" {
		return cron.Every(s.config.Interval), nil
	}
	schedule, err := cron.ParseStandard(s.config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}
	return schedule, nil
}

func (s *Scheduler) run(ctx context.Context) {
	trigger := TriggerScheduled
	if s.started.CompareAndSwap(false, true) {
		trigger = TriggerStartup
	}
	// The engine logs and records the result; a failure never stops the
	// schedule.
	s.engine.RunCleanup(ctx, trigger)
}

// Stop stops the scheduler and waits for an in-flight run to complete.
func (s *Scheduler) Stop() {
	s.stop(nil)
}

// stop ends the current run. A non-nil done only stops the run started
// with that channel, so a cancelled context from an earlier Start cannot
// stop a later one.
func (s *Scheduler) stop(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil || !s.running {
		return
	}
	if done != nil && done != s.done {
		return
	}

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.running = false
	close(s.done)
	s.done = nil
	s.logger.Info("retention scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled cleanup time, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil || !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return nil
	}
	next := entries[0].Next
	return &next
}
