package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/events"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/logging"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Trigger identifies what started a cleanup run.
type Trigger string

const (
	TriggerStartup   Trigger = "startup"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Outcome labels used for logs and metrics.
const (
	outcomeSuccess = "success"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

const publishTimeout = 5 * time.Second

// Result describes one cleanup run. Every run produces a Result, including
// runs that failed or panicked.
type Result struct {
	RunID         string     `json:"runId"`
	Trigger       Trigger    `json:"trigger"`
	DeletedCount  int64      `json:"deletedCount"`
	Error         string     `json:"error,omitempty"`
	Skipped       bool       `json:"skipped,omitempty"`
	RetentionDays int        `json:"retentionDays,omitempty"`
	Cutoff        *time.Time `json:"cutoff,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	DurationMs    int64      `json:"durationMs"`

	err error
}

// Err returns the error that failed the run, or nil.
func (r Result) Err() error {
	return r.err
}

// Failed reports whether the run ended with an error.
func (r Result) Failed() bool {
	return r.err != nil
}

func (r *Result) fail(err error) {
	r.DeletedCount = 0
	r.err = err
	r.Error = err.Error()
}

func (r Result) outcome() string {
	switch {
	case r.Failed():
		return outcomeError
	case r.Skipped:
		return outcomeSkipped
	default:
		return outcomeSuccess
	}
}

// Option configures an Engine, Reporter or Scheduler.
type Option func(*options)

type options struct {
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *metrics.Collector
	publisher  events.Publisher
	runTimeout time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		publisher: events.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the clock used for cutoffs and lastRun.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.metrics = collector }
}

// WithPublisher sets where cleanup results are published.
func WithPublisher(publisher events.Publisher) Option {
	return func(o *options) {
		if publisher != nil {
			o.publisher = publisher
		}
	}
}

// WithRunTimeout bounds each cleanup run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) { o.runTimeout = d }
}

// Engine deletes detection records older than the retention policy allows.
//
// Engine holds no lock: concurrent runs are safe because deletion is a
// predicate over detectedAt and each record is removed at most once.
type Engine struct {
	records  detection.Storage
	policies *PolicyStore
	opts     options
	logger   *slog.Logger
}

// NewEngine creates a retention engine.
func NewEngine(records detection.Storage, policies *PolicyStore, opts ...Option) *Engine {
	o := newOptions(opts)
	return &Engine{
		records:  records,
		policies: policies,
		opts:     o,
		logger:   o.logger.With("component", "retention.engine"),
	}
}

// RunCleanup runs one cleanup and returns its result. It never panics and
// never returns a bare error: failures are reported in the Result with
// DeletedCount zero and lastRun left untouched.
func (e *Engine) RunCleanup(ctx context.Context, trigger Trigger) (result Result) {
	start := e.opts.clock.Now()
	result = Result{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: start,
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.FromContext(ctx, e.logger).With("trigger", string(trigger))

	if e.opts.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.runTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result.fail(fmt.Errorf("%w: %v", ErrCleanupPanic, r))
		}
		result.DurationMs = e.opts.clock.Since(start).Milliseconds()
		e.observe(ctx, logger, result)
	}()

	policy, err := e.policies.Load(ctx)
	if err != nil {
		result.fail(fmt.Errorf("failed to load retention policy: %w", err))
		return result
	}
	result.RetentionDays = policy.RetentionDays

	if !policy.Enabled {
		result.Skipped = true
		return result
	}

	cutoff := start.AddDate(0, 0, -policy.RetentionDays)
	result.Cutoff = &cutoff

	logger.Debug("deleting records older than cutoff",
		"cutoff", cutoff,
		"retention_days", policy.RetentionDays,
	)

	deleted, err := e.records.Delete(ctx, &detection.Query{DetectedBefore: &cutoff})
	if err != nil {
		result.fail(fmt.Errorf("failed to delete expired records: %w", err))
		return result
	}
	result.DeletedCount = deleted

	if err := e.policies.MarkRun(ctx, e.opts.clock.Now()); err != nil {
		logger.Warn("cleanup succeeded but lastRun could not be saved", "error", err)
		e.opts.metrics.RecordLastRunUpdateFailure()
	}

	return result
}

// observe logs, records metrics for and publishes a finished run.
func (e *Engine) observe(ctx context.Context, logger *slog.Logger, result Result) {
	duration := time.Duration(result.DurationMs) * time.Millisecond
	e.opts.metrics.RecordCleanup(string(result.Trigger), result.outcome(), result.DeletedCount, duration)

	switch result.outcome() {
	case outcomeError:
		logger.Error("retention cleanup failed",
			"error", result.Error,
			"duration_ms", result.DurationMs,
		)
	case outcomeSkipped:
		logger.Info("retention cleanup disabled in configuration")
	default:
		logger.Info("retention cleanup completed",
			"deleted_count", result.DeletedCount,
			"retention_days", result.RetentionDays,
			"cutoff", result.Cutoff,
			"duration_ms", result.DurationMs,
		)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.opts.publisher.Publish(pubCtx, events.SubjectCleanup, result); err != nil {
		logger.Warn("failed to publish cleanup event", "error", err)
	}
}
