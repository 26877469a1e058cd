package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
)

// Stats summarizes stored records against the current policy.
type Stats struct {
	TotalRecords    int64      `json:"totalRecords"`
	OldestRecord    *time.Time `json:"oldestRecord,omitempty"`
	NewestRecord    *time.Time `json:"newestRecord,omitempty"`
	RecordsToDelete int64      `json:"recordsToDelete"`
	RetentionDays   int        `json:"retentionDays"`
	Enabled         bool       `json:"enabled"`
	LastRun         *time.Time `json:"lastRun,omitempty"`
	Cutoff          time.Time  `json:"cutoff"`
}

// Reporter computes retention statistics.
type Reporter struct {
	records  detection.Storage
	policies *PolicyStore
	opts     options
	logger   *slog.Logger
}

// NewReporter creates a stats reporter.
func NewReporter(records detection.Storage, policies *PolicyStore, opts ...Option) *Reporter {
	o := newOptions(opts)
	return &Reporter{
		records:  records,
		policies: policies,
		opts:     o,
		logger:   o.logger.With("component", "retention.stats"),
	}
}

// GetStats returns the current statistics. RecordsToDelete counts records
// older than the cutoff whether or not the policy is enabled. It never
// fails: when the record store is unreachable the counts are zero.
func (r *Reporter) GetStats(ctx context.Context) Stats {
	policy := r.policies.Get(ctx)
	cutoff := r.opts.clock.Now().AddDate(0, 0, -policy.RetentionDays)

	stats := Stats{
		RetentionDays: policy.RetentionDays,
		Enabled:       policy.Enabled,
		LastRun:       policy.LastRun,
		Cutoff:        cutoff,
	}

	counted, err := r.collect(ctx, cutoff)
	if err != nil {
		r.logger.Warn("record store unavailable, reporting empty statistics", "error", err)
	} else {
		stats.TotalRecords = counted.TotalRecords
		stats.OldestRecord = counted.OldestRecord
		stats.NewestRecord = counted.NewestRecord
		stats.RecordsToDelete = counted.RecordsToDelete
	}

	r.opts.metrics.SetRecordCounts(stats.TotalRecords, stats.RecordsToDelete)
	r.opts.metrics.SetPolicy(policy.RetentionDays, policy.Enabled)
	return stats
}

func (r *Reporter) collect(ctx context.Context, cutoff time.Time) (Stats, error) {
	var s Stats

	total, err := r.records.Count(ctx, nil)
	if err != nil {
		return s, err
	}
	oldest, newest, err := r.records.TimeRange(ctx)
	if err != nil {
		return s, err
	}
	eligible, err := r.records.Count(ctx, &detection.Query{DetectedBefore: &cutoff})
	if err != nil {
		return s, err
	}

	s.TotalRecords = total
	s.OldestRecord = oldest
	s.NewestRecord = newest
	s.RecordsToDelete = eligible
	return s, nil
}
