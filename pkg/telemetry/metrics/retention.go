package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RetentionMetrics tracks data retention cleanups and record volumes.
//
// Metrics:
//   - alpr_retention_runs_total: cleanup runs by trigger and outcome
//   - alpr_retention_deleted_records_total: records removed by cleanups
//   - alpr_retention_run_duration_seconds: cleanup duration histogram
//   - alpr_retention_last_success_timestamp_seconds: end of the last successful run
//   - alpr_retention_last_run_update_failures_total: lastRun writes that failed
//   - alpr_retention_policy_days / alpr_retention_policy_enabled: active policy
//   - alpr_detection_records / alpr_retention_eligible_records: latest stats
type RetentionMetrics struct {
	runsTotal             *prometheus.CounterVec
	deletedTotal          prometheus.Counter
	runDuration           *prometheus.HistogramVec
	lastSuccess           prometheus.Gauge
	lastRunUpdateFailures prometheus.Counter
	policyDays            prometheus.Gauge
	policyEnabled         prometheus.Gauge
	recordsTotal          prometheus.Gauge
	recordsEligible       prometheus.Gauge
}

// NewRetentionMetrics creates and registers retention metrics.
func NewRetentionMetrics(namespace string, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "runs_total",
				Help:      "Total number of retention cleanup runs",
			},
			[]string{"trigger", "outcome"},
		),
		deletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "deleted_records_total",
			Help:      "Total number of detection records deleted by retention",
		}),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "run_duration_seconds",
				Help:      "Duration of retention cleanup runs in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"trigger"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful retention cleanup",
		}),
		lastRunUpdateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "last_run_update_failures_total",
			Help:      "Successful cleanups whose lastRun timestamp could not be saved",
		}),
		policyDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "policy_days",
			Help:      "Configured retention period in days",
		}),
		policyEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "policy_enabled",
			Help:      "1 if automatic retention is enabled",
		}),
		recordsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records",
			Help:      "Detection records currently stored",
		}),
		recordsEligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "eligible_records",
			Help:      "Detection records older than the retention cutoff",
		}),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.deletedTotal,
		rm.runDuration,
		rm.lastSuccess,
		rm.lastRunUpdateFailures,
		rm.policyDays,
		rm.policyEnabled,
		rm.recordsTotal,
		rm.recordsEligible,
	)

	return rm
}

// RecordRun records the outcome of one cleanup run.
func (rm *RetentionMetrics) RecordRun(trigger, outcome string, deleted int64, duration time.Duration) {
	rm.runsTotal.WithLabelValues(trigger, outcome).Inc()
	rm.runDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if deleted > 0 {
		rm.deletedTotal.Add(float64(deleted))
	}
	if outcome == "success" {
		rm.lastSuccess.SetToCurrentTime()
	}
}
