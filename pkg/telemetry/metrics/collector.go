package metrics

import (
	"strconv"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the Prometheus registry and every metric the service
// exports. A nil *Collector, or one built from a disabled config, accepts
// all calls and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	retentionMetrics *RetentionMetrics
	httpMetrics      *HTTPMetrics
	ingestMetrics    *IngestMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh one is created, so tests never collide on the
// global default registry.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "alpr"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	if !cfg.Enabled {
		return c
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.retentionMetrics = NewRetentionMetrics(cfg.Namespace, registry)
	c.httpMetrics = NewHTTPMetrics(cfg.Namespace, registry)
	c.ingestMetrics = NewIngestMetrics(cfg.Namespace, registry)

	return c
}

// Enabled reports whether metrics are collected and served.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordCleanup records one retention cleanup run.
//
// Parameters:
//   - trigger: "startup", "scheduled" or "manual"
//   - outcome: "success", "skipped" or "error"
//   - deleted: records removed by the run
//   - duration: wall time of the run
func (c *Collector) RecordCleanup(trigger, outcome string, deleted int64, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.retentionMetrics.RecordRun(trigger, outcome, deleted, duration)
}

// RecordLastRunUpdateFailure counts a successful cleanup whose lastRun
// timestamp could not be saved.
func (c *Collector) RecordLastRunUpdateFailure() {
	if !c.Enabled() {
		return
	}
	c.retentionMetrics.lastRunUpdateFailures.Inc()
}

// SetRecordCounts publishes the latest record totals observed by the stats
// reporter.
func (c *Collector) SetRecordCounts(total, eligible int64) {
	if !c.Enabled() {
		return
	}
	c.retentionMetrics.recordsTotal.Set(float64(total))
	c.retentionMetrics.recordsEligible.Set(float64(eligible))
}

// SetPolicy publishes the active retention policy.
func (c *Collector) SetPolicy(retentionDays int, enabled bool) {
	if !c.Enabled() {
		return
	}
	c.retentionMetrics.policyDays.Set(float64(retentionDays))
	if enabled {
		c.retentionMetrics.policyEnabled.Set(1)
	} else {
		c.retentionMetrics.policyEnabled.Set(0)
	}
}

// RecordHTTPRequest records a completed API request. route is the router
// pattern (e.g. "/api/detections/:id"), never the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.httpMetrics.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpMetrics.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDetection counts a stored detection by status.
func (c *Collector) RecordDetection(status string) {
	if !c.Enabled() {
		return
	}
	c.ingestMetrics.detectionsTotal.WithLabelValues(status).Inc()
}

// RecordRejectedPayload counts a vision payload that failed validation.
func (c *Collector) RecordRejectedPayload() {
	if !c.Enabled() {
		return
	}
	c.ingestMetrics.rejectedPayloads.Inc()
}
