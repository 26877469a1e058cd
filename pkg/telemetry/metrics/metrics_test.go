package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Path:      "/metrics",
	}
}

// TestCollector_RecordCleanup tests retention run accounting.
func TestCollector_RecordCleanup(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCleanup("scheduled", "success", 5, 200*time.Millisecond)
	collector.RecordCleanup("manual", "success", 0, 10*time.Millisecond)
	collector.RecordCleanup("manual", "error", 0, 5*time.Millisecond)

	rm := collector.retentionMetrics
	if got := testutil.ToFloat64(rm.runsTotal.WithLabelValues("scheduled", "success")); got != 1 {
		t.Errorf("scheduled/success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.runsTotal.WithLabelValues("manual", "error")); got != 1 {
		t.Errorf("manual/error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.deletedTotal); got != 5 {
		t.Errorf("deleted total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(rm.lastSuccess); got == 0 {
		t.Error("last success timestamp not set")
	}
	if got := testutil.CollectAndCount(rm.runDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

// TestCollector_Gauges tests the policy and record count gauges.
func TestCollector_Gauges(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetPolicy(30, false)
	collector.SetRecordCounts(120, 7)
	collector.RecordLastRunUpdateFailure()

	rm := collector.retentionMetrics
	if got := testutil.ToFloat64(rm.policyDays); got != 30 {
		t.Errorf("policy days = %v, want 30", got)
	}
	if got := testutil.ToFloat64(rm.policyEnabled); got != 0 {
		t.Errorf("policy enabled = %v, want 0", got)
	}
	if got := testutil.ToFloat64(rm.recordsTotal); got != 120 {
		t.Errorf("records = %v, want 120", got)
	}
	if got := testutil.ToFloat64(rm.recordsEligible); got != 7 {
		t.Errorf("eligible = %v, want 7", got)
	}
	if got := testutil.ToFloat64(rm.lastRunUpdateFailures); got != 1 {
		t.Errorf("lastRun failures = %v, want 1", got)
	}
}

// TestCollector_HTTPAndIngest tests request and ingest counters.
func TestCollector_HTTPAndIngest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordHTTPRequest("GET", "/api/retention/stats", 200, 3*time.Millisecond)
	collector.RecordHTTPRequest("GET", "/api/retention/stats", 200, 4*time.Millisecond)
	collector.RecordDetection("OK")
	collector.RecordDetection("MANUAL_REVIEW")
	collector.RecordRejectedPayload()

	if got := testutil.ToFloat64(collector.httpMetrics.requestsTotal.WithLabelValues("GET", "/api/retention/stats", "200")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.ingestMetrics.detectionsTotal.WithLabelValues("OK")); got != 1 {
		t.Errorf("OK detections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ingestMetrics.rejectedPayloads); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

// TestCollector_Disabled tests that a disabled or nil collector is inert.
func TestCollector_Disabled(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(&config.MetricsConfig{Enabled: false}, registry)

	collector.RecordCleanup("manual", "success", 3, time.Millisecond)
	collector.SetRecordCounts(1, 1)
	collector.RecordHTTPRequest("GET", "/", 200, time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("disabled collector registered %d metric families", len(families))
	}
	if collector.Enabled() {
		t.Error("Enabled() = true for a disabled collector")
	}

	var nilCollector *Collector
	nilCollector.RecordCleanup("manual", "success", 1, time.Millisecond)
	nilCollector.SetPolicy(90, true)
	if nilCollector.Enabled() {
		t.Error("nil collector should not be enabled")
	}
	if nilCollector.Registry() != nil {
		t.Error("nil collector should have no registry")
	}
}

// TestCollector_Handler tests the exposition endpoint.
func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordCleanup("startup", "success", 2, time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `test_retention_runs_total{outcome="success",trigger="startup"} 1`) {
		t.Errorf("exposition missing runs_total sample:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("exposition missing Go runtime metrics")
	}
}
