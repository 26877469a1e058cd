package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks API requests.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(namespace string, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)
	return hm
}

// IngestMetrics tracks detections recorded from vision responses.
type IngestMetrics struct {
	detectionsTotal  *prometheus.CounterVec
	rejectedPayloads prometheus.Counter
}

// NewIngestMetrics creates and registers ingest metrics.
func NewIngestMetrics(namespace string, registry *prometheus.Registry) *IngestMetrics {
	im := &IngestMetrics{
		detectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detection",
				Name:      "ingested_total",
				Help:      "Detections recorded, by status",
			},
			[]string{"status"},
		),
		rejectedPayloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "rejected_payloads_total",
			Help:      "Vision responses rejected by schema validation",
		}),
	}

	registry.MustRegister(im.detectionsTotal, im.rejectedPayloads)
	return im
}
