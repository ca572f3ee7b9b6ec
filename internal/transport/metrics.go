package transport

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpanel_backend_requests_total",
			Help: "Backend HTTP requests by method, path and status code",
		},
		[]string{"provider", "method", "path", "code"},
	)
	durationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acpanel_backend_request_duration_seconds",
			Help:    "Backend HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method", "path"},
	)
	lastStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acpanel_backend_last_status_code",
			Help: "Last HTTP status code observed from the backend",
		},
		[]string{"provider"},
	)
)

// MetricsCollectors exposes shared transport collectors.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		requestsCounter,
		durationHistogram,
		lastStatusGauge,
	}
}
