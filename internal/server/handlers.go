package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshp123/acpanel/internal/core"
)

// HealthHandler reports component health as JSON. The status code is 503
// when any component is in ERROR.
func HealthHandler(components []core.Component) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report := core.HealthReport(components)
		status := http.StatusOK
		if report.Status == core.HealthError {
			status = http.StatusServiceUnavailable
		}
		WriteJSON(w, status, report)
	}
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// WriteJSON writes data with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
