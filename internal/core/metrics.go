package core

import "github.com/prometheus/client_golang/prometheus"

// MetricsRegistry builds a registry from component collectors.
func MetricsRegistry(components []Component) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	for _, component := range components {
		for _, collector := range component.Collectors() {
			registry.MustRegister(collector)
		}
	}

	return registry
}
