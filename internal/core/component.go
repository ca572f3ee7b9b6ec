package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HealthStatus represents component health states for health reporting.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthError    HealthStatus = "ERROR"
)

// Component is the contract for long-lived parts of the panel that report
// health and expose metrics (state client, MQTT bridge).
type Component interface {
	ID() string
	Collectors() []prometheus.Collector
	Health() HealthStatus
	HealthMessage() string
}
