package shadow

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/acpanel/internal/core"
	"github.com/joshp123/acpanel/internal/transport"
)

type healthState int

const (
	healthIdle healthState = iota
	healthPolling
	healthStale
	healthFailing
)

func (c *Client) recordPoll(err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	if err == nil {
		c.health = healthPolling
		c.healthMessage = ""
		return
	}
	c.healthMessage = err.Error()
	if c.health == healthPolling || c.health == healthStale {
		c.health = healthStale
		return
	}
	c.health = healthFailing
}

// Health is HEALTHY until a poll fails, DEGRADED when a poll fails after an
// earlier success and ERROR when no poll has succeeded yet.
func (c *Client) Health() core.HealthStatus {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	switch c.health {
	case healthStale:
		return core.HealthDegraded
	case healthFailing:
		return core.HealthError
	default:
		return core.HealthHealthy
	}
}

func (c *Client) HealthMessage() string {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	if c.health == healthIdle {
		return "no poll yet"
	}
	return c.healthMessage
}

// Collectors exposes client, state and transport metrics.
func (c *Client) Collectors() []prometheus.Collector {
	collectors := []prometheus.Collector{
		pollsCounter,
		updatesCounter,
		signinsCounter,
		notificationsCounter,
		c.metrics,
	}
	return append(collectors, transport.MetricsCollectors()...)
}

var _ core.Component = (*Client)(nil)
