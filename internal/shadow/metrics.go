package shadow

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pollsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpanel_shadow_polls_total",
			Help: "Shadow polls by result (ok, error, skipped)",
		},
		[]string{"result"},
	)
	updatesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpanel_shadow_updates_total",
			Help: "Desired-state updates by result",
		},
		[]string{"result"},
	)
	signinsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acpanel_signins_total",
			Help: "Sign-in attempts by result (ok, rejected, error)",
		},
		[]string{"result"},
	)
	notificationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acpanel_shadow_notifications_total",
		Help: "Subscriber callbacks invoked",
	})
)

// MetricsCollector exports the most recent shadow state as gauges.
type MetricsCollector struct {
	currentTemp   prometheus.Gauge
	setTemp       prometheus.Gauge
	displayTemp   prometheus.Gauge
	enabled       prometheus.Gauge
	heating       prometheus.Gauge
	defaultTemp   prometheus.Gauge
	overrideTemp  prometheus.Gauge
	overrideLeft  prometheus.Gauge
	lastTimestamp prometheus.Gauge
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		currentTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_current_temperature_celsius",
			Help: "Reported current temperature",
		}),
		setTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_setpoint_celsius",
			Help: "Reported set-point the heater is working towards",
		}),
		displayTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_display_temperature_celsius",
			Help: "Reported temperature shown on the unit display",
		}),
		enabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_enabled_bool",
			Help: "Reported enable flag (1=on, 0=off)",
		}),
		heating: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_heating_bool",
			Help: "Reported heat command (1=on, 0=other)",
		}),
		defaultTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_desired_default_celsius",
			Help: "Desired default temperature",
		}),
		overrideTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_desired_override_celsius",
			Help: "Desired override temperature",
		}),
		overrideLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_override_remaining_seconds",
			Help: "Seconds until the override expires (0 when expired)",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acpanel_shadow_timestamp_seconds",
			Help: "Server timestamp of the last state seen (epoch seconds)",
		}),
	}
}

// Observe records a state. States without a document are ignored.
func (c *MetricsCollector) Observe(state State) {
	c.lastTimestamp.Set(float64(state.Timestamp))
	if !state.Loaded() {
		return
	}
	reported := state.Reported()
	desired := state.Desired()

	c.currentTemp.Set(reported.CurrentT)
	c.setTemp.Set(reported.CurrentSetT)
	c.displayTemp.Set(reported.DisplayT)
	c.enabled.Set(boolToFloat(reported.Enable))
	c.heating.Set(boolToFloat(strings.EqualFold(reported.HeatCmd, "on")))
	c.defaultTemp.Set(float64(desired.DefaultT))
	c.overrideTemp.Set(float64(desired.OverrideT))

	left := desired.OverrideEx - state.Timestamp
	if left < 0 {
		left = 0
	}
	c.overrideLeft.Set(float64(left))
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.currentTemp.Describe(ch)
	c.setTemp.Describe(ch)
	c.displayTemp.Describe(ch)
	c.enabled.Describe(ch)
	c.heating.Describe(ch)
	c.defaultTemp.Describe(ch)
	c.overrideTemp.Describe(ch)
	c.overrideLeft.Describe(ch)
	c.lastTimestamp.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.currentTemp.Collect(ch)
	c.setTemp.Collect(ch)
	c.displayTemp.Collect(ch)
	c.enabled.Collect(ch)
	c.heating.Collect(ch)
	c.defaultTemp.Collect(ch)
	c.overrideTemp.Collect(ch)
	c.overrideLeft.Collect(ch)
	c.lastTimestamp.Collect(ch)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
