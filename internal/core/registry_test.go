package core

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type stubComponent struct {
	id            string
	health        HealthStatus
	healthMessage string
	collectors    []prometheus.Collector
}

func (s stubComponent) ID() string { return s.id }

func (s stubComponent) Collectors() []prometheus.Collector { return s.collectors }

func (s stubComponent) Health() HealthStatus { return s.health }

func (s stubComponent) HealthMessage() string { return s.healthMessage }

func newStubComponent(id string) stubComponent {
	return stubComponent{id: id, health: HealthHealthy}
}

func TestHealthReportAllHealthy(t *testing.T) {
	report := HealthReport([]Component{newStubComponent("shadow"), newStubComponent("mqtt_bridge")})

	if report.Status != HealthHealthy {
		t.Fatalf("unexpected overall status: %s", report.Status)
	}
	if len(report.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(report.Components))
	}
	if report.Components[0].ID != "shadow" || report.Components[1].ID != "mqtt_bridge" {
		t.Fatalf("unexpected component order: %+v", report.Components)
	}
}

func TestHealthReportWorstStatusWins(t *testing.T) {
	degraded := newStubComponent("shadow")
	degraded.health = HealthDegraded
	degraded.healthMessage = "poll failed"
	failed := newStubComponent("mqtt_bridge")
	failed.health = HealthError

	report := HealthReport([]Component{degraded, newStubComponent("other")})
	if report.Status != HealthDegraded {
		t.Fatalf("expected DEGRADED, got %s", report.Status)
	}
	if report.Components[0].Message != "poll failed" {
		t.Fatalf("unexpected message: %q", report.Components[0].Message)
	}

	report = HealthReport([]Component{degraded, failed})
	if report.Status != HealthError {
		t.Fatalf("expected ERROR, got %s", report.Status)
	}
}

func TestMetricsRegistry(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "acpanel_test_gauge", Help: "test"})
	component := newStubComponent("shadow")
	component.collectors = []prometheus.Collector{gauge}

	registry := MetricsRegistry([]Component{component})
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "acpanel_test_gauge" {
		t.Fatalf("unexpected metric families: %v", families)
	}
}

func TestValidateComponents(t *testing.T) {
	if err := ValidateComponents([]Component{newStubComponent("shadow")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateComponents([]Component{newStubComponent("shadow"), newStubComponent("shadow")}); err == nil {
		t.Fatalf("expected error for duplicate component")
	}

	if err := ValidateComponents([]Component{newStubComponent("Bad-ID")}); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}
