package core

// ComponentHealth is the health summary of a single component.
type ComponentHealth struct {
	ID      string       `json:"id"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Report is the aggregated health of all components.
type Report struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// HealthReport summarizes components in registration order. The overall
// status is the worst component status.
func HealthReport(components []Component) Report {
	report := Report{Status: HealthHealthy}
	for _, c := range components {
		status := c.Health()
		report.Components = append(report.Components, ComponentHealth{
			ID:      c.ID(),
			Status:  status,
			Message: c.HealthMessage(),
		})
		if severity(status) > severity(report.Status) {
			report.Status = status
		}
	}
	return report
}

func severity(status HealthStatus) int {
	switch status {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}
