package models

import "time"

// HealthState is the operational state of one component or the aggregate.
type HealthState string

const (
	HealthUp       HealthState = "up"
	HealthDegraded HealthState = "degraded"
	HealthDown     HealthState = "down"
)

// HealthStatus is the last-known state of one component.
type HealthStatus struct {
	Component   string      `json:"component"`
	State       HealthState `json:"state"`
	LastChecked time.Time   `json:"last_checked_at"`
	Detail      string      `json:"detail,omitempty"`
}

// HealthReport aggregates component states. Overall is down when a required
// component is down, degraded when only generation/embedding is impaired.
type HealthReport struct {
	Overall    HealthState    `json:"overall"`
	Components []HealthStatus `json:"components"`
}
