// Package model contains domain models passed between layers.
package model

import "time"

// ModelRecord is one trained model run tracked by the registry.
type ModelRecord struct {
	RunID     string             `json:"run_id"`
	Path      string             `json:"path"`
	Metrics   map[string]float64 `json:"metrics"`
	Signature string             `json:"signature"`
	Metadata  map[string]string  `json:"metadata"`
	Approved  bool               `json:"approved"`
	CreatedAt time.Time          `json:"created_at"`
}

// AuditEvent is a governance trail entry (registry changes, deployments, drift alerts).
type AuditEvent struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Action   string    `json:"action"`
	Details  string    `json:"details"`
	At       time.Time `json:"at"`
}

// DashboardState is the aggregate view served at GET /dashboard.
type DashboardState struct {
	Registry      []ModelRecord  `json:"registry"`
	LatestMetrics map[string]any `json:"latest_metrics"`
	DriftScore    float64        `json:"drift_score"`
	Approvals     []string       `json:"approvals"`
	DeployedRunID *string        `json:"deployed_run_id"`
}
