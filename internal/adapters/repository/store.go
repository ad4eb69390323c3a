// Package repository persists the model registry, deployment state and audit trail.
package repository

import (
	"context"

	"github.com/okian/mlgate/internal/domain/model"
)

// Store provides read/write access to the model registry.
type Store interface {
	// Register adds a new, unapproved record. Returns ErrDuplicateRun if the run id exists.
	Register(ctx context.Context, rec model.ModelRecord) error

	// List returns all records in registration order.
	List(ctx context.Context) ([]model.ModelRecord, error)

	// Latest returns the most recently registered record or ErrNotFound.
	Latest(ctx context.Context) (model.ModelRecord, error)

	// Get returns the record for runID or ErrNotFound.
	Get(ctx context.Context, runID string) (model.ModelRecord, error)

	// Approve marks runID as approved for deployment. Returns ErrNotFound for unknown runs.
	Approve(ctx context.Context, runID string) error

	// MarkDeployed makes runID the active deployment.
	// Returns ErrNotFound for unknown runs and ErrNotApproved for unapproved ones.
	MarkDeployed(ctx context.Context, runID string) error

	// Deployed returns the active deployment or ErrNotFound.
	Deployed(ctx context.Context) (model.ModelRecord, error)

	// Count returns the number of registered records.
	Count(ctx context.Context) (int, error)
}

// AuditStore persists governance audit events.
type AuditStore interface {
	AppendAudit(ctx context.Context, ev model.AuditEvent) error

	// ListAudit returns up to limit events, newest first. limit <= 0 means no limit.
	ListAudit(ctx context.Context, limit int) ([]model.AuditEvent, error)
}
