// Package persistence provides the storage abstraction for workflow definitions, execution records and execution logs.
package persistence

import (
	"context"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// Persistence groups the repositories backing the engine.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ExecutionLogRepository() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. The engine only reads them.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	// GetByID returns ErrWorkflowNotFound when no definition exists.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores one record per run.
type ExecutionRepository interface {
	Create(ctx context.Context, record *models.ExecutionRecord) error
	// Update returns ErrExecutionNotFound when the record was never created.
	Update(ctx context.Context, record *models.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	GetByWorkflow(ctx context.Context, flowID string) ([]*models.ExecutionRecord, error)
}

// ExecutionLogRepository is the append-only per-node audit log.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.ExecutionLogEntry) error
	// GetByExecution returns entries in the order they were appended.
	GetByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLogEntry, error)
}
