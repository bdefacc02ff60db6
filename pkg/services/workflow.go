package services

import (
	"context"
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// Workflow manages stored workflow definitions. Definitions are validated
// before they are saved, so the store only holds runnable graphs.
type Workflow struct {
	persistence persistence.Persistence
	validator   WorkflowValidator
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, validator WorkflowValidator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchAll returns every stored workflow.
func (w *Workflow) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID returns one workflow.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return workflow, nil
}

// Validate checks a definition without storing it.
func (w *Workflow) Validate(_ context.Context, workflow *models.Workflow) error {
	if workflow == nil {
		return NewValidationError("Validate", "workflow_nil", "", ErrWorkflowNil)
	}

	return w.validator.Validate(workflow)
}

// Save validates and stores a definition, creating or replacing it. A
// missing id is generated. Creation time is kept across replacements.
func (w *Workflow) Save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Save", "workflow_nil", "", ErrWorkflowNil)
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if err := w.validator.Validate(workflow); err != nil {
		return nil, err
	}

	repo := w.persistence.WorkflowRepository()

	existing, err := repo.GetByID(ctx, workflow.ID)

	switch {
	case err == nil:
		workflow.CreatedAt = existing.CreatedAt
	case persistence.IsWorkflowNotFound(err):
	default:
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if err := repo.Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow. Past execution records are kept.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	if err := w.persistence.WorkflowRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}
