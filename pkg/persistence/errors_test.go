package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		executionErr := persistence.NewExecutionError("Update", "exec-1", persistence.ErrExecutionNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsExecutionNotFound(executionErr))
		assert.False(t, persistence.IsWorkflowNotFound(executionErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(fmt.Errorf("outer: %w", executionErr), persistence.ErrExecutionNotFound))
	})

	t.Run("errors contain context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Save", "workflow-123", persistence.ErrInvalidID)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "invalid identifier")

		execErr := persistence.NewExecutionError("Create", "exec-9", persistence.ErrExecutionAlreadyExists)
		assert.Contains(t, execErr.Error(), "exec-9")
		assert.Contains(t, execErr.Error(), "execution already exists")
	})
}
