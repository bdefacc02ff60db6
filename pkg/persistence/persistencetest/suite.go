// Package persistencetest holds the behaviour every persistence backend must share.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises p against the repository contracts. p must start empty.
func Run(t *testing.T, p persistence.Persistence) {
	t.Helper()

	t.Run("workflows", func(t *testing.T) { testWorkflows(t, p) })
	t.Run("executions", func(t *testing.T) { testExecutions(t, p) })
	t.Run("execution logs", func(t *testing.T) { testExecutionLogs(t, p) })
	t.Run("health", func(t *testing.T) {
		require.NoError(t, p.HealthCheck(t.Context()))
	})
}

func testWorkflows(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.WorkflowRepository()

	_, err := repo.GetByID(ctx, "vip-routing")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	workflow := testutil.VIPRoutingWorkflow()
	require.NoError(t, repo.Save(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	loaded, err := repo.GetByID(ctx, "vip-routing")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 4)
	require.Len(t, loaded.Edges, 3)
	assert.Equal(t, models.NodeKindCondition, loaded.Nodes[1].Kind)
	assert.Equal(t, "equals", loaded.Nodes[1].ConfigString("condition"))
	assert.Equal(t, models.HandleTrue, loaded.Edges[1].SourceHandle)

	createdAt := loaded.CreatedAt
	loaded.Name = "VIP routing v2"
	require.NoError(t, repo.Save(ctx, loaded))

	updated, err := repo.GetByID(ctx, "vip-routing")
	require.NoError(t, err)
	assert.Equal(t, "VIP routing v2", updated.Name)
	assert.WithinDuration(t, createdAt, updated.CreatedAt, time.Millisecond)

	other := testutil.CreateTestWorkflow(testutil.WithID("another"))
	require.NoError(t, repo.Save(ctx, other))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "another"))
	require.ErrorIs(t, repo.Delete(ctx, "another"), persistence.ErrWorkflowNotFound)

	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testExecutions(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.ExecutionRepository()

	_, err := repo.GetByID(ctx, "missing-run")
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	record := &models.ExecutionRecord{
		ID:          "run-1",
		FlowID:      "vip-routing",
		Status:      models.ExecutionStatusRunning,
		TriggerData: models.Payload{"value": "vip"},
		CreatedAt:   started,
	}

	require.NoError(t, repo.Create(ctx, record))
	require.ErrorIs(t, repo.Create(ctx, record), persistence.ErrExecutionAlreadyExists)

	completed := started.Add(2 * time.Second)
	record.Status = models.ExecutionStatusCompleted
	record.Result = models.ExecutionResult{"t1": {"trigger": "webhook", "value": "vip"}}
	record.CompletedAt = &completed
	require.NoError(t, repo.Update(ctx, record))

	loaded, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.Equal(t, "vip", loaded.TriggerData["value"])
	assert.Equal(t, "webhook", loaded.Result["t1"]["trigger"])
	require.NotNil(t, loaded.CompletedAt)
	assert.WithinDuration(t, completed, *loaded.CompletedAt, time.Millisecond)

	require.ErrorIs(t, repo.Update(ctx, &models.ExecutionRecord{ID: "never-created", FlowID: "x"}), persistence.ErrExecutionNotFound)

	second := &models.ExecutionRecord{
		ID:        "run-2",
		FlowID:    "vip-routing",
		Status:    models.ExecutionStatusRunning,
		CreatedAt: started.Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, &models.ExecutionRecord{ID: "run-3", FlowID: "other", Status: models.ExecutionStatusRunning, CreatedAt: started}))

	runs, err := repo.GetByWorkflow(ctx, "vip-routing")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	none, err := repo.GetByWorkflow(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testExecutionLogs(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.ExecutionLogRepository()

	empty, err := repo.GetByExecution(ctx, "log-run")
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	statuses := []models.NodeLogStatus{
		models.NodeLogStatusProcessing,
		models.NodeLogStatusCompleted,
		models.NodeLogStatusProcessing,
		models.NodeLogStatusError,
	}
	nodes := []string{"t1", "t1", "a1", "a1"}

	for i, status := range statuses {
		require.NoError(t, repo.Append(ctx, &models.ExecutionLogEntry{
			ID:          testutil.EntryID(i),
			ExecutionID: "log-run",
			WorkflowID:  "vip-routing",
			NodeID:      nodes[i],
			Status:      status,
			Data:        map[string]any{"step": float64(i)},
			Timestamp:   base,
		}))
	}

	entries, err := repo.GetByExecution(ctx, "log-run")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i, entry := range entries {
		assert.Equal(t, nodes[i], entry.NodeID)
		assert.Equal(t, statuses[i], entry.Status)
		assert.Equal(t, map[string]any{"step": float64(i)}, entry.Data)
	}
}
