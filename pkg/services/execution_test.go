package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/conditions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/dispatch"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/executionlog"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/mocks"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/file"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/testutil"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type handleFunc func(ctx context.Context, service, action string, payload models.Payload) (models.Payload, error)

func succeed(context.Context, string, string, models.Payload) (models.Payload, error) {
	return models.Payload{"success": true}, nil
}

type fakeService struct {
	name    string
	actions []string
	handle  handleFunc
}

func (s *fakeService) Service() string {
	return s.name
}

func (s *fakeService) Actions() []string {
	return s.actions
}

func (s *fakeService) Handle(ctx context.Context, action string, payload models.Payload) (models.Payload, error) {
	return s.handle(ctx, s.name, action, payload)
}

func newActionRegistry(t *testing.T, handle handleFunc) *actions.Registry {
	t.Helper()

	registry := actions.NewRegistry(slog.Default())
	require.NoError(t, registry.Register(&fakeService{name: "whatsapp", actions: []string{"sendMessage"}, handle: handle}))
	require.NoError(t, registry.Register(&fakeService{name: "email", actions: []string{"send"}, handle: handle}))

	return registry
}

func newCoordinator(
	t *testing.T,
	store persistence.Persistence,
	handle handleFunc,
	opts ...ExecutionOption,
) *Execution {
	t.Helper()

	registry := newActionRegistry(t, handle)
	evaluator := conditions.NewEvaluator()
	logger := slog.Default()

	engine := workflow.NewEngine(
		dispatch.NewDispatcher(registry, evaluator),
		executionlog.NewStoreLogger(store.ExecutionLogRepository()),
		logger,
	)

	opts = append([]ExecutionOption{WithIDGenerator(func() string { return "exec-1" })}, opts...)

	return NewExecution(store, engine, workflow.NewValidator(registry, evaluator), logger, opts...)
}

func saveWorkflow(t *testing.T, store persistence.Persistence, wf *models.Workflow) {
	t.Helper()

	require.NoError(t, store.WorkflowRepository().Save(t.Context(), wf))
}

func TestExecution_Run_Completed(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	saveWorkflow(t, store, testutil.VIPRoutingWorkflow())

	publisher := &mocks.MockEventBus{}
	publisher.On("Publish", mock.Anything, "exec-1", mock.AnythingOfType("events.WorkflowExecutionStarted")).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "exec-1", mock.AnythingOfType("events.WorkflowExecutionCompleted")).Return(nil).Once()

	var delivered []string

	coordinator := newCoordinator(t, store, func(_ context.Context, service, action string, _ models.Payload) (models.Payload, error) {
		delivered = append(delivered, service+"."+action)

		return models.Payload{"success": true}, nil
	}, WithPublisher(publisher))

	out, err := coordinator.Run(t.Context(), "vip-routing", models.Payload{"value": "vip"})
	require.NoError(t, err)

	assert.Equal(t, "exec-1", out.ExecutionID)
	assert.ElementsMatch(t, []string{"t1", "c1", "a1"}, keys(out.Result))
	assert.Equal(t, []string{"whatsapp.sendMessage"}, delivered)

	record, err := coordinator.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	assert.Equal(t, "vip-routing", record.FlowID)
	assert.Equal(t, models.Payload{"value": "vip"}, record.TriggerData)
	assert.Empty(t, record.Error)
	require.NotNil(t, record.CompletedAt)
	assert.Len(t, record.Result, 3)

	entries, err := coordinator.Logs(t.Context(), "exec-1")
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "t1", entries[0].NodeID)
	assert.Equal(t, models.NodeLogStatusProcessing, entries[0].Status)
	assert.Equal(t, "a1", entries[5].NodeID)
	assert.Equal(t, models.NodeLogStatusCompleted, entries[5].Status)

	publisher.AssertExpectations(t)
}

func TestExecution_Run_NodeFailure(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	saveWorkflow(t, store, testutil.VIPRoutingWorkflow())

	publisher := &mocks.MockEventBus{}
	publisher.On("Publish", mock.Anything, "exec-1", mock.AnythingOfType("events.WorkflowExecutionStarted")).Return(nil)
	publisher.On("Publish", mock.Anything, "exec-1", mock.MatchedBy(func(event events.WorkflowExecutionFailed) bool {
		return event.NodeID == "a2" && event.NodesExecuted == 2
	})).Return(nil).Once()

	coordinator := newCoordinator(t, store, func(_ context.Context, service, _ string, _ models.Payload) (models.Payload, error) {
		if service == "email" {
			return nil, errors.New("smtp unavailable")
		}

		return models.Payload{"success": true}, nil
	}, WithPublisher(publisher))

	out, err := coordinator.Run(t.Context(), "vip-routing", models.Payload{"value": "regular"})
	require.Error(t, err)
	assert.True(t, workflow.IsNodeError(err))
	assert.Contains(t, err.Error(), "smtp unavailable")

	require.NotNil(t, out)
	assert.Equal(t, "exec-1", out.ExecutionID)
	assert.ElementsMatch(t, []string{"t1", "c1"}, keys(out.Result))

	record, err := coordinator.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
	assert.Contains(t, record.Error, "smtp unavailable")
	assert.ElementsMatch(t, []string{"t1", "c1"}, keys(record.Result))

	entries, err := coordinator.Logs(t.Context(), "exec-1")
	require.NoError(t, err)

	last := entries[len(entries)-1]
	assert.Equal(t, "a2", last.NodeID)
	assert.Equal(t, models.NodeLogStatusError, last.Status)

	publisher.AssertExpectations(t)
}

func TestExecution_Run_RejectedBeforeRecord(t *testing.T) {
	t.Parallel()

	schemaWorkflow := testutil.CreateTestWorkflow(
		testutil.WithID("schema-flow"),
		testutil.WithNodes(&models.Node{
			ID:     "t1",
			Kind:   models.NodeKindTrigger,
			Action: "webhook",
			Config: map[string]any{
				SchemaConfigKey: map[string]any{
					"type":     "object",
					"required": []any{"value"},
					"properties": map[string]any{
						"value": map[string]any{"type": "string"},
					},
				},
			},
		}),
	)

	unsupported := testutil.VIPRoutingWorkflow()
	unsupported.ID = "unsupported"
	unsupported.Nodes[2].Service = "telegram"

	tests := []struct {
		name        string
		flowID      string
		triggerData models.Payload
		check       func(t *testing.T, err error)
	}{
		{
			name:   "missing flow id",
			flowID: "",
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidationError(err))
				assert.ErrorIs(t, err, ErrFlowIDRequired)
			},
		},
		{
			name:   "unknown workflow",
			flowID: "missing",
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFoundError(err))
			},
		},
		{
			name:   "unsupported action",
			flowID: "unsupported",
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidationError(err))
				assert.ErrorIs(t, err, workflow.ErrUnsupportedAction)
			},
		},
		{
			name:        "trigger data violates schema",
			flowID:      "schema-flow",
			triggerData: models.Payload{"value": 42},
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidationError(err))
				assert.ErrorIs(t, err, ErrTriggerDataInvalid)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := file.NewPersistence(t.TempDir())
			saveWorkflow(t, store, schemaWorkflow)
			saveWorkflow(t, store, unsupported)

			coordinator := newCoordinator(t, store, succeed)

			out, err := coordinator.Run(t.Context(), tt.flowID, tt.triggerData)
			require.Error(t, err)
			assert.Nil(t, out)
			tt.check(t, err)

			_, err = store.ExecutionRepository().GetByID(t.Context(), "exec-1")
			assert.True(t, persistence.IsExecutionNotFound(err))
		})
	}
}

func TestExecution_Run_TriggerSchemaAccepted(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	saveWorkflow(t, store, testutil.CreateTestWorkflow(
		testutil.WithID("schema-flow"),
		testutil.WithNodes(&models.Node{
			ID:     "t1",
			Kind:   models.NodeKindTrigger,
			Action: "webhook",
			Config: map[string]any{
				SchemaConfigKey: map[string]any{"type": "object", "required": []any{"value"}},
			},
		}),
	))

	out, err := newCoordinator(t, store, succeed).Run(t.Context(), "schema-flow", models.Payload{"value": "vip"})
	require.NoError(t, err)
	assert.Equal(t, "webhook", out.Result["t1"]["trigger"])
}

func TestExecution_Run_Timeout(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	saveWorkflow(t, store, testutil.VIPRoutingWorkflow())

	coordinator := newCoordinator(t, store, func(ctx context.Context, _, _ string, _ models.Payload) (models.Payload, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	}, WithRunTimeout(20*time.Millisecond))

	_, err := coordinator.Run(t.Context(), "vip-routing", models.Payload{"value": "vip"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	record, err := coordinator.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
}

func TestExecution_Run_PublishFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	saveWorkflow(t, store, testutil.VIPRoutingWorkflow())

	publisher := &mocks.MockEventBus{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	coordinator := newCoordinator(t, store, succeed, WithPublisher(publisher))

	_, err := coordinator.Run(t.Context(), "vip-routing", models.Payload{"value": "vip"})
	require.NoError(t, err)

	publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestExecution_Run_UpdateFailure(t *testing.T) {
	t.Parallel()

	store := mocks.NewMockPersistence()
	store.GetMockWorkflowRepository().On("GetByID", mock.Anything, "vip-routing").Return(testutil.VIPRoutingWorkflow(), nil)
	store.GetMockExecutionRepository().On("Create", mock.Anything, mock.MatchedBy(func(r *models.ExecutionRecord) bool {
		return r.Status == models.ExecutionStatusRunning
	})).Return(nil)
	store.GetMockExecutionRepository().On("Update", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	store.GetMockExecutionLogRepository().On("Append", mock.Anything, mock.Anything).Return(nil)

	coordinator := newCoordinator(t, store, succeed)

	out, err := coordinator.Run(t.Context(), "vip-routing", models.Payload{"value": "vip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, out)
	assert.Equal(t, "exec-1", out.ExecutionID)
}

func TestExecution_Queries_NotFound(t *testing.T) {
	t.Parallel()

	coordinator := newCoordinator(t, file.NewPersistence(t.TempDir()), succeed)

	_, err := coordinator.GetByID(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))

	_, err = coordinator.Logs(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))

	_, err = coordinator.ListByWorkflow(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))
}

func keys(result models.ExecutionResult) []string {
	out := make([]string, 0, len(result))
	for id := range result {
		out = append(out, id)
	}

	return out
}
