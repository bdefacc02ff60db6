package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/conditions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/dispatch"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/executionlog"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/file"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/services"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/testutil"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/web"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	name    string
	actions []string
	err     error
}

func (s *stubService) Service() string {
	return s.name
}

func (s *stubService) Actions() []string {
	return s.actions
}

func (s *stubService) Handle(context.Context, string, models.Payload) (models.Payload, error) {
	if s.err != nil {
		return nil, s.err
	}

	return models.Payload{"success": true, "service": s.name}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	registry := actions.NewRegistry(logger)
	require.NoError(t, registry.Register(&stubService{name: "whatsapp", actions: []string{"sendMessage"}}))
	require.NoError(t, registry.Register(&stubService{name: "email", actions: []string{"send"}, err: errors.New("mailbox full")}))

	evaluator := conditions.NewEvaluator()
	validate := workflow.NewValidator(registry, evaluator)
	engine := workflow.NewEngine(
		dispatch.NewDispatcher(registry, evaluator),
		executionlog.NewStoreLogger(store.ExecutionLogRepository()),
		logger,
	)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(store, validate),
		services.NewExecution(store, engine, validate, logger),
		validator.New(validator.WithRequiredStructEnabled()),
		logger,
	)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	require.NoError(t, store.WorkflowRepository().Save(t.Context(), testutil.VIPRoutingWorkflow()))

	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)

			raw = string(encoded)
		}

		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestAPIHandlers_RunWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		validate       func(t *testing.T, response web.RunResponse)
	}{
		{
			name:           "vip customer routed to whatsapp",
			body:           map[string]any{"flowId": "vip-routing", "triggerData": map[string]any{"value": "vip"}},
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, response web.RunResponse) {
				t.Helper()

				assert.True(t, response.Success)
				assert.NotEmpty(t, response.ExecutionID)
				assert.Contains(t, response.Result, "a1")
				assert.NotContains(t, response.Result, "a2")
				assert.Equal(t, "whatsapp", response.Result["a1"]["service"])
			},
		},
		{
			name:           "failing action",
			body:           map[string]any{"flowId": "vip-routing", "triggerData": map[string]any{"value": "regular"}},
			expectedStatus: http.StatusInternalServerError,
			validate: func(t *testing.T, response web.RunResponse) {
				t.Helper()

				assert.False(t, response.Success)
				assert.Contains(t, response.Error, "mailbox full")
				assert.Contains(t, response.Error, "a2")
				assert.Empty(t, response.Result)
			},
		},
		{
			name:           "unknown workflow",
			body:           map[string]any{"flowId": "missing"},
			expectedStatus: http.StatusNotFound,
			validate: func(t *testing.T, response web.RunResponse) {
				t.Helper()

				assert.False(t, response.Success)
				assert.Contains(t, response.Error, "workflow not found")
			},
		},
		{
			name:           "missing flow id",
			body:           map[string]any{"triggerData": map[string]any{}},
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, response web.RunResponse) {
				t.Helper()

				assert.False(t, response.Success)
				assert.Equal(t, "flowId is required", response.Error)
			},
		},
		{
			name:           "malformed body",
			body:           `{"flowId":`,
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, response web.RunResponse) {
				t.Helper()

				assert.False(t, response.Success)
				assert.NotEmpty(t, response.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, data := doRequest(t, app, http.MethodPost, "/executions", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(data))

			var response web.RunResponse
			require.NoError(t, json.Unmarshal(data, &response))

			tt.validate(t, response)
		})
	}
}

func TestAPIHandlers_ExecuteWorkflowAndInspect(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, data := doRequest(t, app, http.MethodPost, "/workflows/vip-routing/execute",
		map[string]any{"triggerData": map[string]any{"value": "vip"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var run web.RunResponse
	require.NoError(t, json.Unmarshal(data, &run))

	resp, data = doRequest(t, app, http.MethodGet, "/executions/"+run.ExecutionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ExecutionRecord
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	assert.Equal(t, "vip-routing", record.FlowID)

	resp, data = doRequest(t, app, http.MethodGet, "/executions/"+run.ExecutionID+"/logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs struct {
		Logs []models.ExecutionLogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(data, &logs))
	assert.Len(t, logs.Logs, 6)

	resp, data = doRequest(t, app, http.MethodGet, "/workflows/vip-routing/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), run.ExecutionID)
}

func TestAPIHandlers_SaveWorkflow(t *testing.T) {
	t.Parallel()

	wf := testutil.VIPRoutingWorkflow()

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expected       string
	}{
		{
			name:           "valid definition",
			body:           web.SaveWorkflowRequest{Name: "Copy", Nodes: wf.Nodes, Edges: wf.Edges},
			expectedStatus: http.StatusOK,
			expected:       `"name":"Copy"`,
		},
		{
			name:           "missing nodes",
			body:           web.SaveWorkflowRequest{Name: "Empty"},
			expectedStatus: http.StatusBadRequest,
			expected:       "Nodes",
		},
		{
			name: "unsupported action",
			body: web.SaveWorkflowRequest{
				Name:  "Telegram",
				Nodes: []*models.Node{testutil.Trigger("t1", "webhook"), testutil.Action("a1", "telegram", "send")},
				Edges: []*models.Edge{testutil.Edge("t1", "a1")},
			},
			expectedStatus: http.StatusBadRequest,
			expected:       "unsupported service action",
		},
		{
			name:           "unknown node kind",
			body:           `{"name":"x","nodes":[{"id":"n1","kind":"loop"}]}`,
			expectedStatus: http.StatusBadRequest,
			expected:       "unknown node kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, data := doRequest(t, app, http.MethodPut, "/workflows/copy", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(data))
			assert.Contains(t, string(data), tt.expected)
		})
	}
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)

	resp, data := doRequest(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"total_count":1`)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/vip-routing", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data = doRequest(t, app, http.MethodPost, "/workflows/vip-routing/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":true}`, string(data))

	broken := testutil.VIPRoutingWorkflow()
	broken.ID = "broken"
	broken.Nodes[1].Action = "coinFlip"
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), broken))

	resp, data = doRequest(t, app, http.MethodPost, "/workflows/broken/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var validation web.ValidationResponse
	require.NoError(t, json.Unmarshal(data, &validation))
	assert.False(t, validation.Valid)
	require.Len(t, validation.Issues, 1)
	assert.Contains(t, validation.Issues[0], "c1")

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/vip-routing", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doRequest(t, app, http.MethodGet, "/workflows/vip-routing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), "not_found")

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/vip-routing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	for _, path := range []string{"/executions/missing", "/executions/missing/logs", "/workflows/missing/executions"} {
		resp, _ := doRequest(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, data := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"healthy"`)
}
