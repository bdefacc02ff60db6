package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/cmd"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	return setupTestAppAt(t, t.TempDir())
}

func setupTestAppAt(t *testing.T, root string) *fiber.App {
	t.Helper()

	rt, err := cmd.NewRuntime(context.Background(), slog.Default(), cmd.RuntimeOptions{
		ServiceName: "automation-api-test",
		DatabaseURL: root,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rt.Close(context.Background())
	})

	return NewAPI(slog.Default(), rt.Workflows, rt.Executions).App()
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Logf("Failed to close response body: %v", err)
	}
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Automation API", string(body))
}

func TestAPI_Probes(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		closeBody(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAPI_SaveAndRunWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	definition := `{
		"name": "Audit",
		"nodes": [
			{"id": "t1", "kind": "trigger", "action": "webhook"},
			{"id": "a1", "kind": "action", "service": "log", "action": "info"}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "a1"}]
	}`

	req := httptest.NewRequest(http.MethodPut, "/workflows/audit", strings.NewReader(definition))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	closeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/executions",
		strings.NewReader(`{"flowId": "audit", "triggerData": {"value": "vip"}}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success     bool                      `json:"success"`
		ExecutionID string                    `json:"execution_id"`
		Result      map[string]map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.True(t, body.Success)
	assert.NotEmpty(t, body.ExecutionID)
	assert.Equal(t, "vip", body.Result["t1"]["value"])
	assert.Equal(t, true, body.Result["a1"]["success"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/executions/"+body.ExecutionID+"/logs", nil))
	require.NoError(t, err)
	closeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RunHandAuthoredWorkflowWithNullNode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workflows"), 0o755))

	definition := `id: broken
name: Broken
nodes:
  - id: t1
    kind: trigger
    action: webhook
  -
edges: []
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "workflows", "broken.yaml"), []byte(definition), 0o600))

	app := setupTestAppAt(t, root)

	req := httptest.NewRequest(http.MethodPost, "/executions", strings.NewReader(`{"flowId": "broken"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)
	closeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
