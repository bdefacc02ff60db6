package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/config"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence/file"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"./data":                          "file",
		"file:///var/lib/automation":      "file",
		"postgres://user@localhost/db":    "postgres",
		"postgresql://user@localhost/db":  "postgresql",
		"REDIS://localhost:6379/0":        "redis",
		"mongodb://localhost:27017/flows": "mongodb",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	p, err := NewPersistence(t.Context(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	_, err = NewPersistence(t.Context(), slog.Default(), "mongodb://localhost/flows")
	require.ErrorIs(t, err, ErrUnsupportedPersistence)
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("gochannel", slog.Default(), "automation-test")
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("nats", slog.Default(), "automation-test")
	require.ErrorIs(t, err, ErrUnsupportedEventBus)
}

func TestNewActionRegistry(t *testing.T) {
	t.Parallel()

	registry, err := NewActionRegistry(slog.Default(), &config.Integrations{
		Services: []config.Service{
			{Name: "whatsapp", URL: "https://hooks.example.com/whatsapp", Actions: []string{"sendMessage"}},
			{Name: "email", URL: "https://hooks.example.com/email", Actions: []string{"send"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "log", "whatsapp"}, registry.Services())
	assert.True(t, registry.Supports("log", "info"))
	assert.True(t, registry.Supports("whatsapp", "sendMessage"))

	_, err = NewActionRegistry(slog.Default(), &config.Integrations{
		Services: []config.Service{{Name: "log", URL: "https://hooks.example.com/log", Actions: []string{"info"}}},
	})
	require.Error(t, err)
}

func TestNewRuntime_RunsWorkflow(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	dir := t.TempDir()

	rt, err := NewRuntime(ctx, slog.Default(), RuntimeOptions{
		ServiceName:   "automation-test",
		DatabaseURL:   filepath.Join(dir, "store"),
		EventBus:      "gochannel",
		PublishEvents: true,
		RunTimeout:    5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rt.Close(context.Background())
	})

	received := make(chan events.EventType, 16)

	for _, eventType := range []events.EventType{
		events.WorkflowExecutionStartedEvent,
		events.WorkflowExecutionCompletedEvent,
	} {
		require.NoError(t, rt.EventBus.Handle(eventType, func(_ context.Context, event any) error {
			received <- event.(eventbus.Event).GetType()

			return nil
		}))
	}

	require.NoError(t, rt.EventBus.Subscribe(ctx))

	wf := testutil.CreateTestWorkflow(
		testutil.WithID("audit"),
		testutil.WithNodes(testutil.Trigger("t1", "webhook"), testutil.Action("a1", "log", "info")),
		testutil.WithEdges(testutil.Edge("t1", "a1")),
	)

	_, err = rt.Workflows.Save(ctx, wf)
	require.NoError(t, err)

	out, err := rt.Executions.Run(ctx, "audit", models.Payload{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, true, out.Result["a1"]["success"])

	record, err := rt.Executions.GetByID(ctx, out.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)

	var seen []events.EventType

	for len(seen) < 2 {
		select {
		case eventType := <-received:
			seen = append(seen, eventType)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", seen)
		}
	}

	assert.ElementsMatch(t, []events.EventType{
		events.WorkflowExecutionStartedEvent,
		events.WorkflowExecutionCompletedEvent,
	}, seen)
}
