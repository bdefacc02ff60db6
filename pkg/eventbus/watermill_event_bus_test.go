package eventbus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/channels/gochannel"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	received := make(chan *events.WorkflowExecutionFailed, 1)

	require.NoError(t, bus.Handle(events.WorkflowExecutionFailedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowExecutionFailed)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	err := bus.Publish(ctx, "wf-1", events.WorkflowExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent, "wf-1"),
		ExecutionID: "exec-1",
		NodeID:      "a1",
		Error:       "boom",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "a1", event.NodeID)
		assert.Equal(t, "wf-1", event.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_NodeEventsDecodeByType(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	received := make(chan *events.NodeExecution, 1)

	require.NoError(t, bus.Handle(events.NodeExecutionCompletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.NodeExecution)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "exec-1", events.NodeExecution{
		BaseEvent:   events.NewBaseEvent(events.NodeExecutionProcessingEvent, "wf-1"),
		ExecutionID: "exec-1",
		NodeID:      "t1",
	}))
	require.NoError(t, bus.Publish(ctx, "exec-1", events.NodeExecution{
		BaseEvent:   events.NewBaseEvent(events.NodeExecutionCompletedEvent, "wf-1"),
		ExecutionID: "exec-1",
		NodeID:      "t1",
		Data:        map[string]any{"trigger": "webhook"},
	}))

	select {
	case event := <-received:
		assert.Equal(t, events.NodeExecutionCompletedEvent, event.GetType())
		assert.Equal(t, "t1", event.NodeID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_HandleTwice(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	noop := func(context.Context, any) error { return nil }

	require.NoError(t, bus.Handle(events.WorkflowExecutionStartedEvent, noop))
	require.ErrorIs(t, bus.Handle(events.WorkflowExecutionStartedEvent, noop), eventbus.ErrHandlerAlreadyRegistered)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
