// Package executionlog provides the audit sinks the engine writes node state transitions to.
package executionlog

import (
	"context"
	"errors"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/protocol"
)

// StoreLogger appends entries to the execution log repository.
type StoreLogger struct {
	repository persistence.ExecutionLogRepository
}

func NewStoreLogger(repository persistence.ExecutionLogRepository) *StoreLogger {
	return &StoreLogger{repository: repository}
}

func (l *StoreLogger) LogNode(ctx context.Context, entry models.ExecutionLogEntry) error {
	return l.repository.Append(ctx, &entry)
}

// EventLogger announces each entry as a node.execution.* event keyed by execution id.
type EventLogger struct {
	publisher eventbus.EventPublisher
}

func NewEventLogger(publisher eventbus.EventPublisher) *EventLogger {
	return &EventLogger{publisher: publisher}
}

func (l *EventLogger) LogNode(ctx context.Context, entry models.ExecutionLogEntry) error {
	base := events.NewBaseEvent(events.NodeEventType(entry.Status), entry.WorkflowID)
	base.Timestamp = entry.Timestamp

	return l.publisher.Publish(ctx, entry.ExecutionID, events.NodeExecution{
		BaseEvent:   base,
		ExecutionID: entry.ExecutionID,
		NodeID:      entry.NodeID,
		Status:      entry.Status,
		Data:        entry.Data,
	})
}

// Multi writes every entry to all loggers in order. A failing logger does not
// stop the others; their errors are joined.
type Multi []protocol.ExecutionLogger

func (m Multi) LogNode(ctx context.Context, entry models.ExecutionLogEntry) error {
	var errs []error

	for _, logger := range m {
		if err := logger.LogNode(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NopLogger discards every entry.
type NopLogger struct{}

func (NopLogger) LogNode(context.Context, models.ExecutionLogEntry) error {
	return nil
}
