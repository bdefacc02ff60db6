// Package events defines the notifications published while workflows run.
package events

import (
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every automation event.
const Topic = "automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"

	// Node state transitions.
	NodeExecutionProcessingEvent EventType = "node.execution.processing"
	NodeExecutionCompletedEvent  EventType = "node.execution.completed"
	NodeExecutionFailedEvent     EventType = "node.execution.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID  string         `json:"execution_id"`
	WorkflowName string         `json:"workflow_name"`
	TriggerData  models.Payload `json:"trigger_data"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID   string                 `json:"execution_id"`
	DurationMs    int64                  `json:"duration_ms"`
	NodesExecuted int                    `json:"nodes_executed"`
	Result        models.ExecutionResult `json:"result"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	DurationMs    int64  `json:"duration_ms"`
	NodeID        string `json:"node_id,omitempty"`
	Error         string `json:"error"`
	NodesExecuted int    `json:"nodes_executed"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

// NodeExecution reports one node state transition. Its type follows the entry status.
type NodeExecution struct {
	BaseEvent

	ExecutionID string               `json:"execution_id"`
	NodeID      string               `json:"node_id"`
	Status      models.NodeLogStatus `json:"status"`
	Data        any                  `json:"data,omitempty"`
}

func (n NodeExecution) GetType() EventType {
	return n.Type
}

// NodeEventType maps a log status to the event announcing it.
func NodeEventType(status models.NodeLogStatus) EventType {
	switch status {
	case models.NodeLogStatusCompleted:
		return NodeExecutionCompletedEvent
	case models.NodeLogStatusError:
		return NodeExecutionFailedEvent
	default:
		return NodeExecutionProcessingEvent
	}
}

// New returns an empty event of the given type, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowExecutionStartedEvent:
		return &WorkflowExecutionStarted{}, true
	case WorkflowExecutionCompletedEvent:
		return &WorkflowExecutionCompleted{}, true
	case WorkflowExecutionFailedEvent:
		return &WorkflowExecutionFailed{}, true
	case NodeExecutionProcessingEvent, NodeExecutionCompletedEvent, NodeExecutionFailedEvent:
		return &NodeExecution{}, true
	default:
		return nil, false
	}
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
