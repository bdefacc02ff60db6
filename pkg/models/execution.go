package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionRecord is the persisted history of one run. It is created when a
// run starts and updated once when it ends.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	FlowID      string          `json:"flow_id"`
	Status      ExecutionStatus `json:"status"`
	TriggerData Payload         `json:"trigger_data"`
	Result      ExecutionResult `json:"result"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NodeLogStatus is the state transition recorded for a node.
type NodeLogStatus string

const (
	NodeLogStatusProcessing NodeLogStatus = "processing"
	NodeLogStatusCompleted  NodeLogStatus = "completed"
	NodeLogStatusError      NodeLogStatus = "error"
)

// ExecutionLogEntry is one append-only audit line, written once per node
// state transition.
type ExecutionLogEntry struct {
	ID          string        `json:"id"`
	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id,omitempty"`
	NodeID      string        `json:"node_id"`
	Status      NodeLogStatus `json:"status"`
	Data        any           `json:"data,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
