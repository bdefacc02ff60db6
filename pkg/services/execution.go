package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/workflow"
	"github.com/google/uuid"
)

// Runner traverses one workflow for one execution.
type Runner interface {
	Run(ctx context.Context, executionID string, wf *models.Workflow, triggerData models.Payload) (models.ExecutionResult, error)
}

// WorkflowValidator rejects definitions that cannot run.
type WorkflowValidator interface {
	Validate(wf *models.Workflow) error
}

// RunResult is the outcome of a coordinated run. ExecutionID is set as soon
// as the execution record exists, also when the run fails.
type RunResult struct {
	ExecutionID string                 `json:"execution_id"`
	Result      models.ExecutionResult `json:"result"`
}

// Execution owns every interaction between a run and the store: it loads the
// definition, records the run and persists its final status.
type Execution struct {
	persistence persistence.Persistence
	runner      Runner
	validator   WorkflowValidator
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	timeout     time.Duration
	now         func() time.Time
	newID       func() string
}

// ExecutionOption configures an Execution service.
type ExecutionOption func(*Execution)

// WithPublisher announces run lifecycle events. Publishing is best-effort.
func WithPublisher(publisher eventbus.EventPublisher) ExecutionOption {
	return func(e *Execution) {
		e.publisher = publisher
	}
}

// WithRunTimeout bounds each run. Zero disables the bound.
func WithRunTimeout(timeout time.Duration) ExecutionOption {
	return func(e *Execution) {
		e.timeout = timeout
	}
}

// WithExecutionClock overrides the clock used for record timestamps.
func WithExecutionClock(now func() time.Time) ExecutionOption {
	return func(e *Execution) {
		e.now = now
	}
}

// WithIDGenerator overrides how execution ids are generated.
func WithIDGenerator(newID func() string) ExecutionOption {
	return func(e *Execution) {
		e.newID = newID
	}
}

// NewExecution creates the run coordinator.
func NewExecution(
	persistence persistence.Persistence,
	runner Runner,
	validator WorkflowValidator,
	logger *slog.Logger,
	opts ...ExecutionOption,
) *Execution {
	e := &Execution{
		persistence: persistence,
		runner:      runner,
		validator:   validator,
		logger:      logger.With("module", "execution_service"),
		now:         time.Now,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes the workflow flowID once with triggerData.
//
// Lookup and validation failures return before any record is written. Once
// the record exists it always reaches a terminal status: completed with the
// full result, or failed with the error and the nodes that completed before it.
func (e *Execution) Run(ctx context.Context, flowID string, triggerData models.Payload) (*RunResult, error) {
	if flowID == "" {
		return nil, NewValidationError("Run", "flow_id_required", "flowId is required", ErrFlowIDRequired)
	}

	if triggerData == nil {
		triggerData = models.Payload{}
	}

	logger := e.logger.With("workflow_id", flowID)

	wf, err := e.persistence.WorkflowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	if err := e.validator.Validate(wf); err != nil {
		logger.WarnContext(ctx, "Rejected invalid workflow", "error", err)

		return nil, err
	}

	if err := validateTriggerData(wf, triggerData); err != nil {
		return nil, err
	}

	record := &models.ExecutionRecord{
		ID:          e.newID(),
		FlowID:      wf.ID,
		Status:      models.ExecutionStatusRunning,
		TriggerData: triggerData,
		Result:      models.ExecutionResult{},
		CreatedAt:   e.now().UTC(),
	}

	if err := e.persistence.ExecutionRepository().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	logger = logger.With("execution_id", record.ID)
	logger.InfoContext(ctx, "Execution started")

	e.publish(ctx, logger, record.ID, events.WorkflowExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowExecutionStartedEvent, wf.ID),
		ExecutionID:  record.ID,
		WorkflowName: wf.Name,
		TriggerData:  triggerData,
	})

	runCtx := ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, runErr := e.runner.Run(runCtx, record.ID, wf, triggerData)

	// The final status is written even when the caller gave up on the run.
	finishCtx := context.WithoutCancel(ctx)

	runResult := &RunResult{ExecutionID: record.ID, Result: result}

	if err := e.finish(finishCtx, logger, wf, record, result, runErr); err != nil {
		return runResult, err
	}

	return runResult, runErr
}

func (e *Execution) finish(
	ctx context.Context,
	logger *slog.Logger,
	wf *models.Workflow,
	record *models.ExecutionRecord,
	result models.ExecutionResult,
	runErr error,
) error {
	completedAt := e.now().UTC()
	duration := completedAt.Sub(record.CreatedAt).Milliseconds()

	record.CompletedAt = &completedAt
	record.Result = result

	if record.Result == nil {
		record.Result = models.ExecutionResult{}
	}

	if runErr != nil {
		record.Status = models.ExecutionStatusFailed
		record.Error = runErr.Error()
	} else {
		record.Status = models.ExecutionStatusCompleted
	}

	if err := e.persistence.ExecutionRepository().Update(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution status", "status", record.Status, "error", err)

		return errors.Join(runErr, fmt.Errorf("failed to update execution record: %w", err))
	}

	if runErr != nil {
		var nodeID string

		var nodeErr *workflow.NodeError
		if errors.As(runErr, &nodeErr) {
			nodeID = nodeErr.NodeID
		}

		logger.ErrorContext(ctx, "Execution failed", "node_id", nodeID, "error", runErr, "duration_ms", duration)

		e.publish(ctx, logger, record.ID, events.WorkflowExecutionFailed{
			BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionFailedEvent, wf.ID),
			ExecutionID:   record.ID,
			DurationMs:    duration,
			NodeID:        nodeID,
			Error:         runErr.Error(),
			NodesExecuted: len(record.Result),
		})

		return nil
	}

	logger.InfoContext(ctx, "Execution completed", "nodes_executed", len(record.Result), "duration_ms", duration)

	e.publish(ctx, logger, record.ID, events.WorkflowExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, wf.ID),
		ExecutionID:   record.ID,
		DurationMs:    duration,
		NodesExecuted: len(record.Result),
		Result:        record.Result,
	})

	return nil
}

func (e *Execution) publish(ctx context.Context, logger *slog.Logger, executionID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, executionID, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish execution event", "event_type", event.GetType(), "error", err)
	}
}

// GetByID returns the record of one run.
func (e *Execution) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	record, err := e.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return record, nil
}

// ListByWorkflow returns the runs of a workflow, newest first.
func (e *Execution) ListByWorkflow(ctx context.Context, flowID string) ([]*models.ExecutionRecord, error) {
	if _, err := e.persistence.WorkflowRepository().GetByID(ctx, flowID); err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	records, err := e.persistence.ExecutionRepository().GetByWorkflow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return records, nil
}

// Logs returns the audit entries of a run in the order they were written.
func (e *Execution) Logs(ctx context.Context, executionID string) ([]*models.ExecutionLogEntry, error) {
	if _, err := e.persistence.ExecutionRepository().GetByID(ctx, executionID); err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	entries, err := e.persistence.ExecutionLogRepository().GetByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution logs: %w", err)
	}

	return entries, nil
}
