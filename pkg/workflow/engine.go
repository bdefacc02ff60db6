// Package workflow traverses an automation graph from its trigger nodes and
// validates definitions against the registered actions and conditions.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/otelhelper"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/protocol"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/routing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NodeExecutor produces the outcome of a single node.
type NodeExecutor interface {
	Execute(ctx context.Context, node *models.Node, input models.Payload) (models.Payload, error)
}

// Engine runs workflows depth-first, one node at a time.
type Engine struct {
	executor NodeExecutor
	execLog  protocol.ExecutionLogger
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer sets the tracer used for run and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithClock overrides the clock used to timestamp log entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a traversal engine.
func NewEngine(executor NodeExecutor, execLog protocol.ExecutionLogger, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		executor: executor,
		execLog:  execLog,
		tracer:   otel.Tracer("workflow"),
		logger:   logger.With("module", "workflow_engine"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// frame is one pending visit on the work-list.
type frame struct {
	nodeID string
	input  models.Payload
}

// run holds the state of a single execution. It is never shared between runs.
type run struct {
	executionID string
	workflow    *models.Workflow
	nodes       map[string]*models.Node
	outgoing    map[string][]*models.Edge
	visited     map[string]struct{}
	result      models.ExecutionResult
	logger      *slog.Logger
}

// Run executes wf for one trigger invocation and returns the outcome of every
// visited node. Each node is processed at most once per run, so cyclic graphs
// terminate and reconverging branches do not repeat side effects.
//
// The first node error aborts the run. The partial result is returned together
// with a *NodeError so callers can persist what completed.
func (e *Engine) Run(ctx context.Context, executionID string, wf *models.Workflow, triggerData models.Payload) (models.ExecutionResult, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
	)
	defer span.End()

	r := &run{
		executionID: executionID,
		workflow:    wf,
		nodes:       make(map[string]*models.Node, len(wf.Nodes)),
		outgoing:    wf.OutgoingEdges(),
		visited:     make(map[string]struct{}, len(wf.Nodes)),
		result:      make(models.ExecutionResult, len(wf.Nodes)),
		logger:      e.logger.With("execution_id", executionID, "workflow_id", wf.ID),
	}

	for _, node := range wf.Nodes {
		r.nodes[node.ID] = node
	}

	r.logger.InfoContext(ctx, "Starting workflow run")

	for _, trigger := range wf.TriggerNodes() {
		if err := e.traverse(ctx, r, trigger.ID, triggerData); err != nil {
			otelhelper.SetError(span, err)
			r.logger.ErrorContext(ctx, "Workflow run failed", "error", err, "visited_nodes", len(r.visited))

			return r.result, err
		}
	}

	span.SetAttributes(attribute.Int(otelhelper.VisitedNodesKey, len(r.visited)))
	r.logger.InfoContext(ctx, "Workflow run completed", "visited_nodes", len(r.visited))

	return r.result, nil
}

// traverse walks the graph reachable from start with an explicit stack.
// Children are pushed in reverse edge order so they pop in edge order, which
// visits nodes in the same order as a recursive depth-first walk.
func (e *Engine) traverse(ctx context.Context, r *run, start string, input models.Payload) error {
	stack := []frame{{nodeID: start, input: input}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := r.visited[current.nodeID]; seen {
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before node %s: %w", current.nodeID, err)
		}

		node, ok := r.nodes[current.nodeID]
		if !ok {
			return &NodeError{NodeID: current.nodeID, Err: ErrNodeNotFound}
		}

		outcome, err := e.process(ctx, r, node, current.input)
		if err != nil {
			return err
		}

		next := routing.NextEdges(node, r.outgoing[node.ID], outcome)
		for _, edge := range slices.Backward(next) {
			stack = append(stack, frame{nodeID: edge.Target, input: outcome})
		}
	}

	return nil
}

// process moves a node from processing to completed or errored.
func (e *Engine) process(ctx context.Context, r *run, node *models.Node, input models.Payload) (models.Payload, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.ExecutionIDKey, r.executionID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, node.Kind.String()),
		attribute.String(otelhelper.ServiceKey, node.Service),
		attribute.String(otelhelper.ActionKey, node.Action),
	)
	defer span.End()

	logger := r.logger.With("node_id", node.ID, "node_kind", node.Kind)

	e.logNode(ctx, span, logger, r, node, models.NodeLogStatusProcessing, input)

	outcome, err := e.executor.Execute(ctx, node, input)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Node failed", "error", err)
		e.logNode(ctx, span, logger, r, node, models.NodeLogStatusError, models.Payload{"error": err.Error()})

		return nil, &NodeError{NodeID: node.ID, Kind: node.Kind, Err: err}
	}

	r.visited[node.ID] = struct{}{}
	r.result[node.ID] = outcome

	e.logNode(ctx, span, logger, r, node, models.NodeLogStatusCompleted, outcome)
	logger.DebugContext(ctx, "Node completed")

	return outcome, nil
}

// logNode writes an audit entry. A failed write is reported but never aborts the run.
func (e *Engine) logNode(
	ctx context.Context,
	span trace.Span,
	logger *slog.Logger,
	r *run,
	node *models.Node,
	status models.NodeLogStatus,
	data models.Payload,
) {
	entry := models.ExecutionLogEntry{
		ID:          uuid.NewString(),
		ExecutionID: r.executionID,
		WorkflowID:  r.workflow.ID,
		NodeID:      node.ID,
		Status:      status,
		Data:        data,
		Timestamp:   e.now().UTC(),
	}

	if err := e.execLog.LogNode(ctx, entry); err != nil {
		logger.WarnContext(ctx, "Failed to write execution log entry", "status", status, "error", err)
		span.AddEvent("execution_log_failed", trace.WithAttributes(
			attribute.String("status", string(status)),
			attribute.String("error", err.Error()),
		))
	}
}
