package protocol

import (
	"context"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// ConditionEvaluator evaluates a condition node against the current payload.
// The returned payload must carry a boolean "result", the only signal the
// router branches on.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, node *models.Node, payload models.Payload) (models.Payload, error)

	// Supports reports whether the condition kind named by a node's action is known.
	Supports(kind string) bool
}

// ExecutionLogger receives one entry per node state transition.
// Failures are reported to the caller but never abort a run.
type ExecutionLogger interface {
	LogNode(ctx context.Context, entry models.ExecutionLogEntry) error
}

// ExecutionLoggerFunc adapts a function to ExecutionLogger.
type ExecutionLoggerFunc func(ctx context.Context, entry models.ExecutionLogEntry) error

func (f ExecutionLoggerFunc) LogNode(ctx context.Context, entry models.ExecutionLogEntry) error {
	return f(ctx, entry)
}
