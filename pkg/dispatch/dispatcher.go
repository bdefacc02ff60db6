// Package dispatch executes a single workflow node according to its kind.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/protocol"
)

var (
	// ErrMalformedActionResult is returned when an action result has no boolean "success" field.
	ErrMalformedActionResult = errors.New("action result must contain a boolean success field")

	// ErrMalformedConditionResult is returned when a condition outcome has no boolean "result" field.
	ErrMalformedConditionResult = errors.New("condition result must contain a boolean result field")

	// ErrUnsupportedNodeKind is returned for kinds outside the closed set.
	ErrUnsupportedNodeKind = errors.New("unsupported node kind")
)

// Dispatcher produces a node's outcome from its input payload. It never
// mutates the input; side effects are delegated to the action dispatcher.
type Dispatcher struct {
	actions    protocol.ActionDispatcher
	conditions protocol.ConditionEvaluator
}

// NewDispatcher creates a node dispatcher.
func NewDispatcher(actions protocol.ActionDispatcher, conditions protocol.ConditionEvaluator) *Dispatcher {
	return &Dispatcher{
		actions:    actions,
		conditions: conditions,
	}
}

// Execute runs node with input and returns its outcome.
func (d *Dispatcher) Execute(ctx context.Context, node *models.Node, input models.Payload) (models.Payload, error) {
	switch node.Kind {
	case models.NodeKindTrigger:
		return d.executeTrigger(node, input), nil
	case models.NodeKindAction:
		return d.executeAction(ctx, node, input)
	case models.NodeKindCondition:
		return d.executeCondition(ctx, node, input)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNodeKind, string(node.Kind))
	}
}

// executeTrigger returns a copy of the trigger data marked with the trigger that fired.
func (d *Dispatcher) executeTrigger(node *models.Node, input models.Payload) models.Payload {
	outcome := make(models.Payload, len(input)+1)
	for k, v := range input {
		outcome[k] = v
	}

	outcome["trigger"] = node.Action

	return outcome
}

func (d *Dispatcher) executeAction(ctx context.Context, node *models.Node, input models.Payload) (models.Payload, error) {
	result, err := d.actions.Dispatch(ctx, node.Service, node.Action, copyPayload(input))
	if err != nil {
		return nil, err
	}

	if _, ok := result["success"].(bool); !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrMalformedActionResult, node.Service, node.Action)
	}

	return result, nil
}

func (d *Dispatcher) executeCondition(ctx context.Context, node *models.Node, input models.Payload) (models.Payload, error) {
	result, err := d.conditions.Evaluate(ctx, node, copyPayload(input))
	if err != nil {
		return nil, err
	}

	if _, ok := result["result"].(bool); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMalformedConditionResult, node.Action)
	}

	if _, ok := result["success"]; !ok {
		result["success"] = true
	}

	return result, nil
}

// copyPayload shields the caller's payload from collaborators that write to it.
func copyPayload(input models.Payload) models.Payload {
	out := make(models.Payload, len(input))
	for k, v := range input {
		out[k] = v
	}

	return out
}
