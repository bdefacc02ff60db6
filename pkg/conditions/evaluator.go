// Package conditions evaluates condition nodes against the payload flowing through a run.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// Built-in condition kinds, referenced by a condition node's action.
const (
	KindFilter     = "filter"
	KindErrorCheck = "errorCheck"
)

var (
	// ErrUnknownCondition is returned for condition kinds with no registered
	// implementation. It is a configuration error, never a random outcome.
	ErrUnknownCondition = errors.New("unknown condition kind")

	// ErrInvalidConditionConfig is returned when a condition node is misconfigured.
	ErrInvalidConditionConfig = errors.New("invalid condition configuration")
)

// Func decides a condition. The details map is merged into the node outcome.
type Func func(ctx context.Context, node *models.Node, payload models.Payload) (bool, map[string]any, error)

// Evaluator dispatches condition nodes to the registered condition kinds.
type Evaluator struct {
	kinds map[string]Func
}

// NewEvaluator returns an evaluator with the built-in kinds registered.
func NewEvaluator() *Evaluator {
	e := &Evaluator{kinds: make(map[string]Func)}

	e.Register(KindFilter, Filter)
	e.Register(KindErrorCheck, ErrorCheck)

	return e
}

// Register adds or replaces a condition kind.
func (e *Evaluator) Register(kind string, fn Func) {
	e.kinds[kind] = fn
}

// Supports reports whether kind has an implementation.
func (e *Evaluator) Supports(kind string) bool {
	_, ok := e.kinds[kind]

	return ok
}

// Kinds returns the registered kinds sorted by name.
func (e *Evaluator) Kinds() []string {
	kinds := make([]string, 0, len(e.kinds))
	for kind := range e.kinds {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// Evaluate runs the condition named by node.Action and returns
// {success: true, result: <bool>, ...details}.
func (e *Evaluator) Evaluate(ctx context.Context, node *models.Node, payload models.Payload) (models.Payload, error) {
	fn, ok := e.kinds[node.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, node.Action)
	}

	result, details, err := fn(ctx, node, payload)
	if err != nil {
		return nil, err
	}

	outcome := make(models.Payload, len(details)+3)
	for k, v := range details {
		outcome[k] = v
	}

	outcome["condition"] = node.Action
	outcome["success"] = true
	outcome["result"] = result

	return outcome, nil
}
