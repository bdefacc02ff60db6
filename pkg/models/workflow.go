package models

import (
	"errors"
	"fmt"
	"time"
)

// Workflow is a user-authored graph of trigger, action and condition nodes.
type Workflow struct {
	ID        string    `json:"id"                   yaml:"id"          validate:"required"`
	Name      string    `json:"name"                 yaml:"name"        validate:"required,min=1"`
	Nodes     []*Node   `json:"nodes"                yaml:"nodes"       validate:"dive"`
	Edges     []*Edge   `json:"edges"                yaml:"edges"       validate:"dive"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Graph validation errors.
var (
	ErrUnknownNodeKind         = errors.New("unknown node kind")
	ErrDuplicateNodeID         = errors.New("duplicate node id")
	ErrEmptyNodeID             = errors.New("node id cannot be empty")
	ErrNilNode                 = errors.New("node entry is null")
	ErrNilEdge                 = errors.New("edge entry is null")
	ErrDanglingEdge            = errors.New("edge references unknown node")
	ErrNoTriggerNode           = errors.New("workflow must contain at least one trigger node")
	ErrUnroutableConditionEdge = errors.New("edge leaving a condition node must have source handle \"true\" or \"false\"")
)

// ValidationIssue points at the node or edge that breaks a graph invariant.
type ValidationIssue struct {
	NodeID string `json:"node_id,omitempty"`
	EdgeID string `json:"edge_id,omitempty"`
	Err    error  `json:"-"`
}

func (i ValidationIssue) Error() string {
	switch {
	case i.EdgeID != "":
		return fmt.Sprintf("edge %s: %v", i.EdgeID, i.Err)
	case i.NodeID != "":
		return fmt.Sprintf("node %s: %v", i.NodeID, i.Err)
	default:
		return i.Err.Error()
	}
}

func (i ValidationIssue) Unwrap() error {
	return i.Err
}

// ValidationError collects every issue found in a workflow.
type ValidationError struct {
	WorkflowID string
	Issues     []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid workflow %s: %s", e.WorkflowID, e.Issues[0].Error())
	}

	return fmt.Sprintf("invalid workflow %s: %d issues, first: %s", e.WorkflowID, len(e.Issues), e.Issues[0].Error())
}

// Unwrap exposes every issue to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		errs[i] = issue
	}

	return errs
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node != nil && node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// TriggerNodes returns the trigger nodes in the order they appear.
func (w *Workflow) TriggerNodes() []*Node {
	triggers := make([]*Node, 0)

	for _, node := range w.Nodes {
		if node != nil && node.IsTrigger() {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// OutgoingEdges returns the edges leaving each node, preserving edge order.
func (w *Workflow) OutgoingEdges() map[string][]*Edge {
	outgoing := make(map[string][]*Edge, len(w.Nodes))

	for _, edge := range w.Edges {
		if edge == nil {
			continue
		}

		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	return outgoing
}

// Validate checks the structural invariants of the graph. It does not know
// which services or condition kinds exist; see workflow.Validator for that.
func (w *Workflow) Validate() error {
	var issues []ValidationIssue

	nodes := make(map[string]*Node, len(w.Nodes))
	hasTrigger := false

	for i, node := range w.Nodes {
		if node == nil {
			issues = append(issues, ValidationIssue{Err: fmt.Errorf("%w at index %d", ErrNilNode, i)})

			continue
		}

		if node.ID == "" {
			issues = append(issues, ValidationIssue{Err: ErrEmptyNodeID})

			continue
		}

		if _, exists := nodes[node.ID]; exists {
			issues = append(issues, ValidationIssue{NodeID: node.ID, Err: ErrDuplicateNodeID})

			continue
		}

		if !node.Kind.Valid() {
			issues = append(issues, ValidationIssue{
				NodeID: node.ID,
				Err:    fmt.Errorf("%w: %q", ErrUnknownNodeKind, string(node.Kind)),
			})
		}

		nodes[node.ID] = node

		if node.IsTrigger() {
			hasTrigger = true
		}
	}

	if !hasTrigger {
		issues = append(issues, ValidationIssue{Err: ErrNoTriggerNode})
	}

	for i, edge := range w.Edges {
		if edge == nil {
			issues = append(issues, ValidationIssue{Err: fmt.Errorf("%w at index %d", ErrNilEdge, i)})

			continue
		}

		source, sourceOk := nodes[edge.Source]
		_, targetOk := nodes[edge.Target]

		if !sourceOk || !targetOk {
			issues = append(issues, ValidationIssue{EdgeID: edge.ID, Err: ErrDanglingEdge})

			continue
		}

		if source.IsCondition() && edge.SourceHandle != HandleTrue && edge.SourceHandle != HandleFalse {
			issues = append(issues, ValidationIssue{EdgeID: edge.ID, NodeID: source.ID, Err: ErrUnroutableConditionEdge})
		}
	}

	if len(issues) > 0 {
		return &ValidationError{WorkflowID: w.ID, Issues: issues}
	}

	return nil
}
