// Package models defines the graph model of automation workflows and the records a run produces.
package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// NodeKind is the closed set of node kinds the engine knows how to execute.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"   // Entry point, seeds the run with trigger data
	NodeKindAction    NodeKind = "action"    // Side-effecting call to an external service
	NodeKindCondition NodeKind = "condition" // Boolean predicate selecting a branch
)

// NodeKinds lists every supported kind in declaration order.
func NodeKinds() []NodeKind {
	return []NodeKind{NodeKindTrigger, NodeKindAction, NodeKindCondition}
}

// Valid reports whether k is one of the supported kinds.
func (k NodeKind) Valid() bool {
	return slices.Contains(NodeKinds(), k)
}

func (k NodeKind) String() string {
	return string(k)
}

// UnmarshalText rejects kinds outside the closed set, so stored definitions
// with unknown kinds fail at load time instead of mid-run.
func (k *NodeKind) UnmarshalText(text []byte) error {
	kind := NodeKind(text)
	if !kind.Valid() {
		return fmt.Errorf("%w: %q, expected one of %v", ErrUnknownNodeKind, string(text), NodeKinds())
	}

	*k = kind

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k), nil
}

// UnmarshalYAML decodes a kind from a YAML scalar.
func (k *NodeKind) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}

	return k.UnmarshalText([]byte(raw))
}

// Source handles for edges leaving a condition node.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Node is one vertex of the automation graph.
type Node struct {
	ID      string         `json:"id"              yaml:"id"              validate:"required"`
	Kind    NodeKind       `json:"kind"            yaml:"kind"            validate:"required"`
	Service string         `json:"service,omitempty" yaml:"service,omitempty"`
	Action  string         `json:"action,omitempty"  yaml:"action,omitempty"`
	Label   string         `json:"label,omitempty"   yaml:"label,omitempty"`
	Config  map[string]any `json:"config,omitempty"  yaml:"config,omitempty"`
}

func (n *Node) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n *Node) IsAction() bool {
	return n.Kind == NodeKindAction
}

func (n *Node) IsCondition() bool {
	return n.Kind == NodeKindCondition
}

// ConfigString returns the string value stored under key in the node config.
func (n *Node) ConfigString(key string) string {
	if n.Config == nil {
		return ""
	}

	value, _ := n.Config[key].(string)

	return value
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id"                      yaml:"id"                      validate:"required"`
	Source       string `json:"source"                  yaml:"source"                  validate:"required"`
	Target       string `json:"target"                  yaml:"target"                  validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"  yaml:"sourceHandle,omitempty"  validate:"omitempty,oneof=true false"`
}

// legacySourceHandle is the snake_case key older definitions use.
type legacySourceHandle struct {
	SourceHandle string `json:"source_handle" yaml:"source_handle"`
}

// UnmarshalJSON accepts both "sourceHandle" and "source_handle".
func (e *Edge) UnmarshalJSON(data []byte) error {
	type plain Edge

	var decoded struct {
		plain
		legacySourceHandle
	}

	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*e = Edge(decoded.plain)
	if e.SourceHandle == "" {
		e.SourceHandle = decoded.legacySourceHandle.SourceHandle
	}

	return nil
}

// UnmarshalYAML accepts both "sourceHandle" and "source_handle".
func (e *Edge) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Edge

	var current plain
	if err := unmarshal(&current); err != nil {
		return err
	}

	var legacy legacySourceHandle
	if err := unmarshal(&legacy); err != nil {
		return err
	}

	*e = Edge(current)
	if e.SourceHandle == "" {
		e.SourceHandle = legacy.SourceHandle
	}

	return nil
}

// Payload is the untyped JSON object flowing between nodes.
type Payload = map[string]any

// ExecutionResult maps a node id to the outcome it produced during a run.
type ExecutionResult map[string]Payload

// MarshalJSON keeps an empty result encoded as an object rather than null.
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(map[string]Payload(r))
}
