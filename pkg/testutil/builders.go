// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates a workflow with default values that can be overridden.
// Without overrides it holds a single webhook trigger.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:    uuid.New().String(),
		Name:  "Test Workflow",
		Nodes: []*models.Node{Trigger("t1", "webhook")},
		Edges: []*models.Edge{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithID sets the workflow id.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithName sets the workflow name.
func WithName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithNodes replaces the workflow nodes.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
	}
}

// WithEdges replaces the workflow edges.
func WithEdges(edges ...*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Edges = edges
	}
}

// Trigger creates a trigger node.
func Trigger(id, action string) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindTrigger, Action: action, Label: "Trigger " + id}
}

// Action creates an action node.
func Action(id, service, action string) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindAction, Service: service, Action: action, Label: "Action " + id}
}

// Condition creates a condition node of the given kind.
func Condition(id, kind string, config map[string]any) *models.Node {
	return &models.Node{ID: id, Kind: models.NodeKindCondition, Action: kind, Config: config, Label: "Condition " + id}
}

// Edge creates an unlabelled edge.
func Edge(source, target string) *models.Edge {
	return &models.Edge{ID: fmt.Sprintf("%s->%s", source, target), Source: source, Target: target}
}

// BranchEdge creates an edge leaving a condition node on the given handle.
func BranchEdge(source, target string, handle bool) *models.Edge {
	edge := Edge(source, target)
	edge.SourceHandle = models.HandleFalse

	if handle {
		edge.SourceHandle = models.HandleTrue
	}

	return edge
}

// VIPRoutingWorkflow returns the canonical routing example: a filter on
// value == "vip" choosing between a whatsapp message and an email.
func VIPRoutingWorkflow() *models.Workflow {
	return CreateTestWorkflow(
		WithID("vip-routing"),
		WithName("VIP routing"),
		WithNodes(
			Trigger("t1", "webhook"),
			Condition("c1", "filter", map[string]any{"condition": "equals", "targetValue": "vip"}),
			Action("a1", "whatsapp", "sendMessage"),
			Action("a2", "email", "send"),
		),
		WithEdges(
			Edge("t1", "c1"),
			BranchEdge("c1", "a1", true),
			BranchEdge("c1", "a2", false),
		),
	)
}

// EntryID returns a deterministic log entry id for position i.
func EntryID(i int) string {
	return fmt.Sprintf("entry-%03d", i)
}
