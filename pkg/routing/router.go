// Package routing selects the outgoing edges a run follows after a node completes.
package routing

import "github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"

// NextEdges returns the edges to follow from node given its outcome.
//
// Trigger and action nodes follow every outgoing edge. Condition nodes follow
// only the edges whose source handle matches the boolean "result" of the
// outcome; edges with a missing or mismatched handle are never followed.
// The returned slice preserves the order of outgoing.
func NextEdges(node *models.Node, outgoing []*models.Edge, outcome models.Payload) []*models.Edge {
	if !node.IsCondition() {
		next := make([]*models.Edge, len(outgoing))
		copy(next, outgoing)

		return next
	}

	handle := BranchHandle(outcome)

	next := make([]*models.Edge, 0, len(outgoing))

	for _, edge := range outgoing {
		if edge.SourceHandle == handle {
			next = append(next, edge)
		}
	}

	return next
}

// BranchHandle maps a condition outcome to the handle of the branch it selects.
// Anything other than a boolean true selects the false branch.
func BranchHandle(outcome models.Payload) string {
	if result, ok := outcome["result"].(bool); ok && result {
		return models.HandleTrue
	}

	return models.HandleFalse
}
