package workflow

import (
	"errors"
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

var (
	// ErrUnsupportedAction is reported for action nodes whose service/action pair has no handler.
	ErrUnsupportedAction = errors.New("unsupported service action")

	// ErrNodeNotFound is returned when a run reaches a node id missing from the workflow.
	ErrNodeNotFound = errors.New("node not found")
)

// NodeError names the node whose execution aborted a run.
type NodeError struct {
	NodeID string
	Kind   models.NodeKind
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// IsNodeError reports whether err was raised by a node during traversal.
func IsNodeError(err error) bool {
	var nodeErr *NodeError

	return errors.As(err, &nodeErr)
}

// IsConfigurationError reports whether err rejected the workflow before any node ran.
func IsConfigurationError(err error) bool {
	var validationErr *models.ValidationError

	return errors.As(err, &validationErr)
}
