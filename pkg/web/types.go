// Package web provides the HTTP API for running workflows and managing their definitions.
package web

import "github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"

// RunRequest is the body of POST /executions.
type RunRequest struct {
	FlowID      string         `json:"flowId"      validate:"required"`
	TriggerData models.Payload `json:"triggerData"`
}

// ExecuteRequest is the body of POST /workflows/:id/execute.
type ExecuteRequest struct {
	TriggerData models.Payload `json:"triggerData"`
}

// RunResponse is the synchronous answer of a run. Failures carry only the error.
type RunResponse struct {
	Success     bool                   `json:"success"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	Result      models.ExecutionResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// SaveWorkflowRequest is the body of PUT /workflows/:id.
type SaveWorkflowRequest struct {
	Name  string         `json:"name"  validate:"required,min=1"`
	Nodes []*models.Node `json:"nodes" validate:"required,min=1,dive,required"`
	Edges []*models.Edge `json:"edges" validate:"dive,required"`
}

// ToWorkflow builds the definition stored under id.
func (r SaveWorkflowRequest) ToWorkflow(id string) *models.Workflow {
	edges := r.Edges
	if edges == nil {
		edges = []*models.Edge{}
	}

	return &models.Workflow{
		ID:    id,
		Name:  r.Name,
		Nodes: r.Nodes,
		Edges: edges,
	}
}

// ValidationResponse is the answer of POST /workflows/:id/validate.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}
