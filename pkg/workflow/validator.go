package workflow

import (
	"errors"
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/conditions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/protocol"
)

// Validator rejects workflows that would fail mid-run: broken graphs, action
// nodes nobody can serve and condition kinds the evaluator does not know.
type Validator struct {
	actions    protocol.ActionCatalog
	conditions protocol.ConditionEvaluator
}

func NewValidator(actions protocol.ActionCatalog, conditions protocol.ConditionEvaluator) *Validator {
	return &Validator{
		actions:    actions,
		conditions: conditions,
	}
}

// Validate returns a *models.ValidationError listing every issue, or nil.
func (v *Validator) Validate(wf *models.Workflow) error {
	var issues []models.ValidationIssue

	if err := wf.Validate(); err != nil {
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			return err
		}

		issues = append(issues, validationErr.Issues...)
	}

	for _, node := range wf.Nodes {
		if node == nil {
			continue
		}

		switch node.Kind {
		case models.NodeKindAction:
			if !v.actions.Supports(node.Service, node.Action) {
				issues = append(issues, models.ValidationIssue{
					NodeID: node.ID,
					Err:    fmt.Errorf("%w: %s.%s", ErrUnsupportedAction, node.Service, node.Action),
				})
			}
		case models.NodeKindCondition:
			if !v.conditions.Supports(node.Action) {
				issues = append(issues, models.ValidationIssue{
					NodeID: node.ID,
					Err:    fmt.Errorf("%w: %q", conditions.ErrUnknownCondition, node.Action),
				})
			}
		case models.NodeKindTrigger:
		}
	}

	if len(issues) > 0 {
		return &models.ValidationError{WorkflowID: wf.ID, Issues: issues}
	}

	return nil
}
