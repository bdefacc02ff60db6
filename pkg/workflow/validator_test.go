package workflow

import (
	"errors"
	"testing"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/conditions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog map[string][]string

func (c staticCatalog) Supports(service, action string) bool {
	for _, known := range c[service] {
		if known == action {
			return true
		}
	}

	return false
}

var testCatalog = staticCatalog{
	"whatsapp": {"sendMessage"},
	"email":    {"send"},
}

func TestValidator_Valid(t *testing.T) {
	t.Parallel()

	validator := NewValidator(testCatalog, conditions.NewEvaluator())

	require.NoError(t, validator.Validate(testutil.VIPRoutingWorkflow()))
}

func TestValidator_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(w *models.Workflow)
		expected []error
	}{
		{
			name: "unknown service",
			mutate: func(w *models.Workflow) {
				w.Nodes[2].Service = "telegram"
			},
			expected: []error{ErrUnsupportedAction},
		},
		{
			name: "unknown action",
			mutate: func(w *models.Workflow) {
				w.Nodes[3].Action = "sendLater"
			},
			expected: []error{ErrUnsupportedAction},
		},
		{
			name: "unknown condition kind",
			mutate: func(w *models.Workflow) {
				w.Nodes[1].Action = "coinFlip"
			},
			expected: []error{conditions.ErrUnknownCondition},
		},
		{
			name: "structural and registry issues together",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Kind = models.NodeKindAction
				w.Nodes[0].Service = "sms"
			},
			expected: []error{models.ErrNoTriggerNode, ErrUnsupportedAction},
		},
	}

	validator := NewValidator(testCatalog, conditions.NewEvaluator())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := testutil.VIPRoutingWorkflow()
			tt.mutate(wf)

			err := validator.Validate(wf)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			for _, expected := range tt.expected {
				assert.True(t, errors.Is(err, expected), "expected %v in %v", expected, err)
			}
		})
	}
}

func TestValidator_NullNode(t *testing.T) {
	t.Parallel()

	wf := testutil.VIPRoutingWorkflow()
	wf.Nodes = append(wf.Nodes, nil)

	validator := NewValidator(testCatalog, conditions.NewEvaluator())

	var err error

	require.NotPanics(t, func() { err = validator.Validate(wf) })
	assert.ErrorIs(t, err, models.ErrNilNode)
	assert.True(t, IsConfigurationError(err))
}
