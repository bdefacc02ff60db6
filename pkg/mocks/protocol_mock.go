package mocks

import (
	"context"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockActionDispatcher is a mock implementation of protocol.ActionDispatcher interface.
type MockActionDispatcher struct {
	mock.Mock
}

func (m *MockActionDispatcher) Dispatch(ctx context.Context, service, action string, payload models.Payload) (models.Payload, error) {
	args := m.Called(ctx, service, action, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.Payload), args.Error(1)
}

// MockConditionEvaluator is a mock implementation of protocol.ConditionEvaluator interface.
type MockConditionEvaluator struct {
	mock.Mock
}

func (m *MockConditionEvaluator) Evaluate(ctx context.Context, node *models.Node, payload models.Payload) (models.Payload, error) {
	args := m.Called(ctx, node, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.Payload), args.Error(1)
}

func (m *MockConditionEvaluator) Supports(kind string) bool {
	args := m.Called(kind)

	return args.Bool(0)
}

// MockExecutionLogger is a mock implementation of protocol.ExecutionLogger interface.
type MockExecutionLogger struct {
	mock.Mock
}

func (m *MockExecutionLogger) LogNode(ctx context.Context, entry models.ExecutionLogEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}
