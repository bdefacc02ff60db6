package actions_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	service string
	actions []string
	err     error
	calls   []string
}

func (h *stubHandler) Service() string {
	return h.service
}

func (h *stubHandler) Actions() []string {
	return h.actions
}

func (h *stubHandler) Handle(_ context.Context, action string, payload models.Payload) (models.Payload, error) {
	h.calls = append(h.calls, action)

	if h.err != nil {
		return nil, h.err
	}

	return models.Payload{"success": true, "echo": payload["message"]}, nil
}

func newRegistry(t *testing.T, handlers ...*stubHandler) *actions.Registry {
	t.Helper()

	registry := actions.NewRegistry(slog.Default())
	for _, handler := range handlers {
		require.NoError(t, registry.Register(handler))
	}

	return registry
}

func TestRegistry_Dispatch(t *testing.T) {
	t.Parallel()

	whatsapp := &stubHandler{service: "whatsapp", actions: []string{"sendMessage"}}
	registry := newRegistry(t, whatsapp)

	result, err := registry.Dispatch(context.Background(), "whatsapp", "sendMessage", models.Payload{"message": "hi"})
	require.NoError(t, err)

	assert.Equal(t, models.Payload{"success": true, "echo": "hi"}, result)
	assert.Equal(t, []string{"sendMessage"}, whatsapp.calls)
}

func TestRegistry_DispatchErrors(t *testing.T) {
	t.Parallel()

	failure := errors.New("provider unavailable")

	registry := newRegistry(t,
		&stubHandler{service: "email", actions: []string{"send"}},
		&stubHandler{service: "crm", actions: []string{"createLead"}, err: failure},
	)

	tests := []struct {
		name     string
		service  string
		action   string
		expected error
	}{
		{name: "unknown service", service: "telegram", action: "send", expected: actions.ErrUnknownService},
		{name: "unknown action", service: "email", action: "sendLater", expected: actions.ErrUnknownAction},
		{name: "handler failure", service: "crm", action: "createLead", expected: failure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := registry.Dispatch(context.Background(), tt.service, tt.action, models.Payload{})
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, &stubHandler{service: "email", actions: []string{"send"}})

	err := registry.Register(&stubHandler{service: "email", actions: []string{"send"}})
	require.ErrorIs(t, err, actions.ErrServiceAlreadyRegistered)
}

func TestRegistry_Supports(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t,
		&stubHandler{service: "whatsapp", actions: []string{"sendMessage"}},
		&stubHandler{service: "email", actions: []string{"send"}},
	)

	assert.True(t, registry.Supports("whatsapp", "sendMessage"))
	assert.False(t, registry.Supports("whatsapp", "send"))
	assert.False(t, registry.Supports("sms", "send"))
	assert.Equal(t, []string{"email", "whatsapp"}, registry.Services())
}
