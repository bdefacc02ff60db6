// Package actions routes action nodes to the handler serving their external service.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/protocol"
)

var (
	// ErrUnknownService is returned when no handler is registered for a service.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownAction is returned when a handler does not accept an action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrServiceAlreadyRegistered is returned when two handlers claim the same service.
	ErrServiceAlreadyRegistered = errors.New("service already registered")
)

// Registry maps service names to action handlers.
type Registry struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[string]protocol.ActionHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger.With("module", "action_registry"),
		handlers: make(map[string]protocol.ActionHandler),
	}
}

// Register adds a handler under its service name.
func (r *Registry) Register(handler protocol.ActionHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	service := handler.Service()
	if _, exists := r.handlers[service]; exists {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyRegistered, service)
	}

	r.handlers[service] = handler
	r.logger.Debug("Registered action handler", "service", service, "actions", handler.Actions())

	return nil
}

// Supports reports whether service has a handler accepting action.
func (r *Registry) Supports(service, action string) bool {
	_, err := r.lookup(service, action)

	return err == nil
}

// Services returns the registered service names, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]string, 0, len(r.handlers))
	for service := range r.handlers {
		services = append(services, service)
	}

	sort.Strings(services)

	return services
}

// Dispatch hands payload to the handler of service.
func (r *Registry) Dispatch(ctx context.Context, service, action string, payload models.Payload) (models.Payload, error) {
	handler, err := r.lookup(service, action)
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "Dispatching action", "service", service, "action", action)

	result, err := handler.Handle(ctx, action, payload)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", service, action, err)
	}

	return result, nil
}

func (r *Registry) lookup(service, action string) (protocol.ActionHandler, error) {
	r.mu.RLock()
	handler, ok := r.handlers[service]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	if !slices.Contains(handler.Actions(), action) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAction, service, action)
	}

	return handler, nil
}
