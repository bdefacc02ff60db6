// Package protocol defines the contracts between the workflow engine and its collaborators.
package protocol

import (
	"context"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// ActionDispatcher delivers an action node's payload to an external service.
// The result must carry a boolean "success" field. Returning an error signals
// a delivery failure and aborts the run.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, service, action string, payload models.Payload) (models.Payload, error)
}

// ActionHandler serves every action of one external service.
type ActionHandler interface {
	// Service returns the service name nodes refer to, e.g. "whatsapp".
	Service() string

	// Actions returns the action names this handler accepts.
	Actions() []string

	// Handle performs the action.
	Handle(ctx context.Context, action string, payload models.Payload) (models.Payload, error)
}

// ActionCatalog answers whether a service/action pair can be dispatched.
type ActionCatalog interface {
	Supports(service, action string) bool
}
