package cmd

import (
	"fmt"
	"log/slog"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions"
	logaction "github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions/log"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions/webhook"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/config"
)

// NewActionRegistry registers the native log handler and one webhook handler
// per configured integration.
func NewActionRegistry(logger *slog.Logger, integrations *config.Integrations) (*actions.Registry, error) {
	registry := actions.NewRegistry(logger)

	if err := registry.Register(logaction.NewHandler(logger)); err != nil {
		return nil, err
	}

	for _, service := range integrations.Services {
		handler, err := webhook.NewHandler(webhook.Config{
			Service: service.Name,
			URL:     service.URL,
			Actions: service.Actions,
			Headers: service.Headers,
			Timeout: service.Timeout,
			Retry: webhook.RetryConfig{
				Attempts: service.Retry.Attempts,
				Delay:    service.Retry.Delay,
			},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure service %s: %w", service.Name, err)
		}

		if err := registry.Register(handler); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
