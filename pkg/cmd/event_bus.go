package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/channels/gochannel"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/channels/kafka"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
)

// ErrUnsupportedEventBus is returned for unknown event bus providers.
var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus creates the event bus for provider: "gochannel" (default) or "kafka".
func NewEventBus(provider string, logger *slog.Logger, serviceName string) (*eventbus.WatermillEventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(adapter)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}
