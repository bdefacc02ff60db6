// Package log provides an action handler that writes the payload to the service log.
package log

import (
	"context"
	"log/slog"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

// ServiceName is the service action nodes use to reach this handler.
const ServiceName = "log"

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Handler logs the payload at the level named by the action.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger.With("action_type", "log")}
}

func (*Handler) Service() string {
	return ServiceName
}

func (*Handler) Actions() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Handle never fails; an unknown level is logged at info.
func (h *Handler) Handle(ctx context.Context, action string, payload models.Payload) (models.Payload, error) {
	level, ok := levels[action]
	if !ok {
		level = slog.LevelInfo
	}

	attrs := make([]any, 0, len(payload)*2)
	for key, value := range payload {
		attrs = append(attrs, key, value)
	}

	message, _ := payload["message"].(string)
	if message == "" {
		message = "Workflow log action"
	}

	h.logger.Log(ctx, level, message, attrs...)

	return models.Payload{"success": true, "level": level.String()}, nil
}
