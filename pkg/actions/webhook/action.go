// Package webhook delivers action payloads to an external service over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrDeliveryFailed is returned when the endpoint answers with a non-2xx status.
	ErrDeliveryFailed = errors.New("webhook delivery failed")

	// ErrEndpointRequired is returned when a handler is configured without a URL.
	ErrEndpointRequired = errors.New("webhook endpoint url is required")
)

// Config describes one external service reached through a webhook.
type Config struct {
	Service string
	URL     string
	Actions []string
	Headers map[string]string
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig controls redelivery on transport errors and 5xx answers.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Handler POSTs {"action", "payload"} to the configured endpoint.
type Handler struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

func NewHandler(config Config, logger *slog.Logger) (*Handler, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("%w: service %s", ErrEndpointRequired, config.Service)
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	if config.Retry.Attempts < 1 {
		config.Retry.Attempts = 1
	}

	return &Handler{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "webhook_action", "service", config.Service),
	}, nil
}

func (h *Handler) Service() string {
	return h.config.Service
}

func (h *Handler) Actions() []string {
	return h.config.Actions
}

type deliveryRequest struct {
	Action  string         `json:"action"`
	Payload models.Payload `json:"payload"`
}

// Handle delivers the payload. The result holds the status code and the decoded answer.
func (h *Handler) Handle(ctx context.Context, action string, payload models.Payload) (models.Payload, error) {
	body, err := json.Marshal(deliveryRequest{Action: action, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= h.config.Retry.Attempts; attempt++ {
		if attempt > 1 {
			h.logger.InfoContext(ctx, "Retrying webhook delivery", "attempt", attempt, "max_attempts", h.config.Retry.Attempts)

			if err := sleep(ctx, h.config.Retry.Delay); err != nil {
				return nil, err
			}
		}

		resp, err = h.send(ctx, body)
		if err != nil {
			lastErr = err
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < h.config.Retry.Attempts {
			_ = resp.Body.Close()

			lastErr = fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all delivery attempts failed, last error: %w", lastErr)
	}

	return h.processResponse(ctx, resp)
}

func (h *Handler) send(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range h.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	return resp, nil
}

func (h *Handler) processResponse(ctx context.Context, resp *http.Response) (models.Payload, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var response any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &response); err != nil {
			response = string(raw)
		}
	}

	h.logger.DebugContext(ctx, "Webhook delivered", "status_code", resp.StatusCode)

	return models.Payload{
		"success":     true,
		"status_code": resp.StatusCode,
		"response":    response,
	}, nil
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("webhook retry interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
