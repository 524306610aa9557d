package webhook

import (
	"context"
	"strings"

	"relaygo/pkg/logger"
)

// Path is where the relay expects Telegram to deliver updates.
const Path = "/webhook"

// Registrar is the webhook half of the Bot API.
type Registrar interface {
	DeleteWebhook(ctx context.Context) error
	SetWebhook(ctx context.Context, url string) error
}

// Result mirrors the JSON returned by the reset endpoint.
type Result struct {
	OK    bool   `json:"ok"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

type Manager struct {
	api     Registrar
	baseURL string
}

func NewManager(api Registrar, externalURL string) *Manager {
	return &Manager{
		api:     api,
		baseURL: strings.TrimRight(strings.TrimSpace(externalURL), "/"),
	}
}

// URL returns the webhook address, or "" when no external URL is configured.
func (m *Manager) URL() string {
	if m.baseURL == "" {
		return ""
	}
	return m.baseURL + Path
}

// Reset drops whatever webhook Telegram has and registers ours.
func (m *Manager) Reset(ctx context.Context) Result {
	url := m.URL()
	if url == "" {
		logger.WarnC("webhook", "External URL not configured; skipping webhook registration")
		return Result{OK: false, Error: "no external URL configured"}
	}

	if err := m.api.DeleteWebhook(ctx); err != nil {
		logger.WarnCF("webhook", "Failed to delete previous webhook", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	if err := m.api.SetWebhook(ctx, url); err != nil {
		logger.ErrorCF("webhook", "Failed to set webhook", map[string]interface{}{
			logger.FieldURL:   url,
			logger.FieldError: err.Error(),
		})
		return Result{OK: false, Error: err.Error()}
	}

	logger.InfoCF("webhook", "Webhook registered", map[string]interface{}{
		logger.FieldURL: url,
	})
	return Result{OK: true, URL: url}
}
