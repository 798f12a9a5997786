// Package http implements the HTTP adapter: handlers, helpers and routes.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strob0t/TaskForge/internal/adapter/asana"
	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/service"
)

const bodyLimit = 1 << 20 // 1 MB

// Handlers bundles the HTTP handlers with their services.
type Handlers struct {
	settings *service.SettingsService
	webhook  *service.WebhookService
	log      *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(settingsSvc *service.SettingsService, webhookSvc *service.WebhookService, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{settings: settingsSvc, webhook: webhookSvc, log: log}
}

// GetSettings returns the settings read model. Secrets never appear;
// only their *_set flags do.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.settings.Get(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostSettings applies a tri-state settings write: absent fields keep
// their value, empty strings clear, anything else replaces.
func (h *Handlers) PostSettings(w http.ResponseWriter, r *http.Request) {
	post, ok := readJSON[settings.PostSettings](w, r, bodyLimit)
	if !ok {
		return
	}

	result, err := h.settings.Apply(r.Context(), post)
	if err != nil {
		writeDomainError(w, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostProviders upserts a batch of provider credentials. Each entry is
// a full token and host pair.
func (h *Handlers) PostProviders(w http.ResponseWriter, r *http.Request) {
	batch, ok := readJSON[provider.TokenBatch](w, r, bodyLimit)
	if !ok {
		return
	}

	if err := h.settings.UpsertCredentials(r.Context(), batch); err != nil {
		writeDomainError(w, err, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "credentials updated"})
}

// WebhookStatus reports the current webhook registration. Fetch
// problems surface inside the body, never as a 5xx, so the settings
// screen can always render something.
func (h *Handlers) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.webhook.Status(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// CreateWebhook registers (or recreates) the Asana webhook.
func (h *Handlers) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	result, err := h.webhook.Create(r.Context())
	if err != nil {
		h.writeWebhookError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteWebhook removes the webhook registration. Absence is success.
func (h *Handlers) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	result, err := h.webhook.Delete(r.Context())
	if err != nil {
		h.writeWebhookError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeWebhookError passes Asana's own status and message through when
// the upstream rejected the call; everything else maps as usual.
func (h *Handlers) writeWebhookError(w http.ResponseWriter, err error) {
	var apiErr *asana.APIError
	if errors.As(err, &apiErr) {
		h.log.Error("asana API rejected webhook request", "status", apiErr.StatusCode, "message", apiErr.Message)
		writeError(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	writeDomainError(w, err, "webhook not found")
}

// Health is the liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
