package ws

import (
	"context"
	"encoding/json"
)

// Event type constants for WebSocket messages.
const (
	EventSettingsUpdated  = "settings.updated"
	EventWebhookStatus    = "webhook.status"
	EventCacheInvalidated = "cache.invalidated"
)

// SettingsUpdatedEvent is broadcast after a settings save commits.
// It carries only which sections changed, never field values.
type SettingsUpdatedEvent struct {
	Sections []string `json:"sections"`
}

// WebhookStatusEvent is broadcast when the webhook registration changes.
type WebhookStatusEvent struct {
	IsRegistered bool   `json:"is_registered"`
	WebhookID    string `json:"webhook_id,omitempty"`
}

// CacheInvalidatedEvent tells clients to refetch a logical cache.
type CacheInvalidatedEvent struct {
	Cache string `json:"cache"` // "webhook_status" or "settings"
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
