// Package settingsapi defines the client-side port over the settings
// and webhook HTTP surface. The TUI and the reconcile engine depend on
// this interface, not on a concrete transport.
package settingsapi

import (
	"context"

	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
)

// API is the full settings surface a client needs.
type API interface {
	SettingsReader
	SettingsWriter
	WebhookAPI
}

// SettingsReader fetches the settings read model.
type SettingsReader interface {
	GetSettings(ctx context.Context) (*settings.Settings, error)
}

// SettingsWriter applies tri-state settings writes and credential
// batches.
type SettingsWriter interface {
	PostSettings(ctx context.Context, post settings.PostSettings) (*settings.Settings, error)
	PostProviders(ctx context.Context, batch provider.TokenBatch) error
}

// WebhookAPI drives the webhook lifecycle.
type WebhookAPI interface {
	WebhookStatus(ctx context.Context) (*webhook.Status, error)
	CreateWebhook(ctx context.Context) (*webhook.CreateResult, error)
	DeleteWebhook(ctx context.Context) (*webhook.DeleteResult, error)
}
