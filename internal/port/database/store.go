// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
)

// Credential is a stored provider credential. Token is held encrypted
// at rest and decrypted only when handed to an outbound client.
type Credential struct {
	Provider provider.ID
	Token    string
	Host     string
}

// Store is the port interface for database operations.
type Store interface {
	// Settings (singleton row)
	GetSettings(ctx context.Context) (*settings.Settings, error)
	ApplySettings(ctx context.Context, post settings.PostSettings) (*settings.Settings, error)

	// AsanaAccessToken returns the decrypted integration token,
	// or domain.ErrConfigIncomplete when none is stored.
	AsanaAccessToken(ctx context.Context) (string, error)

	// WebhookSecret management for the task integration.
	SetWebhookSecret(ctx context.Context, secret string) error
	ClearWebhookSecret(ctx context.Context) error

	// Provider credentials
	UpsertCredentials(ctx context.Context, batch provider.TokenBatch) error
	GetCredential(ctx context.Context, id provider.ID) (*Credential, error)
	ListCredentials(ctx context.Context) ([]Credential, error)
}
