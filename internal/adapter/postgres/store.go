package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/TaskForge/internal/domain"
	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/port/database"
	"github.com/Strob0t/TaskForge/internal/secrets"
)

// Store implements database.Store using PostgreSQL. Credential material
// is encrypted with AES-256-GCM before it touches a row.
type Store struct {
	pool *pgxpool.Pool
	key  []byte
}

// NewStore creates a new Store backed by the given connection pool.
// key is the 32-byte encryption key for secrets at rest.
func NewStore(pool *pgxpool.Pool, key []byte) *Store {
	return &Store{pool: pool, key: key}
}

// settingsRow mirrors the integration_settings singleton row.
type settingsRow struct {
	accessToken   []byte
	webhookSecret []byte
	agentUserID   string
	workspaceID   string
	projectID     string
}

const selectSettings = `SELECT asana_access_token, asana_webhook_secret,
	asana_agent_user_id, asana_workspace_id, asana_project_id
	FROM integration_settings WHERE id = 1`

func scanSettingsRow(row pgx.Row) (*settingsRow, error) {
	var r settingsRow
	err := row.Scan(&r.accessToken, &r.webhookSecret,
		&r.agentUserID, &r.workspaceID, &r.projectID)
	if err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	return &r, nil
}

func (r *settingsRow) readModel() settings.AsanaSettings {
	return settings.AsanaSettings{
		AccessTokenSet:   len(r.accessToken) > 0,
		WebhookSecretSet: len(r.webhookSecret) > 0,
		AgentUserID:      r.agentUserID,
		WorkspaceID:      r.workspaceID,
		ProjectID:        r.projectID,
	}
}

// GetSettings returns the full settings read model.
func (s *Store) GetSettings(ctx context.Context) (*settings.Settings, error) {
	row, err := scanSettingsRow(s.pool.QueryRow(ctx, selectSettings))
	if err != nil {
		return nil, err
	}

	providers, err := s.providerReadModel(ctx)
	if err != nil {
		return nil, err
	}

	return &settings.Settings{
		Providers: providers,
		Asana:     row.readModel(),
	}, nil
}

func (s *Store) providerReadModel(ctx context.Context) (map[provider.ID]settings.ProviderSettings, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, host FROM provider_credentials ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list provider credentials: %w", err)
	}
	defer rows.Close()

	result := make(map[provider.ID]settings.ProviderSettings)
	for rows.Next() {
		var id provider.ID
		var host string
		if err := rows.Scan(&id, &host); err != nil {
			return nil, fmt.Errorf("scan provider credential: %w", err)
		}
		result[id] = settings.ProviderSettings{TokenSet: true, Host: host}
	}
	return result, rows.Err()
}

// ApplySettings applies a tri-state write model to the singleton row and
// returns the resulting read model. Omitted fields keep their stored
// value, cleared fields are erased, set fields are replaced.
func (s *Store) ApplySettings(ctx context.Context, post settings.PostSettings) (*settings.Settings, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin apply settings: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row, err := scanSettingsRow(tx.QueryRow(ctx, selectSettings+` FOR UPDATE`))
	if err != nil {
		return nil, err
	}

	if row.accessToken, err = s.applySecret(post.Asana.AccessToken, row.accessToken); err != nil {
		return nil, fmt.Errorf("apply access token: %w", err)
	}
	if row.webhookSecret, err = s.applySecret(post.Asana.WebhookSecret, row.webhookSecret); err != nil {
		return nil, fmt.Errorf("apply webhook secret: %w", err)
	}
	row.agentUserID = post.Asana.AgentUserID.Apply(row.agentUserID)
	row.workspaceID = post.Asana.WorkspaceID.Apply(row.workspaceID)
	row.projectID = post.Asana.ProjectID.Apply(row.projectID)

	_, err = tx.Exec(ctx,
		`UPDATE integration_settings SET
			asana_access_token = $1, asana_webhook_secret = $2,
			asana_agent_user_id = $3, asana_workspace_id = $4,
			asana_project_id = $5, updated_at = NOW()
		 WHERE id = 1`,
		row.accessToken, row.webhookSecret,
		row.agentUserID, row.workspaceID, row.projectID)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit apply settings: %w", err)
	}

	providers, err := s.providerReadModel(ctx)
	if err != nil {
		return nil, err
	}
	return &settings.Settings{
		Providers: providers,
		Asana:     row.readModel(),
	}, nil
}

// applySecret resolves a tri-state field against an encrypted stored
// value. A set value is encrypted, a clear becomes nil, an omit keeps
// the ciphertext untouched.
func (s *Store) applySecret(f settings.Field, current []byte) ([]byte, error) {
	v, ok := f.Get()
	if !ok {
		return current, nil
	}
	if v == "" {
		return nil, nil
	}
	return secrets.Encrypt([]byte(v), s.key)
}

// AsanaAccessToken returns the decrypted integration token.
func (s *Store) AsanaAccessToken(ctx context.Context) (string, error) {
	var ct []byte
	err := s.pool.QueryRow(ctx,
		`SELECT asana_access_token FROM integration_settings WHERE id = 1`).Scan(&ct)
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}
	if len(ct) == 0 {
		return "", fmt.Errorf("asana access token: %w", domain.ErrConfigIncomplete)
	}

	token, err := secrets.Decrypt(ct, s.key)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return string(token), nil
}

// SetWebhookSecret stores the handshake secret for the active webhook.
func (s *Store) SetWebhookSecret(ctx context.Context, secret string) error {
	ct, err := secrets.Encrypt([]byte(secret), s.key)
	if err != nil {
		return fmt.Errorf("encrypt webhook secret: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE integration_settings SET asana_webhook_secret = $1, updated_at = NOW() WHERE id = 1`, ct)
	if err != nil {
		return fmt.Errorf("set webhook secret: %w", err)
	}
	return nil
}

// ClearWebhookSecret erases the stored handshake secret.
func (s *Store) ClearWebhookSecret(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE integration_settings SET asana_webhook_secret = NULL, updated_at = NOW() WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clear webhook secret: %w", err)
	}
	return nil
}

// UpsertCredentials writes a batch of provider credentials. Each entry
// carries the full token and host pair; an entry with an empty token
// updates the host of an existing credential without touching the
// stored token, and is a no-op when no credential exists.
func (s *Store) UpsertCredentials(ctx context.Context, batch provider.TokenBatch) error {
	if len(batch.Providers) == 0 {
		return nil
	}
	for id := range batch.Providers {
		if !provider.Valid(id) {
			return fmt.Errorf("provider %q: %w", id, domain.ErrValidation)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert credentials: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for id, tok := range batch.Providers {
		if tok.Token == "" {
			_, err = tx.Exec(ctx,
				`UPDATE provider_credentials SET host = $2, updated_at = NOW() WHERE provider = $1`,
				id, tok.Host)
			if err != nil {
				return fmt.Errorf("update credential host %s: %w", id, err)
			}
			continue
		}
		ct, err := secrets.Encrypt([]byte(tok.Token), s.key)
		if err != nil {
			return fmt.Errorf("encrypt token for %s: %w", id, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO provider_credentials (provider, encrypted_token, host)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (provider) DO UPDATE SET
				encrypted_token = EXCLUDED.encrypted_token,
				host = EXCLUDED.host,
				updated_at = NOW()`,
			id, ct, tok.Host)
		if err != nil {
			return fmt.Errorf("upsert credential %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert credentials: %w", err)
	}
	return nil
}

// GetCredential returns one provider credential with the token decrypted.
func (s *Store) GetCredential(ctx context.Context, id provider.ID) (*database.Credential, error) {
	var ct []byte
	var host string
	err := s.pool.QueryRow(ctx,
		`SELECT encrypted_token, host FROM provider_credentials WHERE provider = $1`, id,
	).Scan(&ct, &host)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get credential %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}

	token, err := secrets.Decrypt(ct, s.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential %s: %w", id, err)
	}
	return &database.Credential{Provider: id, Token: string(token), Host: host}, nil
}

// ListCredentials returns all provider credentials with tokens decrypted.
func (s *Store) ListCredentials(ctx context.Context) ([]database.Credential, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, encrypted_token, host FROM provider_credentials ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var result []database.Credential
	for rows.Next() {
		var id provider.ID
		var ct []byte
		var host string
		if err := rows.Scan(&id, &ct, &host); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		token, err := secrets.Decrypt(ct, s.key)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %s: %w", id, err)
		}
		result = append(result, database.Credential{Provider: id, Token: string(token), Host: host})
	}
	return result, rows.Err()
}
