package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/TaskForge/internal/adapter/asana"
	tfotel "github.com/Strob0t/TaskForge/internal/adapter/otel"
	"github.com/Strob0t/TaskForge/internal/domain"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
	"github.com/Strob0t/TaskForge/internal/port/broadcast"
	"github.com/Strob0t/TaskForge/internal/port/cache"
	"github.com/Strob0t/TaskForge/internal/port/database"
)

// webhookPath is the receiver path handed to Asana as the target URL.
const webhookPath = "/api/webhooks/asana"

// AsanaAPI is the slice of the Asana client the webhook service uses.
type AsanaAPI interface {
	GetWebhooks(ctx context.Context, workspaceGID string) ([]asana.Webhook, error)
	CreateWebhook(ctx context.Context, req asana.CreateWebhookRequest) (*asana.Webhook, string, error)
	DeleteWebhook(ctx context.Context, webhookGID string) error
}

// AsanaClientFactory builds an API client for a given access token.
// Tokens live in settings, so the client cannot be constructed up front.
type AsanaClientFactory func(token string) AsanaAPI

// WebhookService drives the Asana webhook lifecycle: status lookup,
// recreate-style registration and idempotent removal.
type WebhookService struct {
	store     database.Store
	newClient AsanaClientFactory
	cache     cache.Cache
	hub       broadcast.Broadcaster
	log       *slog.Logger
	metrics   *tfotel.Metrics
	statusTTL time.Duration
	targetURL string
}

// NewWebhookService creates a new WebhookService. publicBaseURL is the
// externally reachable base of this deployment.
func NewWebhookService(store database.Store, factory AsanaClientFactory, c cache.Cache, hub broadcast.Broadcaster, log *slog.Logger, statusTTL time.Duration, publicBaseURL string) *WebhookService {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookService{
		store:     store,
		newClient: factory,
		cache:     c,
		hub:       hub,
		log:       log,
		statusTTL: statusTTL,
		targetURL: strings.TrimRight(publicBaseURL, "/") + webhookPath,
	}
}

// TargetURL returns the webhook target URL this deployment registers.
func (s *WebhookService) TargetURL() string { return s.targetURL }

// SetMetrics attaches metric instruments. Optional.
func (s *WebhookService) SetMetrics(m *tfotel.Metrics) { s.metrics = m }

// Status reports the current webhook registration. Upstream failures
// and missing configuration are carried in the ErrorMessage field, not
// returned as errors, so the settings surface always has something to
// render. Results are cached for the staleness window.
func (s *WebhookService) Status(ctx context.Context) (*webhook.Status, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, CacheKeyWebhookStatus); err == nil && ok {
			var cached webhook.Status
			if err := json.Unmarshal(data, &cached); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHits.Add(ctx, 1)
				}
				return &cached, nil
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Add(ctx, 1)
		}
	}

	ctx, span := tfotel.StartWebhookSpan(ctx, "status")
	defer span.End()
	if s.metrics != nil {
		s.metrics.StatusFetches.Add(ctx, 1)
	}

	st := s.fetchStatus(ctx)
	s.cacheStatus(ctx, st)
	return st, nil
}

func (s *WebhookService) fetchStatus(ctx context.Context) *webhook.Status {
	cfg, err := s.store.GetSettings(ctx)
	if err != nil {
		return &webhook.Status{ErrorMessage: err.Error()}
	}
	if !cfg.Asana.AccessTokenSet {
		return &webhook.Status{ErrorMessage: "asana access token not configured"}
	}
	if cfg.Asana.WorkspaceID == "" {
		return &webhook.Status{ErrorMessage: "asana workspace not configured"}
	}

	token, err := s.store.AsanaAccessToken(ctx)
	if err != nil {
		return &webhook.Status{ErrorMessage: err.Error()}
	}

	hooks, err := s.newClient(token).GetWebhooks(ctx, cfg.Asana.WorkspaceID)
	if err != nil {
		s.log.Error("webhook status fetch failed", "error", err)
		return &webhook.Status{ErrorMessage: err.Error()}
	}

	for _, h := range hooks {
		if h.Target == s.targetURL {
			return &webhook.Status{
				IsRegistered:  true,
				WebhookID:     h.GID,
				IsActive:      h.Active,
				TargetURL:     h.Target,
				ResourceName:  h.Resource.Name,
				LastSuccessAt: h.LastSuccessAt,
				LastFailureAt: h.LastFailureAt,
			}
		}
	}
	return &webhook.Status{}
}

// Create registers the webhook against the configured project. An
// existing registration for this deployment's target is deleted first,
// so repeated calls recreate rather than duplicate. The handshake
// secret is persisted into settings when Asana returns one.
func (s *WebhookService) Create(ctx context.Context) (*webhook.CreateResult, error) {
	ctx, span := tfotel.StartWebhookSpan(ctx, "create")
	defer span.End()
	if s.metrics != nil {
		s.metrics.WebhookCreates.Add(ctx, 1)
	}

	cfg, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Asana.AccessTokenSet {
		return nil, fmt.Errorf("asana access token not configured: %w", domain.ErrConfigIncomplete)
	}
	if cfg.Asana.WorkspaceID == "" {
		return nil, fmt.Errorf("asana workspace not configured: %w", domain.ErrConfigIncomplete)
	}
	if cfg.Asana.ProjectID == "" {
		return nil, fmt.Errorf("asana project not configured: %w", domain.ErrConfigIncomplete)
	}

	// Asana needs a publicly reachable HTTPS target for the handshake.
	if strings.Contains(s.targetURL, "localhost") || strings.Contains(s.targetURL, "127.0.0.1") {
		return nil, fmt.Errorf("cannot register a localhost webhook target, set server.public_base_url to a public URL: %w", domain.ErrValidation)
	}

	token, err := s.store.AsanaAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	client := s.newClient(token)

	hooks, err := client.GetWebhooks(ctx, cfg.Asana.WorkspaceID)
	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		if h.Target == s.targetURL {
			s.log.Info("deleting existing webhook before recreate", "webhook_id", h.GID)
			if err := client.DeleteWebhook(ctx, h.GID); err != nil {
				return nil, err
			}
		}
	}

	created, secret, err := client.CreateWebhook(ctx, asana.CreateWebhookRequest{
		Resource: cfg.Asana.ProjectID,
		Target:   s.targetURL,
		Filters: []asana.WebhookFilter{
			// Track assignee changes plus new comments for mentions.
			{ResourceType: "task", Action: "changed", Fields: []string{"assignee"}},
			{ResourceType: "story", Action: "added"},
		},
	})
	if err != nil {
		return nil, err
	}

	if secret != "" {
		if err := s.store.SetWebhookSecret(ctx, secret); err != nil {
			return nil, err
		}
		s.log.Info("webhook created, secret stored", "webhook_id", created.GID)
	} else {
		s.log.Warn("webhook created but no handshake secret received", "webhook_id", created.GID)
	}

	s.invalidate(ctx)
	return &webhook.CreateResult{
		Success:   true,
		WebhookID: created.GID,
		Message:   "webhook created successfully",
	}, nil
}

// Delete removes every registration matching this deployment's target
// and clears the stored secret. Absence is not an error; deleting an
// unregistered webhook succeeds.
func (s *WebhookService) Delete(ctx context.Context) (*webhook.DeleteResult, error) {
	ctx, span := tfotel.StartWebhookSpan(ctx, "delete")
	defer span.End()
	if s.metrics != nil {
		s.metrics.WebhookDeletes.Add(ctx, 1)
	}

	cfg, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Asana.AccessTokenSet {
		return nil, fmt.Errorf("asana access token not configured: %w", domain.ErrConfigIncomplete)
	}
	if cfg.Asana.WorkspaceID == "" {
		return nil, fmt.Errorf("asana workspace not configured: %w", domain.ErrConfigIncomplete)
	}

	token, err := s.store.AsanaAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	client := s.newClient(token)

	hooks, err := client.GetWebhooks(ctx, cfg.Asana.WorkspaceID)
	if err != nil {
		return nil, err
	}

	deleted := 0
	for _, h := range hooks {
		if h.Target == s.targetURL {
			if err := client.DeleteWebhook(ctx, h.GID); err != nil {
				return nil, err
			}
			s.log.Info("deleted webhook", "webhook_id", h.GID)
			deleted++
		}
	}

	if err := s.store.ClearWebhookSecret(ctx); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	msg := "webhook deleted successfully"
	if deleted == 0 {
		msg = "no webhook was registered"
	}
	return &webhook.DeleteResult{Success: true, Message: msg}, nil
}

// cacheStatus stores a fetched status for the staleness window.
func (s *WebhookService) cacheStatus(ctx context.Context, st *webhook.Status) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKeyWebhookStatus, data, s.statusTTL); err != nil {
		s.log.Warn("fill webhook status cache", "error", err)
	}
}

// invalidate drops the webhook status and settings caches after a
// lifecycle mutation and tells connected clients to refetch both.
func (s *WebhookService) invalidate(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, CacheKeyWebhookStatus); err != nil {
			s.log.Warn("invalidate webhook status cache", "error", err)
		}
		if err := s.cache.Delete(ctx, CacheKeySettings); err != nil {
			s.log.Warn("invalidate settings cache", "error", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, "cache.invalidated", map[string]string{"cache": CacheKeyWebhookStatus})
		s.hub.BroadcastEvent(ctx, "cache.invalidated", map[string]string{"cache": CacheKeySettings})
	}
}
