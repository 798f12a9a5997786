// Package service implements the application services behind the HTTP
// surface: settings persistence and the webhook lifecycle.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	tfotel "github.com/Strob0t/TaskForge/internal/adapter/otel"
	"github.com/Strob0t/TaskForge/internal/domain"
	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/port/broadcast"
	"github.com/Strob0t/TaskForge/internal/port/cache"
	"github.com/Strob0t/TaskForge/internal/port/database"
)

// Cache keys for the two settings-screen caches.
const (
	CacheKeySettings      = "settings"
	CacheKeyWebhookStatus = "webhook_status"
)

// SettingsService serves the settings read model and applies tri-state
// writes and credential batches.
type SettingsService struct {
	store       database.Store
	cache       cache.Cache
	hub         broadcast.Broadcaster
	log         *slog.Logger
	metrics     *tfotel.Metrics
	settingsTTL time.Duration
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store database.Store, c cache.Cache, hub broadcast.Broadcaster, log *slog.Logger, settingsTTL time.Duration) *SettingsService {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsService{
		store:       store,
		cache:       c,
		hub:         hub,
		log:         log,
		settingsTTL: settingsTTL,
	}
}

// SetMetrics attaches metric instruments. Optional.
func (s *SettingsService) SetMetrics(m *tfotel.Metrics) { s.metrics = m }

// Get returns the settings read model, served from cache within the
// staleness window.
func (s *SettingsService) Get(ctx context.Context) (*settings.Settings, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, CacheKeySettings); err == nil && ok {
			var cached settings.Settings
			if err := json.Unmarshal(data, &cached); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHits.Add(ctx, 1)
				}
				return &cached, nil
			}
			s.log.Warn("corrupt settings cache entry, refetching")
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Add(ctx, 1)
		}
	}

	result, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	s.fillCache(ctx, result)
	return result, nil
}

// Apply applies a tri-state settings write and returns the new read
// model. The settings cache is invalidated and connected clients told
// to refetch.
func (s *SettingsService) Apply(ctx context.Context, post settings.PostSettings) (*settings.Settings, error) {
	if post.IsZero() {
		return nil, fmt.Errorf("no settings fields provided: %w", domain.ErrValidation)
	}

	ctx, span := tfotel.StartSaveSpan(ctx, []string{"asana"})
	defer span.End()
	if s.metrics != nil {
		s.metrics.SettingsSaves.Add(ctx, 1)
	}

	result, err := s.store.ApplySettings(ctx, post)
	if err != nil {
		return nil, err
	}

	s.invalidateSettings(ctx)
	s.fillCache(ctx, result)
	return result, nil
}

// UpsertCredentials writes a batch of provider credentials. Each entry
// is a full token/host pair; an empty token means the client did not
// retype the stored secret, so only the host is updated for that
// provider and the stored token survives.
func (s *SettingsService) UpsertCredentials(ctx context.Context, batch provider.TokenBatch) error {
	if len(batch.Providers) == 0 {
		return fmt.Errorf("credential batch is empty: %w", domain.ErrValidation)
	}
	for id := range batch.Providers {
		if !provider.Valid(id) {
			return fmt.Errorf("unknown provider %q: %w", id, domain.ErrValidation)
		}
	}

	ctx, span := tfotel.StartSaveSpan(ctx, []string{"providers"})
	defer span.End()
	if s.metrics != nil {
		s.metrics.SettingsSaves.Add(ctx, 1)
	}

	if err := s.store.UpsertCredentials(ctx, batch); err != nil {
		return err
	}

	s.log.Info("provider credentials updated", "count", len(batch.Providers))
	s.invalidateSettings(ctx)
	return nil
}

func (s *SettingsService) fillCache(ctx context.Context, v *settings.Settings) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKeySettings, data, s.settingsTTL); err != nil {
		s.log.Warn("fill settings cache", "error", err)
	}
}

func (s *SettingsService) invalidateSettings(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, CacheKeySettings); err != nil {
			s.log.Warn("invalidate settings cache", "error", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, "cache.invalidated", map[string]string{"cache": CacheKeySettings})
	}
}
