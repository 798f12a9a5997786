// Package webhookflow drives the client side of the webhook lifecycle:
// status refresh, create and delete, with a pending guard so only one
// mutation is ever in flight. Updates are pessimistic, the cached
// status is never touched before the server confirms.
package webhookflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/TaskForge/internal/adapter/settingsapi"
	"github.com/Strob0t/TaskForge/internal/domain"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
	"github.com/Strob0t/TaskForge/internal/port/notifier"
	api "github.com/Strob0t/TaskForge/internal/port/settingsapi"
	"github.com/Strob0t/TaskForge/internal/statecache"
)

// Controller owns the webhook panel's behavior.
type Controller struct {
	api      api.WebhookAPI
	settings *statecache.Cache[*settings.Settings]
	status   *statecache.Cache[*webhook.Status]
	notify   notifier.Notifier

	mu       sync.Mutex
	pending  bool
	checking bool
}

// NewController wires the controller to the webhook API, the two
// caches it reads and invalidates, and the notification sink.
func NewController(webhookAPI api.WebhookAPI, settingsCache *statecache.Cache[*settings.Settings], statusCache *statecache.Cache[*webhook.Status], n notifier.Notifier) *Controller {
	if n == nil {
		n = notifier.Func(func(context.Context, notifier.Notification) {})
	}
	return &Controller{
		api:      webhookAPI,
		settings: settingsCache,
		status:   statusCache,
		notify:   n,
	}
}

// NewStatusCache builds the status cache the panel reads through. A
// failed fetch is folded into a Status carrying the error message
// instead of propagating as an error, so an unreachable backend renders
// as the panel's error state rather than "not registered".
func NewStatusCache(fetch func(ctx context.Context) (*webhook.Status, error), ttl time.Duration) *statecache.Cache[*webhook.Status] {
	return statecache.New(func(ctx context.Context) (*webhook.Status, error) {
		st, err := fetch(ctx)
		if err != nil {
			return &webhook.Status{ErrorMessage: mutationErrorMessage(err, err.Error())}, nil
		}
		return st, nil
	}, ttl)
}

// RefreshStatus fetches the current registration through the status
// cache. The first fetch flips the panel into its checking state.
func (c *Controller) RefreshStatus(ctx context.Context) (*webhook.Status, error) {
	c.mu.Lock()
	_, hasPrior := c.status.Peek()
	c.checking = !hasPrior
	c.mu.Unlock()

	st, err := c.status.Get(ctx)

	c.mu.Lock()
	c.checking = false
	c.mu.Unlock()
	return st, err
}

// DisplayState resolves what the panel shows right now from the cached
// settings and status.
func (c *Controller) DisplayState() webhook.DisplayState {
	c.mu.Lock()
	checking := c.checking
	c.mu.Unlock()

	st, _ := c.status.Peek()
	return webhook.ComputeDisplayState(webhook.DisplayInput{
		Checking:       checking,
		ConfigComplete: c.configComplete(),
		Status:         st,
	})
}

// CanMutate reports whether the create/delete controls are enabled:
// configuration present and no mutation or first status check in
// flight.
func (c *Controller) CanMutate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pending && !c.checking && c.configComplete()
}

// Create registers the webhook. On success both the status and the
// settings cache go stale, registration stores a handshake secret the
// settings read model must reflect. On failure the previous status
// stays untouched and the control re-enables for a manual retry.
func (c *Controller) Create(ctx context.Context) (*webhook.CreateResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	result, err := c.api.CreateWebhook(ctx)
	if err != nil {
		c.notify.Notify(ctx, notifier.Error("webhook.create", mutationErrorMessage(err, "failed to create webhook")))
		return nil, err
	}

	c.status.Invalidate()
	c.settings.Invalidate()
	c.notify.Notify(ctx, notifier.Success("webhook.create", result.Message))
	return result, nil
}

// Delete removes the registration. Deleting an absent webhook is a
// success; either way the stored secret is gone, so both caches go
// stale.
func (c *Controller) Delete(ctx context.Context) (*webhook.DeleteResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	result, err := c.api.DeleteWebhook(ctx)
	if err != nil {
		c.notify.Notify(ctx, notifier.Error("webhook.delete", mutationErrorMessage(err, "failed to delete webhook")))
		return nil, err
	}

	c.status.Invalidate()
	c.settings.Invalidate()
	c.notify.Notify(ctx, notifier.Success("webhook.delete", result.Message))
	return result, nil
}

// begin takes the pending guard.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return fmt.Errorf("a webhook operation is already in flight: %w", domain.ErrConflict)
	}
	if !c.configComplete() {
		return fmt.Errorf("asana integration is not fully configured: %w", domain.ErrConfigIncomplete)
	}
	c.pending = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}

func (c *Controller) configComplete() bool {
	cfg, ok := c.settings.Peek()
	return ok && cfg != nil && cfg.Asana.ConfigComplete()
}

// mutationErrorMessage prefers the server-provided message.
func mutationErrorMessage(err error, fallback string) string {
	var apiErr *settingsapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
