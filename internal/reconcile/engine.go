// Package reconcile turns an edited settings form into the smallest
// set of remote mutations. Touched fields are partitioned into a
// provider-credential batch and an integration-settings batch; only
// non-empty batches go out, and each batch reports its own outcome.
package reconcile

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/TaskForge/internal/adapter/settingsapi"
	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/form"
	"github.com/Strob0t/TaskForge/internal/port/notifier"
	api "github.com/Strob0t/TaskForge/internal/port/settingsapi"
)

// ProviderInput is the raw token/host pair from one provider's form
// inputs.
type ProviderInput struct {
	Token string
	Host  string
}

// AsanaInput is the raw state of the Asana integration inputs.
type AsanaInput struct {
	AccessToken string
	AgentUserID string
	WorkspaceID string
	ProjectID   string
}

// Snapshot is the form state at submit time.
type Snapshot struct {
	Providers map[provider.ID]ProviderInput
	Asana     AsanaInput
}

// Result reports which batches were dispatched and how each fared.
type Result struct {
	CredentialsSent bool
	IntegrationSent bool
	CredentialsErr  error
	IntegrationErr  error
}

// Ok reports whether every dispatched batch succeeded.
func (r Result) Ok() bool {
	return r.CredentialsErr == nil && r.IntegrationErr == nil
}

// Engine submits form changes through the settings API.
type Engine struct {
	writer  api.SettingsWriter
	tracker *form.Tracker
	notify  notifier.Notifier
}

// NewEngine creates an engine bound to a tracker and a writer.
func NewEngine(writer api.SettingsWriter, tracker *form.Tracker, n notifier.Notifier) *Engine {
	if n == nil {
		n = notifier.Func(func(context.Context, notifier.Notification) {})
	}
	return &Engine{writer: writer, tracker: tracker, notify: n}
}

// Submit partitions the snapshot into batches and dispatches the
// non-empty ones concurrently. A batch that succeeds resets its own
// touched flags; a failed batch keeps them so the user can retry. An
// empty diff issues no remote calls.
func (e *Engine) Submit(ctx context.Context, snap Snapshot) Result {
	credBatch, credKeys := e.buildCredentialBatch(snap)
	intBatch, intKeys := e.buildIntegrationBatch(snap)

	var res Result
	if len(credBatch.Providers) == 0 && intBatch.IsZero() {
		return res
	}

	var g errgroup.Group
	if len(credBatch.Providers) > 0 {
		res.CredentialsSent = true
		g.Go(func() error {
			if err := e.writer.PostProviders(ctx, credBatch); err != nil {
				res.CredentialsErr = err
				e.notify.Notify(ctx, notifier.Error("settings.providers", submitErrorMessage(err)))
				return nil
			}
			e.tracker.Reset(credKeys...)
			e.notify.Notify(ctx, notifier.Success("settings.providers", "provider credentials saved"))
			return nil
		})
	}
	if !intBatch.IsZero() {
		res.IntegrationSent = true
		g.Go(func() error {
			post := settings.PostSettings{Asana: intBatch}
			if _, err := e.writer.PostSettings(ctx, post); err != nil {
				res.IntegrationErr = err
				e.notify.Notify(ctx, notifier.Error("settings.save", submitErrorMessage(err)))
				return nil
			}
			e.tracker.Reset(intKeys...)
			e.notify.Notify(ctx, notifier.Success("settings.save", "settings saved"))
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// buildCredentialBatch collects one full token/host pair per provider
// with any touched or non-empty credential field. Pairs always travel
// together so a host override is never dropped when only the token
// changed.
func (e *Engine) buildCredentialBatch(snap Snapshot) (provider.TokenBatch, []form.Key) {
	batch := provider.TokenBatch{Providers: make(map[provider.ID]provider.Token)}
	var keys []form.Key
	for _, id := range provider.All {
		in, ok := snap.Providers[id]
		if !ok {
			continue
		}
		tokenKey, hostKey := form.TokenKey(id), form.HostKey(id)
		changed := e.tracker.Touched(tokenKey) || e.tracker.Touched(hostKey) ||
			in.Token != "" || in.Host != ""
		if !changed {
			continue
		}
		batch.Providers[id] = provider.Token{Token: in.Token, Host: in.Host}
		keys = append(keys, tokenKey, hostKey)
	}
	return batch, keys
}

// buildIntegrationBatch applies the tri-state rules. The access token
// is "non-empty or omit", never cleared from here; the id fields send
// their raw value when touched, including empty string to clear.
func (e *Engine) buildIntegrationBatch(snap Snapshot) (settings.PostAsana, []form.Key) {
	var post settings.PostAsana
	var keys []form.Key

	if e.tracker.Touched(form.KeyAsanaToken) || snap.Asana.AccessToken != "" {
		post.AccessToken = settings.ValueOrUnchanged(snap.Asana.AccessToken)
		keys = append(keys, form.KeyAsanaToken)
	}
	type idField struct {
		key   form.Key
		value string
		dst   *settings.Field
	}
	for _, f := range []idField{
		{form.KeyAsanaAgentUser, snap.Asana.AgentUserID, &post.AgentUserID},
		{form.KeyAsanaWorkspace, snap.Asana.WorkspaceID, &post.WorkspaceID},
		{form.KeyAsanaProject, snap.Asana.ProjectID, &post.ProjectID},
	} {
		if !e.tracker.Touched(f.key) {
			continue
		}
		*f.dst = settings.Value(f.value)
		keys = append(keys, f.key)
	}
	return post, keys
}

// submitErrorMessage prefers the server-provided message and falls
// back to a generic one.
func submitErrorMessage(err error) string {
	var apiErr *settingsapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "failed to save settings"
}
