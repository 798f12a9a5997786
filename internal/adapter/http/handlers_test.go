package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TaskForge/internal/adapter/asana"
	"github.com/Strob0t/TaskForge/internal/domain"
	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/port/database"
	"github.com/Strob0t/TaskForge/internal/service"
)

// memStore is an in-memory database.Store for handler tests.
type memStore struct {
	mu     sync.Mutex
	asana  settings.AsanaSettings
	token  string
	secret string
	creds  map[provider.ID]database.Credential
}

func newMemStore() *memStore {
	return &memStore{creds: make(map[provider.ID]database.Credential)}
}

func (m *memStore) GetSettings(_ context.Context) (*settings.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	providers := make(map[provider.ID]settings.ProviderSettings)
	for id, c := range m.creds {
		providers[id] = settings.ProviderSettings{TokenSet: true, Host: c.Host}
	}
	a := m.asana
	a.WebhookSecretSet = m.secret != ""
	return &settings.Settings{Providers: providers, Asana: a}, nil
}

func (m *memStore) ApplySettings(_ context.Context, post settings.PostSettings) (*settings.Settings, error) {
	m.mu.Lock()
	if v, ok := post.Asana.AccessToken.Get(); ok {
		m.token = v
		m.asana.AccessTokenSet = v != ""
	}
	if v, ok := post.Asana.WebhookSecret.Get(); ok {
		m.secret = v
	}
	m.asana.AgentUserID = post.Asana.AgentUserID.Apply(m.asana.AgentUserID)
	m.asana.WorkspaceID = post.Asana.WorkspaceID.Apply(m.asana.WorkspaceID)
	m.asana.ProjectID = post.Asana.ProjectID.Apply(m.asana.ProjectID)
	m.mu.Unlock()
	return m.GetSettings(context.Background())
}

func (m *memStore) AsanaAccessToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", domain.ErrConfigIncomplete
	}
	return m.token, nil
}

func (m *memStore) SetWebhookSecret(_ context.Context, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = secret
	return nil
}

func (m *memStore) ClearWebhookSecret(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = ""
	return nil
}

func (m *memStore) UpsertCredentials(_ context.Context, batch provider.TokenBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, tok := range batch.Providers {
		if tok.Token == "" {
			if existing, ok := m.creds[id]; ok {
				existing.Host = tok.Host
				m.creds[id] = existing
			}
			continue
		}
		m.creds[id] = database.Credential{Provider: id, Token: tok.Token, Host: tok.Host}
	}
	return nil
}

func (m *memStore) GetCredential(_ context.Context, id provider.ID) (*database.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) ListCredentials(_ context.Context) ([]database.Credential, error) {
	return nil, nil
}

// stubAsana is a scripted Asana API for handler tests.
type stubAsana struct {
	hooks     []asana.Webhook
	createErr error
}

func (s *stubAsana) GetWebhooks(_ context.Context, _ string) ([]asana.Webhook, error) {
	return s.hooks, nil
}

func (s *stubAsana) CreateWebhook(_ context.Context, req asana.CreateWebhookRequest) (*asana.Webhook, string, error) {
	if s.createErr != nil {
		return nil, "", s.createErr
	}
	return &asana.Webhook{GID: "wh-new", Active: true, Target: req.Target}, "secret", nil
}

func (s *stubAsana) DeleteWebhook(_ context.Context, _ string) error { return nil }

func newTestRouter(st *memStore, api service.AsanaAPI) chi.Router {
	settingsSvc := service.NewSettingsService(st, nil, nil, nil, time.Minute)
	webhookSvc := service.NewWebhookService(st,
		func(string) service.AsanaAPI { return api },
		nil, nil, nil, 30*time.Second, "https://forge.example.com")

	r := chi.NewRouter()
	MountRoutes(r, NewHandlers(settingsSvc, webhookSvc, nil), nil)
	return r
}

func configuredMemStore() *memStore {
	st := newMemStore()
	st.token = "tok"
	st.asana = settings.AsanaSettings{
		AccessTokenSet: true,
		WorkspaceID:    "ws-1",
		ProjectID:      "proj-1",
	}
	return st
}

func TestGetSettingsHandler(t *testing.T) {
	st := configuredMemStore()
	st.creds[provider.GitHub] = database.Credential{Provider: provider.GitHub, Token: "t", Host: ""}
	router := newTestRouter(st, &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got settings.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Asana.AccessTokenSet {
		t.Fatal("expected access_token_set true")
	}
	if !got.Providers[provider.GitHub].TokenSet {
		t.Fatal("expected github token_set true")
	}
	// The raw token must never appear in the read model.
	if strings.Contains(rec.Body.String(), `"tok"`) {
		t.Fatal("settings response leaked a token")
	}
}

func TestPostSettingsTriState(t *testing.T) {
	st := configuredMemStore()
	st.asana.AgentUserID = "agent-1"
	router := newTestRouter(st, &stubAsana{})

	// Clear agent_user_id, set project_id, leave everything else alone.
	body := `{"asana":{"agent_user_id":"","project_id":"proj-2"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if st.asana.AgentUserID != "" {
		t.Fatalf("expected agent_user_id cleared, got %q", st.asana.AgentUserID)
	}
	if st.asana.ProjectID != "proj-2" {
		t.Fatalf("expected proj-2, got %q", st.asana.ProjectID)
	}
	if st.asana.WorkspaceID != "ws-1" {
		t.Fatalf("omitted workspace_id must be untouched, got %q", st.asana.WorkspaceID)
	}
}

func TestPostSettingsEmptyBody(t *testing.T) {
	router := newTestRouter(configuredMemStore(), &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty write, got %d", rec.Code)
	}
}

func TestPostProvidersHandler(t *testing.T) {
	st := configuredMemStore()
	router := newTestRouter(st, &stubAsana{})

	body := `{"providers":{"github":{"token":"ghp_abc","host":""},"bitbucket":{"token":"bb_t","host":"bb.corp.test"}}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/providers", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if st.creds[provider.Bitbucket].Host != "bb.corp.test" {
		t.Fatalf("bitbucket host not stored: %+v", st.creds)
	}
}

func TestPostProvidersHostOnlyEditKeepsToken(t *testing.T) {
	st := configuredMemStore()
	st.creds[provider.GitLab] = database.Credential{
		Provider: provider.GitLab, Token: "glpat_keep", Host: "old.corp.test",
	}
	router := newTestRouter(st, &stubAsana{})

	// The client sends an empty token when only the host was edited:
	// the stored secret was never retyped into the form.
	body := `{"providers":{"gitlab":{"token":"","host":"new.corp.test"}}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/providers", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cred := st.creds[provider.GitLab]
	if cred.Token != "glpat_keep" {
		t.Fatalf("stored token must survive a host-only edit, got %q", cred.Token)
	}
	if cred.Host != "new.corp.test" {
		t.Fatalf("host not updated: %q", cred.Host)
	}
}

func TestWebhookStatusHandler(t *testing.T) {
	api := &stubAsana{hooks: []asana.Webhook{
		{GID: "wh-1", Active: true, Target: "https://forge.example.com/api/webhooks/asana"},
	}}
	router := newTestRouter(configuredMemStore(), api)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/asana/webhook/status", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"is_registered":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateWebhookHandler(t *testing.T) {
	st := configuredMemStore()
	router := newTestRouter(st, &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/asana/webhook/create", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if st.secret != "secret" {
		t.Fatalf("expected handshake secret stored, got %q", st.secret)
	}
}

func TestCreateWebhookMissingConfig(t *testing.T) {
	st := configuredMemStore()
	st.asana.ProjectID = ""
	router := newTestRouter(st, &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/asana/webhook/create", http.NoBody))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateWebhookUpstreamErrorPassthrough(t *testing.T) {
	api := &stubAsana{createErr: &asana.APIError{StatusCode: http.StatusForbidden, Message: "token lacks webhook scope"}}
	router := newTestRouter(configuredMemStore(), api)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/asana/webhook/create", http.NoBody))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected upstream 403 passed through, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token lacks webhook scope") {
		t.Fatalf("expected upstream message, got %s", rec.Body.String())
	}
}

func TestDeleteWebhookIdempotent(t *testing.T) {
	router := newTestRouter(configuredMemStore(), &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/asana/webhook", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("deleting an absent webhook must succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newMemStore(), &stubAsana{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
