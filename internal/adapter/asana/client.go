// Package asana provides an HTTP client for the Asana REST API.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tfotel "github.com/Strob0t/TaskForge/internal/adapter/otel"
	"github.com/Strob0t/TaskForge/internal/resilience"
)

const webhookOptFields = "active,resource,resource.name,target,created_at," +
	"last_failure_at,last_failure_content,last_success_at," +
	"filters,filters.action,filters.resource_type,filters.fields"

// Resource is a minimal Asana resource reference.
type Resource struct {
	GID  string `json:"gid"`
	Name string `json:"name,omitempty"`
}

// WebhookFilter restricts which events a webhook receives.
type WebhookFilter struct {
	ResourceType    string   `json:"resource_type"`
	ResourceSubtype string   `json:"resource_subtype,omitempty"`
	Action          string   `json:"action,omitempty"`
	Fields          []string `json:"fields,omitempty"`
}

// Webhook is an Asana webhook registration.
type Webhook struct {
	GID                string          `json:"gid"`
	Active             bool            `json:"active"`
	Resource           Resource        `json:"resource"`
	Target             string          `json:"target"`
	CreatedAt          *time.Time      `json:"created_at,omitempty"`
	LastFailureAt      *time.Time      `json:"last_failure_at,omitempty"`
	LastFailureContent string          `json:"last_failure_content,omitempty"`
	LastSuccessAt      *time.Time      `json:"last_success_at,omitempty"`
	Filters            []WebhookFilter `json:"filters,omitempty"`
}

// CreateWebhookRequest is the body for registering a webhook.
type CreateWebhookRequest struct {
	Resource string          `json:"resource"`
	Target   string          `json:"target"`
	Filters  []WebhookFilter `json:"filters,omitempty"`
}

// User is an Asana user.
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Client talks to the Asana REST API with a personal access token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
	metrics    *tfotel.Metrics
}

// NewClient creates an Asana client. baseURL is normally
// https://app.asana.com/api/1.0; tests point it at a local server.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetMetrics attaches metric instruments. Optional.
func (c *Client) SetMetrics(m *tfotel.Metrics) {
	c.metrics = m
}

// GetWebhooks lists the webhooks registered in a workspace.
func (c *Client) GetWebhooks(ctx context.Context, workspaceGID string) ([]Webhook, error) {
	if workspaceGID == "" {
		return nil, fmt.Errorf("get webhooks: workspace gid is required")
	}

	q := url.Values{}
	q.Set("workspace", workspaceGID)
	q.Set("opt_fields", webhookOptFields)

	resp, err := c.doRequest(ctx, http.MethodGet, "/webhooks?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("get webhooks: %w", err)
	}

	var result struct {
		Data []Webhook `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal webhooks: %w", err)
	}
	return result.Data, nil
}

// CreateWebhook registers a webhook. Asana performs a handshake against
// the target URL during this call; the returned secret is the value the
// target echoed in X-Hook-Secret, surfaced in the response body.
func (c *Client) CreateWebhook(ctx context.Context, req CreateWebhookRequest) (*Webhook, string, error) {
	body, err := json.Marshal(map[string]CreateWebhookRequest{"data": req})
	if err != nil {
		return nil, "", fmt.Errorf("marshal create webhook: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/webhooks", body)
	if err != nil {
		return nil, "", fmt.Errorf("create webhook: %w", err)
	}

	var result struct {
		Data       Webhook `json:"data"`
		HookSecret string  `json:"X-Hook-Secret"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, "", fmt.Errorf("unmarshal created webhook: %w", err)
	}
	return &result.Data, result.HookSecret, nil
}

// DeleteWebhook removes a webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, webhookGID string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/webhooks/"+webhookGID, nil); err != nil {
		return fmt.Errorf("delete webhook %s: %w", webhookGID, err)
	}
	return nil
}

// GetMe returns the user the access token belongs to.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}

	var result struct {
		Data User `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &result.Data, nil
}

// GetProjects lists the projects in a workspace.
func (c *Client) GetProjects(ctx context.Context, workspaceGID string) ([]Resource, error) {
	if workspaceGID == "" {
		return nil, fmt.Errorf("get projects: workspace gid is required")
	}

	q := url.Values{}
	q.Set("workspace", workspaceGID)

	resp, err := c.doRequest(ctx, http.MethodGet, "/projects?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}

	var result struct {
		Data []Resource `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal projects: %w", err)
	}
	return result.Data, nil
}

// GetWorkspaces lists the workspaces the token can see.
func (c *Client) GetWorkspaces(ctx context.Context) ([]Resource, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/workspaces", nil)
	if err != nil {
		return nil, fmt.Errorf("get workspaces: %w", err)
	}

	var result struct {
		Data []Resource `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal workspaces: %w", err)
	}
	return result.Data, nil
}

// APIError is a non-2xx answer from Asana with its messages decoded.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asana API error %d: %s", e.StatusCode, e.Message)
}

// decodeAPIError joins the messages of Asana's errors array; falls back
// to the raw body when the shape is unexpected.
func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		msgs := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			return &APIError{StatusCode: status, Message: strings.Join(msgs, "; ")}
		}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		ctx, span := tfotel.StartUpstreamSpan(ctx, method, path)
		defer span.End()

		start := time.Now()
		defer func() {
			if c.metrics != nil {
				c.metrics.UpstreamLatency.Record(ctx, time.Since(start).Seconds())
			}
		}()

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return decodeAPIError(resp.StatusCode, data)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
