// Package settingsapi implements the settings API port over HTTP.
package settingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
	"github.com/Strob0t/TaskForge/internal/resilience"
)

// Client talks to a taskforge server's settings surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a settings API client for the given server base
// URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// GetSettings fetches the settings read model.
func (c *Client) GetSettings(ctx context.Context) (*settings.Settings, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/settings", nil)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	var result settings.Settings
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &result, nil
}

// PostSettings applies a tri-state settings write and returns the new
// read model.
func (c *Client) PostSettings(ctx context.Context, post settings.PostSettings) (*settings.Settings, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/settings", body)
	if err != nil {
		return nil, fmt.Errorf("post settings: %w", err)
	}

	var result settings.Settings
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &result, nil
}

// PostProviders writes a batch of provider credentials.
func (c *Client) PostProviders(ctx context.Context, batch provider.TokenBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal providers: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/api/providers", body); err != nil {
		return fmt.Errorf("post providers: %w", err)
	}
	return nil
}

// WebhookStatus fetches the current webhook registration state.
func (c *Client) WebhookStatus(ctx context.Context) (*webhook.Status, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/asana/webhook/status", nil)
	if err != nil {
		return nil, fmt.Errorf("webhook status: %w", err)
	}

	var result webhook.Status
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal webhook status: %w", err)
	}
	return &result, nil
}

// CreateWebhook registers the webhook for this deployment.
func (c *Client) CreateWebhook(ctx context.Context) (*webhook.CreateResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/asana/webhook/create", nil)
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}

	var result webhook.CreateResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal create result: %w", err)
	}
	return &result, nil
}

// DeleteWebhook removes the webhook registration. Succeeds when no
// webhook is registered.
func (c *Client) DeleteWebhook(ctx context.Context) (*webhook.DeleteResult, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/asana/webhook", nil)
	if err != nil {
		return nil, fmt.Errorf("delete webhook: %w", err)
	}

	var result webhook.DeleteResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal delete result: %w", err)
	}
	return &result, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("settings API error %d: %s", e.StatusCode, e.Message)
}

func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{StatusCode: status, Message: payload.Error}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
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
