// Package webhook holds the webhook status model and the display state
// machine derived from it.
package webhook

import "time"

// Status describes the current webhook registration as reported by the
// backend. Fetch failures are carried in ErrorMessage rather than as an
// error value, so a stale-but-renderable status always exists.
type Status struct {
	IsRegistered  bool       `json:"is_registered"`
	WebhookID     string     `json:"webhook_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	TargetURL     string     `json:"target_url,omitempty"`
	ResourceName  string     `json:"resource_name,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// CreateResult is the backend's answer to a create request.
type CreateResult struct {
	Success   bool   `json:"success"`
	WebhookID string `json:"webhook_id,omitempty"`
	Message   string `json:"message"`
}

// DeleteResult is the backend's answer to a delete request.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
