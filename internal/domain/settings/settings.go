// Package settings holds the user settings read and write models.
//
// The read model never carries secret material: tokens and webhook
// secrets surface only as *_set booleans. The write model uses the
// tri-state Field so a PATCH-like POST can distinguish "leave alone"
// from "erase" from "replace".
package settings

import (
	"github.com/Strob0t/TaskForge/internal/domain/provider"
)

// ProviderSettings is the read-side view of one git provider's credentials.
type ProviderSettings struct {
	TokenSet bool   `json:"token_set"`
	Host     string `json:"host,omitempty"`
}

// AsanaSettings is the read-side view of the task integration.
type AsanaSettings struct {
	AccessTokenSet   bool   `json:"access_token_set"`
	WebhookSecretSet bool   `json:"webhook_secret_set"`
	AgentUserID      string `json:"agent_user_id,omitempty"`
	WorkspaceID      string `json:"workspace_id,omitempty"`
	ProjectID        string `json:"project_id,omitempty"`
}

// ConfigComplete reports whether the integration has everything webhook
// registration needs: an access token plus a workspace and project.
func (a AsanaSettings) ConfigComplete() bool {
	return a.AccessTokenSet && a.WorkspaceID != "" && a.ProjectID != ""
}

// Settings is the full read model returned by GET /api/settings.
type Settings struct {
	Providers map[provider.ID]ProviderSettings `json:"providers"`
	Asana     AsanaSettings                    `json:"asana"`
}

// PostAsana is the write model for the task-integration fields.
// Every field is tri-state; an entirely zero PostAsana marshals to nothing.
type PostAsana struct {
	AccessToken   Field `json:"access_token,omitzero"`
	WebhookSecret Field `json:"webhook_secret,omitzero"`
	AgentUserID   Field `json:"agent_user_id,omitzero"`
	WorkspaceID   Field `json:"workspace_id,omitzero"`
	ProjectID     Field `json:"project_id,omitzero"`
}

// IsZero reports whether no field carries an instruction.
func (p PostAsana) IsZero() bool {
	return !p.AccessToken.Provided() &&
		!p.WebhookSecret.Provided() &&
		!p.AgentUserID.Provided() &&
		!p.WorkspaceID.Provided() &&
		!p.ProjectID.Provided()
}

// PostSettings is the write model accepted by POST /api/settings.
type PostSettings struct {
	Asana PostAsana `json:"asana,omitzero"`
}

// IsZero reports whether the request would change nothing.
func (p PostSettings) IsZero() bool { return p.Asana.IsZero() }
