// Package provider defines the domain types for source-control provider credentials.
package provider

// ID identifies a supported source-control provider.
type ID string

const (
	GitHub    ID = "github"
	GitLab    ID = "gitlab"
	Bitbucket ID = "bitbucket"
)

// All lists the supported providers in display order.
var All = []ID{GitHub, GitLab, Bitbucket}

// Valid reports whether id names a supported provider.
func Valid(id ID) bool {
	switch id {
	case GitHub, GitLab, Bitbucket:
		return true
	}
	return false
}

// Token is a provider credential pair. Token and Host travel together:
// a write always carries both, even when only one of them changed, so a
// host override is never dropped by a token-only edit.
type Token struct {
	Token string `json:"token"`
	Host  string `json:"host"`
}

// TokenBatch is the credential-write payload, one entry per provider.
type TokenBatch struct {
	Providers map[ID]Token `json:"providers"`
}
