// Package form tracks which settings fields the user has edited. Only
// touched fields are ever submitted, so an open form never overwrites
// values changed elsewhere.
package form

import (
	"sort"
	"sync"

	"github.com/Strob0t/TaskForge/internal/domain/provider"
)

// Key identifies a single editable field.
type Key string

// Asana integration fields.
const (
	KeyAsanaToken     Key = "asana.access_token"
	KeyAsanaAgentUser Key = "asana.agent_user_id"
	KeyAsanaWorkspace Key = "asana.workspace_id"
	KeyAsanaProject   Key = "asana.project_id"
)

// TokenKey returns the field key for a provider's token input.
func TokenKey(id provider.ID) Key { return Key("provider." + string(id) + ".token") }

// HostKey returns the field key for a provider's host input.
func HostKey(id provider.ID) Key { return Key("provider." + string(id) + ".host") }

type fieldState struct {
	touched  bool
	hasValue bool
}

// Tracker records per-field touched flags. Values live in the form
// widgets; the tracker only knows what is dirty.
type Tracker struct {
	mu     sync.Mutex
	fields map[Key]fieldState
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{fields: make(map[Key]fieldState)}
}

// MarkTouched flags a field as edited and records whether its input
// currently holds a value.
func (t *Tracker) MarkTouched(key Key, hasValue bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields[key] = fieldState{touched: true, hasValue: hasValue}
}

// Touched reports whether a field has been edited.
func (t *Tracker) Touched(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[key].touched
}

// HasValue reports whether an edited field currently holds a value.
func (t *Tracker) HasValue(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[key].hasValue
}

// IsClean reports whether nothing has been edited.
func (t *Tracker) IsClean() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fields) == 0
}

// Reset clears the touched flag for the given fields. Called per batch
// after a successful submit so a failed batch keeps its flags.
func (t *Tracker) Reset(keys ...Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		delete(t.fields, k)
	}
}

// ResetAll clears every touched flag.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields = make(map[Key]fieldState)
}

// Snapshot returns the touched fields in stable order.
func (t *Tracker) Snapshot() []Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]Key, 0, len(t.fields))
	for k := range t.fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
