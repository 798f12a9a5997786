// Package broadcast defines the port for pushing cache invalidation
// events to connected settings clients.
package broadcast

import "context"

// Broadcaster fans an event out to every connected client. Implementations
// must not block the caller; slow clients are the hub's problem.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
