// Package notifier defines the user-facing notification port. Save and
// webhook flows report their outcome through it; adapters decide how a
// "toast" actually renders (TUI status line, log line, test recorder).
package notifier

import "context"

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	// Source names the flow that produced the notification,
	// e.g. "settings.save", "webhook.create".
	Source string `json:"source,omitempty"`
}

// Notifier is the port interface for surfacing outcomes to the user.
// Implementations must not block on user interaction.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Success is a convenience constructor.
func Success(source, message string) Notification {
	return Notification{Level: LevelSuccess, Message: message, Source: source}
}

// Error is a convenience constructor.
func Error(source, message string) Notification {
	return Notification{Level: LevelError, Message: message, Source: source}
}
