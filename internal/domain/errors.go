// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request carried a value the server rejects.
var ErrValidation = errors.New("validation failed")

// ErrConfigIncomplete indicates required integration fields are missing.
// It gates webhook operations; it is a state, not a failure.
var ErrConfigIncomplete = errors.New("integration not configured")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")
