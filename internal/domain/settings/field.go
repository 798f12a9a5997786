package settings

import (
	"encoding/json"
	"fmt"
)

type fieldState uint8

const (
	fieldOmit fieldState = iota
	fieldClear
	fieldSet
)

// Field is a tri-state write-side value: omitted (keep the stored value),
// cleared (erase the stored value), or set to a new value. The zero Field
// is "omit", so an untouched field marshals to nothing under omitzero.
//
// A single nullable string cannot carry this distinction; conflating
// clear with keep is exactly the bug this type exists to prevent.
type Field struct {
	state fieldState
	value string
}

// Unchanged returns a Field that leaves the stored value alone.
func Unchanged() Field { return Field{} }

// Cleared returns a Field that erases the stored value.
func Cleared() Field { return Field{state: fieldClear} }

// Value returns a Field that sets the stored value to v.
// An empty v is an explicit clear.
func Value(v string) Field {
	if v == "" {
		return Cleared()
	}
	return Field{state: fieldSet, value: v}
}

// ValueOrUnchanged returns a set Field for non-empty v and an omit
// otherwise. Used for secret fields where the form cannot distinguish
// "clear" from "keep": an empty input must never wipe the stored secret.
func ValueOrUnchanged(v string) Field {
	if v == "" {
		return Unchanged()
	}
	return Field{state: fieldSet, value: v}
}

// IsZero reports whether the field is an omit. encoding/json uses this
// for the omitzero tag option.
func (f Field) IsZero() bool { return f.state == fieldOmit }

// Provided reports whether the field carries an instruction (clear or set).
func (f Field) Provided() bool { return f.state != fieldOmit }

// Get returns the value to store and whether the field was provided.
// A cleared field yields ("", true).
func (f Field) Get() (string, bool) {
	if f.state == fieldOmit {
		return "", false
	}
	return f.value, true
}

// Apply resolves the field against the currently stored value.
func (f Field) Apply(current string) string {
	switch f.state {
	case fieldClear:
		return ""
	case fieldSet:
		return f.value
	default:
		return current
	}
}

// MarshalJSON encodes a clear as "" and a set as the value.
// Omitted fields are dropped by omitzero before marshalling.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.state == fieldClear {
		return []byte(`""`), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes a present JSON string: empty means clear,
// anything else means set. JSON null is treated as omit.
func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Unchanged()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tri-state field: %w", err)
	}
	*f = Value(s)
	return nil
}

func (f Field) String() string {
	switch f.state {
	case fieldClear:
		return "<clear>"
	case fieldSet:
		return f.value
	default:
		return "<unchanged>"
	}
}
