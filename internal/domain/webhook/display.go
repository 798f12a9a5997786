package webhook

// DisplayState is the single state a settings surface renders for the
// webhook panel.
type DisplayState string

const (
	StateChecking      DisplayState = "checking"
	StateNeedsConfig   DisplayState = "needs_config"
	StateError         DisplayState = "error"
	StateActive        DisplayState = "active"
	StateInactive      DisplayState = "inactive"
	StateNotRegistered DisplayState = "not_registered"
)

// DisplayInput is everything the state machine looks at.
type DisplayInput struct {
	// Checking is true while a status fetch is in flight with no
	// previously cached status to show.
	Checking bool
	// ConfigComplete reports whether the integration fields required
	// for registration are all present.
	ConfigComplete bool
	// Status is the most recent fetch result. Nil when nothing has
	// been fetched yet.
	Status *Status
}

// ComputeDisplayState resolves the panel state. Precedence is strict:
// an in-flight first fetch wins over everything, missing config wins
// over fetch errors, and a fetch error wins over whatever the last
// status claimed.
func ComputeDisplayState(in DisplayInput) DisplayState {
	if in.Checking {
		return StateChecking
	}
	if !in.ConfigComplete {
		return StateNeedsConfig
	}
	if in.Status == nil || in.Status.ErrorMessage != "" {
		if in.Status != nil && in.Status.ErrorMessage != "" {
			return StateError
		}
		return StateNotRegistered
	}
	if !in.Status.IsRegistered {
		return StateNotRegistered
	}
	if in.Status.IsActive {
		return StateActive
	}
	return StateInactive
}
