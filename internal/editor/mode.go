package editor

import "strings"

// Mode is the active edit action of a session.
type Mode uint8

// Edit modes.
const (
	ModeDisabled Mode = iota
	ModeCreate
	ModePosition
	ModeOrientation
	ModeDelete
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeDisabled, ModeCreate, ModePosition, ModeOrientation, ModeDelete}

// Timing controls how a held interaction repeats the mode action. Delay is
// the number of held ticks before repeating starts; Interval is the number
// of ticks between repeats.
type Timing struct {
	Delay    int
	Interval int
}

// Activate reports whether the action fires on the given held tick.
func (t Timing) Activate(tick int) bool {
	tick -= t.Delay
	return tick >= 0 && (t.Interval <= 0 || tick%t.Interval == 0)
}

// String returns the mode identifier, as persisted.
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "DISABLED"
	case ModeCreate:
		return "CREATE"
	case ModePosition:
		return "POSITION"
	case ModeOrientation:
		return "ORIENTATION"
	case ModeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// DisplayName returns a human-readable name.
func (m Mode) DisplayName() string {
	switch m {
	case ModeDisabled:
		return "Disabled (hidden)"
	case ModeCreate:
		return "Create Track"
	case ModePosition:
		return "Change Position"
	case ModeOrientation:
		return "Change Orientation"
	case ModeDelete:
		return "Delete Track"
	default:
		return "Unknown"
	}
}

// Timing returns the built-in auto-repeat timing of the mode.
func (m Mode) Timing() Timing {
	switch m {
	case ModeCreate:
		return Timing{Delay: 10, Interval: 3}
	case ModeDelete:
		return Timing{Delay: 10, Interval: 6}
	default:
		return Timing{Delay: 0, Interval: 1}
	}
}

// AutoActivate reports whether a held interaction fires on tick.
// DISABLED never fires.
func (m Mode) AutoActivate(tick int) bool {
	if m == ModeDisabled {
		return false
	}
	return m.Timing().Activate(tick)
}

// ParseMode resolves a mode by identifier or display name, ignoring case.
func ParseMode(name string) (Mode, bool) {
	name = strings.TrimSpace(name)
	for _, m := range Modes {
		if strings.EqualFold(m.String(), name) || strings.EqualFold(m.DisplayName(), name) {
			return m, true
		}
	}
	return ModeDisabled, false
}
