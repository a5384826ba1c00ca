package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/coasters/internal/vfs"
)

// Settings are the interaction thresholds of the edit session.
type Settings struct {
	Selection SelectionSettings     `toml:"selection"`
	Create    CreateSettings        `toml:"create"`
	Drag      DragSettings          `toml:"drag"`
	Junction  JunctionSettings      `toml:"junction"`
	Modes     map[string]ModeTiming `toml:"modes"`
}

// SelectionSettings tune picking and selection.
type SelectionSettings struct {
	// Threshold is the view distance under which a selected node counts as looked at.
	Threshold float64 `toml:"threshold"`
	// MassSelectWindowMs is how recently a node must have been edited for a
	// second click to flood select.
	MassSelectWindowMs int `toml:"mass_select_window_ms"`
}

// CreateSettings tune node creation.
type CreateSettings struct {
	DuplicateRadius float64 `toml:"duplicate_radius"`
	PlaceDistance   float64 `toml:"place_distance"`
}

// DragSettings tune position dragging.
type DragSettings struct {
	MergeRadius float64 `toml:"merge_radius"`
}

// JunctionSettings tune junction branch markers.
type JunctionSettings struct {
	MarkerOffset float64 `toml:"marker_offset"`
}

// ModeTiming overrides the auto-repeat timing of a mode.
type ModeTiming struct {
	Delay    int `toml:"delay"`
	Interval int `toml:"interval"`
}

// DefaultSettings returns the built-in interaction settings.
func DefaultSettings() Settings {
	return Settings{
		Selection: SelectionSettings{Threshold: 0.3, MassSelectWindowMs: 300},
		Create:    CreateSettings{DuplicateRadius: 0.1, PlaceDistance: 0.5},
		Drag:      DragSettings{MergeRadius: 0.3},
		Junction:  JunctionSettings{MarkerOffset: 0.3},
	}
}

// MassSelectWindow returns the mass select window as a duration.
func (s Settings) MassSelectWindow() time.Duration {
	return time.Duration(s.Selection.MassSelectWindowMs) * time.Millisecond
}

// ModeTiming returns the override for mode, if any. Names are case-insensitive.
func (s Settings) ModeTiming(mode string) (ModeTiming, bool) {
	for name, t := range s.Modes {
		if strings.EqualFold(name, mode) {
			return t, true
		}
	}
	return ModeTiming{}, false
}

// ParseError describes a settings file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse settings %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadSettings reads settings from path. Values absent from the file keep
// their defaults; a missing file yields the defaults.
func LoadSettings(v vfs.VFS, path string) (Settings, error) {
	s := DefaultSettings()
	data, err := v.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return ParseSettings(path, data)
}

// ParseSettings decodes TOML settings on top of the defaults.
func ParseSettings(source string, data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := toml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), &ParseError{Path: source, Err: err}
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), &ParseError{Path: source, Err: err}
	}
	return s, nil
}

// Validate rejects negative thresholds.
func (s Settings) Validate() error {
	checks := map[string]float64{
		"selection.threshold":     s.Selection.Threshold,
		"create.duplicate_radius": s.Create.DuplicateRadius,
		"create.place_distance":   s.Create.PlaceDistance,
		"drag.merge_radius":       s.Drag.MergeRadius,
		"junction.marker_offset":  s.Junction.MarkerOffset,
	}
	for key, v := range checks {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	if s.Selection.MassSelectWindowMs < 0 {
		return errors.New("selection.mass_select_window_ms must not be negative")
	}
	return nil
}
