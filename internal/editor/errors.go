package editor

import "errors"

// Standard errors returned by the editor package.
var (
	// ErrNoWorld indicates the session is not attached to a world.
	ErrNoWorld = errors.New("session has no world")

	// ErrNoSelection indicates an operation needs at least one selected node.
	ErrNoSelection = errors.New("no nodes selected")
)
