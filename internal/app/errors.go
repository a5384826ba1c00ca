package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates the tick loop is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrShutdown indicates the application was shut down.
	ErrShutdown = errors.New("application shut down")

	// ErrUnknownSession indicates no session has the given id.
	ErrUnknownSession = errors.New("unknown session")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string // Component name (e.g., "persist", "settings")
	Action    string // Action being performed
	Err       error  // Underlying error
}

func (e *ComponentError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error { return e.Err }
