// Package watcher reports changes to files on disk.
//
// It is used to pick up coaster files edited outside the running process
// and to reload the interaction settings. Rapid writes to the same file,
// such as the temporary-file-then-rename sequence of a save, are coalesced
// by DebouncedWatcher into a single event per path.
package watcher

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation. Combined
// operations are joined with "|".
func (op Op) String() string {
	var parts []string
	for _, o := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}} {
		if op.Has(o.op) {
			parts = append(parts, o.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a file system change event.
type Event struct {
	// Path is the absolute path of the affected file.
	Path string

	// Op is the operation that occurred.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Gone reports whether the file no longer exists at Path after the event.
func (e Event) Gone() bool {
	return (e.Op.Has(OpRemove) || e.Op.Has(OpRename)) && !e.Op.Has(OpCreate) && !e.Op.Has(OpWrite)
}

// Stats provides watcher status information.
type Stats struct {
	WatchedPaths  int
	PendingEvents int
	TotalEvents   int64
	Errors        int64
	LastError     error
	StartTime     time.Time
}

// Watcher monitors file system changes.
type Watcher interface {
	// Watch starts watching a file or a directory and its immediate children.
	// Returns ErrAlreadyWatching if the path is already being watched.
	Watch(path string) error

	// Unwatch stops watching a path.
	// Returns ErrNotWatching if the path isn't being watched.
	Unwatch(path string) error

	// Events returns the channel of file change events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error

	// Stats returns watcher statistics.
	Stats() Stats
}

// Filter decides whether an event is delivered.
type Filter func(event Event) bool

// Config holds watcher configuration options.
type Config struct {
	// BufferSize is the size of the event and error channels.
	// Default: 100
	BufferSize int

	// IgnoreHidden ignores files starting with a dot.
	IgnoreHidden bool

	// Filter is an optional filter for events.
	Filter Filter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 100}
}

// Option configures a watcher.
type Option func(*Config)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) { c.BufferSize = size }
}

// WithIgnoreHidden enables ignoring hidden files.
func WithIgnoreHidden(ignore bool) Option {
	return func(c *Config) { c.IgnoreHidden = ignore }
}

// WithFilter sets the event filter.
func WithFilter(f Filter) Option {
	return func(c *Config) { c.Filter = f }
}

// Listen delivers events and errors of w to the handlers until ctx is
// canceled or w is closed. A nil onError drops errors.
func Listen(ctx context.Context, w Watcher, onEvent func(Event), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			onEvent(event)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
