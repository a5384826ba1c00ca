package persist

import (
	"errors"
	"fmt"
)

// Standard errors returned by the persist package.
var (
	// ErrMissing indicates neither the coaster file nor its temporary sibling exists.
	ErrMissing = errors.New("coaster file missing")

	// ErrMalformedRow indicates a CSV record that could not be decoded.
	ErrMalformedRow = errors.New("malformed row")
)

// PathError represents an I/O error associated with a file path.
type PathError struct {
	Op   string // Operation that failed (write, remove, rename, ...)
	Path string // File path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// RowError describes a skipped CSV record.
type RowError struct {
	Record int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Record, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
