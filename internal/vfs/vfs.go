// Package vfs provides the file system abstraction used by persistence.
//
// The VFS interface allows swapping the underlying file system
// implementation, so crash-safe save sequences can be exercised against an
// in-memory file system with injected failures.
package vfs

import (
	"io"
	"io/fs"
	"time"
)

// VFS is a virtual file system abstraction.
type VFS interface {
	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// ReadDir reads a directory and returns its entries sorted by name.
	ReadDir(path string) ([]FileInfo, error)

	// Create creates or truncates a file for writing.
	Create(path string) (io.WriteCloser, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm fs.FileMode) error

	// Remove removes a file or empty directory.
	Remove(path string) error

	// Rename renames (moves) a file.
	Rename(oldPath, newPath string) error

	// Exists returns true if the path exists.
	Exists(path string) bool

	// Join joins path elements.
	Join(elem ...string) string
}

// FileInfo describes a file or directory.
type FileInfo struct {
	path    string
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

// NewFileInfo creates a FileInfo from the given parameters.
func NewFileInfo(path, name string, size int64, modTime time.Time, isDir bool) FileInfo {
	return FileInfo{
		path:    path,
		name:    name,
		size:    size,
		modTime: modTime,
		isDir:   isDir,
	}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Name returns the base name.
func (fi FileInfo) Name() string { return fi.name }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.isDir }

// Copy copies src to dst through v, replacing dst.
func Copy(v VFS, src, dst string) (err error) {
	in, err := v.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := v.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
