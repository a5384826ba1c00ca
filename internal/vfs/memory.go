package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Op names a MemFS operation for failure injection.
type Op string

// Operations that can be made to fail.
const (
	OpOpen   Op = "open"
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// MemFS implements VFS using an in-memory file system.
// It is primarily used for testing; FailOn injects errors into specific
// operations so interrupted save sequences can be reproduced.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu       sync.RWMutex
	files    map[string]*memFile
	dirs     map[string]bool
	failures map[failKey]error
}

type memFile struct {
	content []byte
	modTime time.Time
}

type failKey struct {
	op   Op
	path string
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files:    make(map[string]*memFile),
		dirs:     map[string]bool{"/": true},
		failures: make(map[failKey]error),
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// FailOn makes op on path return err until cleared with a nil err.
// For OpRename the path is the source path.
func (m *MemFS) FailOn(op Op, filePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := failKey{op: op, path: m.cleanPath(filePath)}
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

func (m *MemFS) injected(op Op, filePath string) error {
	return m.failures[failKey{op: op, path: filePath}]
}

// Open opens a file for reading.
func (m *MemFS) Open(filePath string) (io.ReadCloser, error) {
	content, err := m.read("open", filePath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	return m.read("read", filePath)
}

func (m *MemFS) read(op, filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if err := m.injected(OpOpen, filePath); err != nil {
		return nil, &fs.PathError{Op: op, Path: filePath, Err: err}
	}
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: op, Path: filePath, Err: syscall.EISDIR}
		}
		return nil, &fs.PathError{Op: op, Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	return bytes.Clone(f.content), nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, time.Time{}, true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// ReadDir reads a directory and returns its entries.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)
	if !m.dirs[dirPath] {
		if _, ok := m.files[dirPath]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: syscall.ENOTDIR}
		}
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	prefix := dirPath
	if prefix != "/" {
		prefix += "/"
	}
	directChild := func(p string) (string, bool) {
		if !strings.HasPrefix(p, prefix) {
			return "", false
		}
		rest := strings.TrimPrefix(p, prefix)
		return rest, rest != "" && !strings.Contains(rest, "/")
	}

	var entries []FileInfo
	for filePath, f := range m.files {
		if name, ok := directChild(filePath); ok {
			entries = append(entries, NewFileInfo(filePath, name, int64(len(f.content)), f.modTime, false))
		}
	}
	for d := range m.dirs {
		if name, ok := directChild(d); ok {
			entries = append(entries, NewFileInfo(d, name, 0, time.Time{}, true))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// Create creates a file for writing. Content becomes visible on Close.
func (m *MemFS) Create(filePath string) (io.WriteCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if err := m.injected(OpCreate, filePath); err != nil {
		return nil, &fs.PathError{Op: "create", Path: filePath, Err: err}
	}
	if dir := path.Dir(filePath); dir != "/" && !m.dirs[dir] {
		return nil, &fs.PathError{Op: "create", Path: filePath, Err: fs.ErrNotExist}
	}
	if m.dirs[filePath] {
		return nil, &fs.PathError{Op: "create", Path: filePath, Err: syscall.EISDIR}
	}

	return &memWriter{fs: m, path: filePath}, nil
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)
	current := ""
	for _, part := range strings.Split(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		current += "/" + part
		if _, ok := m.files[current]; ok {
			return &fs.PathError{Op: "mkdir", Path: current, Err: syscall.ENOTDIR}
		}
		m.dirs[current] = true
	}
	return nil
}

// Remove removes a file or empty directory.
func (m *MemFS) Remove(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	if err := m.injected(OpRemove, filePath); err != nil {
		return &fs.PathError{Op: "remove", Path: filePath, Err: err}
	}
	if _, ok := m.files[filePath]; ok {
		delete(m.files, filePath)
		return nil
	}
	if !m.dirs[filePath] {
		return &fs.PathError{Op: "remove", Path: filePath, Err: fs.ErrNotExist}
	}

	prefix := filePath + "/"
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			return &fs.PathError{Op: "remove", Path: filePath, Err: syscall.ENOTEMPTY}
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			return &fs.PathError{Op: "remove", Path: filePath, Err: syscall.ENOTEMPTY}
		}
	}
	delete(m.dirs, filePath)
	return nil
}

// Rename renames (moves) a file, replacing the target.
func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath = m.cleanPath(oldPath)
	newPath = m.cleanPath(newPath)
	if err := m.injected(OpRename, oldPath); err != nil {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: err}
	}

	f, ok := m.files[oldPath]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if parent := path.Dir(newPath); parent != "/" && !m.dirs[parent] {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrNotExist}
	}

	m.files[newPath] = f
	delete(m.files, oldPath)
	return nil
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	_, isFile := m.files[filePath]
	return isFile || m.dirs[filePath]
}

// Join joins path elements.
func (m *MemFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// AddFile is a convenience method for adding files during setup.
func (m *MemFS) AddFile(filePath string, content string) error {
	if dir := path.Dir(m.cleanPath(filePath)); dir != "/" {
		if err := m.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.cleanPath(filePath)] = &memFile{content: []byte(content), modTime: time.Now()}
	return nil
}

// Content returns the content of a file and whether it exists.
func (m *MemFS) Content(filePath string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[m.cleanPath(filePath)]
	if !ok {
		return "", false
	}
	return string(f.content), true
}

// Files returns all file paths in the file system.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]string, 0, len(m.files))
	for f := range m.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func (m *MemFS) cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// memWriter implements io.WriteCloser for MemFS.Create().
type memWriter struct {
	fs   *MemFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.fs.mu.RLock()
	err := w.fs.injected(OpWrite, w.path)
	w.fs.mu.RUnlock()
	if err != nil {
		return 0, &fs.PathError{Op: "write", Path: w.path, Err: err}
	}
	return w.buf.Write(p)
}

// Close commits whatever was written, like a real file would.
func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()

	w.fs.files[w.path] = &memFile{content: bytes.Clone(w.buf.Bytes()), modTime: time.Now()}
	return nil
}
