// Package persist saves and loads coasters as one CSV file per coaster,
// using a write-temp-then-replace protocol so an interrupted save never
// leaves a truncated primary file behind.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/track"
	"github.com/dshills/coasters/internal/vfs"
)

const (
	fileExt = ".csv"
	tmpExt  = ".tmp"
)

// Store persists the coasters of a world under a directory.
type Store struct {
	fs  vfs.VFS
	dir string
	log *log.Logger

	// maxParallel limits concurrent file writes in SaveAll.
	maxParallel int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxParallel limits how many coaster files are written at once.
func WithMaxParallel(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewStore creates a store writing into dir through v.
func NewStore(v vfs.VFS, dir string, opts ...Option) *Store {
	s := &Store{
		fs:          v,
		dir:         dir,
		log:         log.Default().Named("persist"),
		maxParallel: 4,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// FileOf returns the primary file path of a coaster.
func (s *Store) FileOf(name string) string {
	return s.fs.Join(s.dir, EscapeName(name)+fileExt)
}

// lock returns the save mutex of a coaster name.
func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	return m
}

// Snapshot is the serialized state of a coaster captured on the tick
// goroutine, ready to be written from any goroutine.
type Snapshot struct {
	Name    string
	Rows    [][]string
	coaster *track.Coaster
}

// Take captures c and clears its dirty flag. A failed Write marks the
// coaster dirty again.
func Take(c *track.Coaster) *Snapshot {
	c.ClearDirty()
	return &Snapshot{Name: c.Name(), Rows: EncodeRows(c), coaster: c}
}

// Save writes c when force is set or c is dirty. It reports whether a
// write happened.
func (s *Store) Save(c *track.Coaster, force bool) (bool, error) {
	if !force && !c.IsDirty() {
		return false, nil
	}
	return true, s.Write(Take(c))
}

// Write stores a snapshot: the temporary file is written first, then the
// previous file is deleted and the temporary file renamed over it. When
// rename fails the temporary file is copied instead. On failure the
// previous file is left untouched whenever the failure happened before it
// was deleted.
func (s *Store) Write(snap *Snapshot) error {
	m := s.lock(snap.Name)
	m.Lock()
	defer m.Unlock()

	err := s.write(snap)
	if err != nil {
		if snap.coaster != nil {
			snap.coaster.MarkDirty()
		}
		s.log.Error("failed to save coaster",
			log.String("coaster", snap.Name), log.ErrorField(err))
		return err
	}
	s.log.Debug("saved coaster",
		log.String("coaster", snap.Name), log.Int("rows", len(snap.Rows)))
	return nil
}

func (s *Store) write(snap *Snapshot) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return &PathError{Op: "mkdir", Path: s.dir, Err: err}
	}
	file := s.FileOf(snap.Name)
	tmp := file + tmpExt

	if err := s.writeTemp(tmp, snap.Rows); err != nil {
		_ = s.fs.Remove(tmp)
		return &PathError{Op: "write", Path: tmp, Err: err}
	}

	if s.fs.Exists(file) {
		if err := s.fs.Remove(file); err != nil {
			_ = s.fs.Remove(tmp)
			return &PathError{Op: "remove", Path: file, Err: err}
		}
	}

	if err := s.fs.Rename(tmp, file); err != nil {
		s.log.Warn("rename failed, falling back to copy",
			log.String("file", file), log.ErrorField(err))
		if cerr := vfs.Copy(s.fs, tmp, file); cerr != nil {
			// Keep the complete temporary file as the recovery source.
			_ = s.fs.Remove(file)
			return &PathError{Op: "copy", Path: file, Err: cerr}
		}
		if rerr := s.fs.Remove(tmp); rerr != nil {
			s.log.Warn("failed to delete temporary file",
				log.String("file", tmp), log.ErrorField(rerr))
		}
	}
	return nil
}

func (s *Store) writeTemp(tmp string, rows [][]string) (err error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}
	f, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.Write(buf.Bytes())
	return err
}

// SaveAllAsync captures every coaster of w that is dirty (or all of them
// when force is set) on the calling goroutine and writes them in the
// background. Files of coasters removed from w are deleted. The returned
// group reports the first failure.
func (s *Store) SaveAllAsync(w *track.World, force bool) *errgroup.Group {
	var snaps []*Snapshot
	for _, c := range w.Coasters() {
		if force || c.IsDirty() {
			snaps = append(snaps, Take(c))
		}
	}
	removed := w.TakeRemovedCoasters()

	g := new(errgroup.Group)
	g.SetLimit(s.maxParallel)
	for _, snap := range snaps {
		snap := snap
		g.Go(func() error { return s.Write(snap) })
	}
	for _, name := range removed {
		name := name
		g.Go(func() error { return s.Delete(name) })
	}
	return g
}

// SaveAll is SaveAllAsync followed by waiting for the writes.
func (s *Store) SaveAll(w *track.World, force bool) error {
	return s.SaveAllAsync(w, force).Wait()
}

// Delete removes the files of a coaster. Missing files are not an error.
func (s *Store) Delete(name string) error {
	m := s.lock(name)
	m.Lock()
	defer m.Unlock()

	file := s.FileOf(name)
	for _, p := range []string{file, file + tmpExt} {
		if !s.fs.Exists(p) {
			continue
		}
		if err := s.fs.Remove(p); err != nil {
			return &PathError{Op: "remove", Path: p, Err: err}
		}
	}
	s.log.Info("deleted coaster files", log.String("coaster", name))
	return nil
}

// LoadResult summarizes a load.
type LoadResult struct {
	Coasters   []string
	Recovered  []string
	Skipped    int
	Unresolved []PendingLink
}

// Load reads one coaster into w, replacing a coaster of the same name, and
// resolves its links against the nodes already in w.
func (s *Store) Load(w *track.World, name string) (*LoadResult, error) {
	if w.Coaster(name) != nil {
		// Recreating the coaster takes its name off the removed list again.
		if err := w.RemoveCoaster(name); err != nil {
			return nil, err
		}
	}
	res := &LoadResult{}
	dec, err := s.loadOne(w, name, res)
	if err != nil {
		return res, err
	}
	res.Unresolved = ResolveLinks(w, dec.Links)
	s.warnUnresolved(res.Unresolved)
	markClean(w, res.Coasters)
	return res, nil
}

// LoadAll reads every coaster file of the data directory into w. Links are
// resolved after all coasters are loaded so connections across coasters are
// restored. A coaster that fails to load is logged and skipped.
func (s *Store) LoadAll(w *track.World) (*LoadResult, error) {
	res := &LoadResult{}
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, &PathError{Op: "readdir", Path: s.dir, Err: err}
	}

	names := coasterNames(entries)
	var links []PendingLink
	for _, name := range names {
		dec, err := s.loadOne(w, name, res)
		if err != nil {
			s.log.Error("failed to load coaster",
				log.String("coaster", name), log.ErrorField(err))
			continue
		}
		links = append(links, dec.Links...)
	}
	res.Unresolved = ResolveLinks(w, links)
	s.warnUnresolved(res.Unresolved)
	markClean(w, res.Coasters)
	s.log.Info("loaded coasters",
		log.Int("coasters", len(res.Coasters)),
		log.Int("recovered", len(res.Recovered)),
		log.Int("skipped", res.Skipped))
	return res, nil
}

// markClean clears the dirty flag of freshly loaded coasters, which
// resolving links sets again.
func markClean(w *track.World, names []string) {
	for _, name := range names {
		if c := w.Coaster(name); c != nil {
			c.ClearDirty()
		}
	}
}

// CoasterName returns the coaster stored in the file with the given base
// name. Temporary files map to the coaster they replace.
func CoasterName(file string) (string, bool) {
	token, ok := strings.CutSuffix(file, fileExt+tmpExt)
	if !ok {
		token, ok = strings.CutSuffix(file, fileExt)
	}
	if !ok || token == "" {
		return "", false
	}
	return UnescapeName(token), true
}

// coasterNames lists the coasters stored in a directory, including those
// only present as a temporary file.
func coasterNames(entries []vfs.FileInfo) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := CoasterName(e.Name())
		if ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (s *Store) loadOne(w *track.World, name string, res *LoadResult) (*Decoded, error) {
	file := s.FileOf(name)
	src := file
	if !s.fs.Exists(file) {
		tmp := file + tmpExt
		if !s.fs.Exists(tmp) {
			s.log.Error("coaster file missing", log.String("coaster", name), log.String("file", file))
			return nil, fmt.Errorf("%w: %s", ErrMissing, file)
		}
		s.log.Warn("coaster file missing, recovering from interrupted save",
			log.String("coaster", name), log.String("file", tmp))
		src = tmp
		res.Recovered = append(res.Recovered, name)
	}

	r, err := s.fs.Open(src)
	if err != nil {
		return nil, &PathError{Op: "open", Path: src, Err: err}
	}
	defer r.Close()

	dec, err := DecodeRows(r, w, name)
	if dec != nil {
		for _, skip := range dec.Skipped {
			s.log.Warn("skipped malformed record",
				log.String("coaster", name), log.ErrorField(skip))
		}
		res.Skipped += len(dec.Skipped)
	}
	if err != nil {
		return dec, &PathError{Op: "read", Path: src, Err: err}
	}
	res.Coasters = append(res.Coasters, name)
	return dec, nil
}

func (s *Store) warnUnresolved(links []PendingLink) {
	for _, l := range links {
		s.log.Warn("dropped connection to unknown node",
			log.Uint64("from", uint64(l.From)), log.Any("to", l.To))
	}
}
