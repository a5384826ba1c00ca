package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/dshills/coasters/internal/log"
)

const selectionDir = "selections"

// SelectionFile is the saved edit state of one user.
type SelectionFile struct {
	Mode        string   `yaml:"mode"`
	EditedNodes []string `yaml:"editedNodes"`
}

// SelectionPath returns the selection file of user.
func (s *Store) SelectionPath(user string) string {
	return s.fs.Join(s.dir, selectionDir, EscapeName(user)+".yml")
}

// LoadSelection reads the selection of user. A missing file yields an
// empty selection and no error.
func (s *Store) LoadSelection(user string) (SelectionFile, error) {
	var sel SelectionFile
	path := s.SelectionPath(user)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sel, nil
		}
		return sel, &PathError{Op: "read", Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return SelectionFile{}, &PathError{Op: "decode", Path: path, Err: err}
	}
	return sel, nil
}

// SaveSelection writes the selection of user.
func (s *Store) SaveSelection(user string, sel SelectionFile) (err error) {
	path := s.SelectionPath(user)
	data, err := yaml.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	if err := s.fs.MkdirAll(s.fs.Join(s.dir, selectionDir), 0o755); err != nil {
		return &PathError{Op: "mkdir", Path: path, Err: err}
	}
	f, err := s.fs.Create(path)
	if err != nil {
		return &PathError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = &PathError{Op: "close", Path: path, Err: cerr}
		}
	}()
	if _, err := f.Write(data); err != nil {
		return &PathError{Op: "write", Path: path, Err: err}
	}
	s.log.Debug("saved selection", log.String("user", user), log.Int("nodes", len(sel.EditedNodes)))
	return nil
}

// FormatPos encodes a position as "x_y_z".
func FormatPos(p mgl64.Vec3) string {
	return formatFloat(p[0]) + "_" + formatFloat(p[1]) + "_" + formatFloat(p[2])
}

// ParsePos decodes a position written by FormatPos.
func ParsePos(s string) (mgl64.Vec3, bool) {
	var v mgl64.Vec3
	parts := strings.Split(s, "_")
	if len(parts) != 3 {
		return v, false
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return v, false
		}
		v[i] = f
	}
	return v, true
}
