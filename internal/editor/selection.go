package editor

import (
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/persist"
)

// SelectionStore persists session state per user.
type SelectionStore interface {
	LoadSelection(user string) (persist.SelectionFile, error)
	SaveSelection(user string, sel persist.SelectionFile) error
}

// Export returns the persistable state of the session.
func (s *Session) Export() persist.SelectionFile {
	sel := persist.SelectionFile{Mode: s.mode.String()}
	for _, n := range s.selectedNodes() {
		sel.EditedNodes = append(sel.EditedNodes, persist.FormatPos(n.Position()))
	}
	return sel
}

// Restore replaces the mode and selection with a saved state. Unknown modes
// become DISABLED; entries that are malformed or match no node are skipped.
func (s *Session) Restore(sel persist.SelectionFile) error {
	if s.world == nil {
		return ErrNoWorld
	}
	mode, ok := ParseMode(sel.Mode)
	if !ok && sel.Mode != "" {
		s.log.Warn("unknown saved mode", log.String("mode", sel.Mode))
	}
	s.mode = mode
	s.afterEdit = nil

	s.clearSelection()
	for _, entry := range sel.EditedNodes {
		pos, ok := persist.ParsePos(entry)
		if !ok {
			continue
		}
		if n := s.world.FindNodeExact(pos); n != nil {
			s.setEditing(n.ID(), true)
		}
	}
	s.changed = false
	return nil
}

// Load restores the saved state of the session user.
func (s *Session) Load(store SelectionStore) error {
	sel, err := store.LoadSelection(s.user)
	if err != nil {
		return err
	}
	return s.Restore(sel)
}

// Save writes the session state when it changed since the last save.
func (s *Session) Save(store SelectionStore) error {
	if !s.changed {
		return nil
	}
	s.changed = false
	if err := store.SaveSelection(s.user, s.Export()); err != nil {
		s.changed = true
		return err
	}
	return nil
}
