// Package editor implements the per-user edit session: the state machine
// that turns clicks and held input into track graph edits.
//
// A Session is driven from the tick goroutine. Update is called once per
// tick, OnRightClick and OnLeftClick when the viewer clicks.
package editor

import (
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/notify"
	"github.com/dshills/coasters/internal/track"
)

const (
	// autoTimeout is the hold counter value below which held input stops acting.
	autoTimeout = 5
	// cancelTimeout is how many ticks a right click keeps acting without a repeat.
	cancelTimeout = 8
)

// Viewer is the user driving a session.
type Viewer interface {
	// Eye returns the eye position and the look direction.
	Eye() (pos, dir mgl64.Vec3)

	// IsHoldingTool reports whether the edit tool is in hand.
	IsHoldingTool() bool

	// IsSneaking reports whether the multi-select modifier is held.
	IsSneaking() bool
}

// Session is the edit state of one user in one world.
type Session struct {
	user     string
	viewer   Viewer
	world    *track.World
	settings config.Settings
	clock    func() time.Time
	log      *log.Logger

	mode      Mode
	afterEdit *Mode

	selected []track.NodeID
	isSel    map[track.NodeID]bool

	lastEdited   track.NodeID
	lastEditTime time.Time

	holdCounter int
	heldTicks   int
	changed     bool

	anchor   geom.Transform
	rotPoint mgl64.Vec3
}

// Option configures a Session.
type Option func(*Session)

// WithSettings sets the interaction thresholds.
func WithSettings(s config.Settings) Option {
	return func(sess *Session) { sess.settings = s }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) {
		if now != nil {
			sess.clock = now
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(sess *Session) {
		if l != nil {
			sess.log = l
		}
	}
}

// NewSession creates a session for user, viewing w through v.
func NewSession(user string, w *track.World, v Viewer, opts ...Option) *Session {
	s := &Session{
		user:     user,
		viewer:   v,
		world:    w,
		settings: config.DefaultSettings(),
		clock:    time.Now,
		log:      log.Default().Named("editor"),
		isSel:    make(map[track.NodeID]bool),
		anchor:   geom.Identity(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(log.String("user", user))
	return s
}

// User returns the name of the session owner.
func (s *Session) User() string { return s.user }

// World returns the world the session edits.
func (s *Session) World() *track.World { return s.world }

// Mode returns the active mode.
func (s *Session) Mode() Mode { return s.mode }

// Settings returns the interaction settings.
func (s *Session) Settings() config.Settings { return s.settings }

// SetSettings replaces the interaction settings.
func (s *Session) SetSettings(cfg config.Settings) { s.settings = cfg }

// IsChanged reports whether the persisted session state changed since the
// last Save or Load.
func (s *Session) IsChanged() bool { return s.changed }

// IsHolding reports whether held input is active.
func (s *Session) IsHolding() bool {
	return s.holdCounter > 0 && s.viewer.IsHoldingTool()
}

// HeldTicks returns how many ticks the current hold has acted for.
func (s *Session) HeldTicks() int { return s.heldTicks }

// SetWorld moves the session to another world. The selection and any
// running hold are dropped.
func (s *Session) SetWorld(w *track.World) {
	if w == s.world {
		return
	}
	s.clearSelection()
	s.world = w
	s.holdCounter = 0
	s.heldTicks = 0
	s.afterEdit = nil
}

// SetMode switches mode and cancels any queued after-edit mode.
func (s *Session) SetMode(m Mode) {
	s.afterEdit = nil
	if s.mode == m {
		return
	}
	s.log.Debug("mode changed", log.String("from", s.mode.String()), log.String("to", m.String()))
	s.mode = m
	s.changed = true
	for _, id := range s.selected {
		s.notifySelected(id, true)
	}
}

// setAfterEditMode queues a mode to switch to once the hold is released.
func (s *Session) setAfterEditMode(m Mode) {
	s.afterEdit = &m
}

// timing returns the configured auto-repeat timing of m.
func (s *Session) timing(m Mode) Timing {
	if t, ok := s.settings.ModeTiming(m.String()); ok {
		return Timing{Delay: t.Delay, Interval: t.Interval}
	}
	return m.Timing()
}

// OnRightClick starts or extends a hold.
func (s *Session) OnRightClick() {
	s.holdCounter = autoTimeout + cancelTimeout
}

// Update advances the session by one tick.
func (s *Session) Update() {
	s.prune()
	if s.IsHolding() {
		s.holdCounter--
		s.changed = true
		if s.holdCounter >= autoTimeout {
			if s.heldTicks == 0 || (s.mode != ModeDisabled && s.timing(s.mode).Activate(s.heldTicks)) {
				s.updateEditing()
			}
			s.heldTicks++
		}
		return
	}

	if s.heldTicks > 0 {
		s.onEditingFinished()
		s.heldTicks = 0
	}
	s.holdCounter = 0
	if s.afterEdit != nil {
		s.SetMode(*s.afterEdit)
	}
}

func (s *Session) updateEditing() {
	if s.world == nil {
		return
	}
	switch s.mode {
	case ModeCreate:
		s.createTrack()
	case ModeDelete:
		s.deleteTrack()
	case ModePosition, ModeOrientation:
		s.changePositionOrientation()
	case ModeDisabled:
	}
}

// Selected returns the selected nodes in selection order.
func (s *Session) Selected() []track.NodeID { return slices.Clone(s.selected) }

// IsSelected reports whether id is selected.
func (s *Session) IsSelected(id track.NodeID) bool { return s.isSel[id] }

// SetSelected adds id to or removes it from the selection.
func (s *Session) SetSelected(id track.NodeID, selected bool) {
	s.setEditing(id, selected)
}

// ClearSelection unselects every node.
func (s *Session) ClearSelection() { s.clearSelection() }

func (s *Session) setEditing(id track.NodeID, editing bool) {
	if s.isSel[id] == editing {
		return
	}
	if editing {
		s.isSel[id] = true
		s.selected = append(s.selected, id)
	} else {
		delete(s.isSel, id)
		s.selected = slices.DeleteFunc(s.selected, func(x track.NodeID) bool { return x == id })
	}
	s.lastEdited = id
	s.lastEditTime = s.clock()
	s.changed = true
	s.notifySelected(id, editing)
}

func (s *Session) clearSelection() {
	if len(s.selected) == 0 {
		return
	}
	old := s.selected
	s.selected = nil
	clear(s.isSel)
	s.lastEdited = track.NoNode
	s.changed = true
	for _, id := range old {
		s.notifySelected(id, false)
	}
}

// prune drops selected nodes that no longer exist.
func (s *Session) prune() {
	if s.world == nil {
		return
	}
	s.selected = lo.Filter(s.selected, func(id track.NodeID, _ int) bool {
		if s.world.Node(id) != nil {
			return true
		}
		delete(s.isSel, id)
		return false
	})
}

// lastEditAge returns how long ago id was last selected or unselected. Nodes
// other than the most recently edited one are infinitely old.
func (s *Session) lastEditAge(id track.NodeID) time.Duration {
	if id != s.lastEdited || id == track.NoNode {
		return time.Duration(1<<63 - 1)
	}
	return s.clock().Sub(s.lastEditTime)
}

func (s *Session) notifySelected(id track.NodeID, selected bool) {
	if s.world == nil {
		return
	}
	var coaster string
	if n := s.world.Node(id); n != nil {
		coaster = n.Coaster().Name()
	}
	s.world.Notifier().Notify(notify.Change{
		Coaster:  coaster,
		Node:     uint64(id),
		Type:     notify.ChangeSelected,
		Selected: selected,
		Source:   s.user,
	})
}

// selectedNodes returns the live selected nodes.
func (s *Session) selectedNodes() []*track.Node {
	out := make([]*track.Node, 0, len(s.selected))
	for _, id := range s.selected {
		if n := s.world.Node(id); n != nil {
			out = append(out, n)
		}
	}
	return out
}
