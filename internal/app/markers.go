package app

import (
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/dshills/coasters/internal/editor"
	"github.com/dshills/coasters/internal/notify"
	"github.com/dshills/coasters/internal/track"
)

// Branch is the marker drawn for one connection of a junction.
type Branch struct {
	To       track.NodeID
	Position mgl64.Vec3
	// Active is true for the two connections the track currently follows.
	Active bool
}

// Marker is the visual state of one node.
type Marker struct {
	Node     track.NodeID
	Coaster  string
	Position mgl64.Vec3
	Up       mgl64.Vec3
	Branches []Branch
	// SelectedBy lists the users whose session has the node selected.
	SelectedBy []string
}

// MarkerView keeps the visual state of every node of a world.
//
// Change notifications may arrive on any goroutine; they only record which
// markers are stale. Sync reads the graph and must run on the tick goroutine.
type MarkerView struct {
	mu       sync.Mutex
	offset   float64
	markers  map[track.NodeID]*Marker
	stale    map[track.NodeID]struct{}
	selected map[track.NodeID][]string
	reload   bool
	sub      *notify.Subscription
}

// NewMarkerView creates a view drawing junction markers offset away from
// the node.
func NewMarkerView(offset float64) *MarkerView {
	return &MarkerView{
		offset:   offset,
		markers:  make(map[track.NodeID]*Marker),
		stale:    make(map[track.NodeID]struct{}),
		selected: make(map[track.NodeID][]string),
	}
}

// Attach registers the view with w and subscribes to its changes. Every
// node already in w is marked stale.
func (m *MarkerView) Attach(w *track.World) {
	w.AddView(m)
	if n := w.Notifier(); n != nil {
		m.sub = n.Subscribe(m.observe)
	}
	m.mu.Lock()
	m.reload = true
	m.mu.Unlock()
}

// Detach undoes Attach.
func (m *MarkerView) Detach(w *track.World) {
	w.RemoveView(m)
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
}

// SetOffset changes the junction marker offset and redraws every marker.
func (m *MarkerView) SetOffset(offset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offset != offset {
		m.offset = offset
		m.reload = true
	}
}

func (m *MarkerView) observe(c notify.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := track.NodeID(c.Node)
	switch c.Type {
	case notify.ChangeReload:
		m.reload = true
	case notify.ChangeSelected:
		users := m.selected[id]
		if c.Selected {
			if !slices.Contains(users, c.Source) {
				m.selected[id] = append(users, c.Source)
			}
		} else {
			users = lo.Without(users, c.Source)
			if len(users) == 0 {
				delete(m.selected, id)
			} else {
				m.selected[id] = users
			}
		}
		m.stale[id] = struct{}{}
	case notify.ChangeRemoved:
		delete(m.stale, id)
	default:
		m.stale[id] = struct{}{}
	}
}

// Remove releases the marker of a removed node.
func (m *MarkerView) Remove(id track.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, id)
	delete(m.stale, id)
	delete(m.selected, id)
}

// Sync redraws stale markers from w and returns how many were redrawn.
// Neighbors of a stale node are redrawn too, since junction markers point
// toward neighbor positions.
func (m *MarkerView) Sync(w *track.World) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []track.NodeID
	if m.reload {
		clear(m.markers)
		for _, n := range w.Nodes() {
			ids = append(ids, n.ID())
		}
		m.reload = false
	} else {
		seen := make(map[track.NodeID]struct{}, len(m.stale))
		for id := range m.stale {
			seen[id] = struct{}{}
			if n := w.Node(id); n != nil {
				for _, nb := range n.Neighbors() {
					seen[nb] = struct{}{}
				}
			}
		}
		ids = lo.Keys(seen)
	}
	clear(m.stale)

	count := 0
	for _, id := range ids {
		n := w.Node(id)
		if n == nil {
			delete(m.markers, id)
			continue
		}
		m.markers[id] = m.draw(n)
		count++
	}
	return count
}

func (m *MarkerView) draw(n *track.Node) *Marker {
	mk := &Marker{
		Node:       n.ID(),
		Coaster:    n.Coaster().Name(),
		Position:   n.Position(),
		Up:         n.Orientation(),
		SelectedBy: slices.Clone(m.selected[n.ID()]),
	}
	if n.IsJunction() {
		for i, nb := range n.Neighbors() {
			mk.Branches = append(mk.Branches, Branch{
				To:       nb,
				Position: editor.BranchMarker(n, i, m.offset),
				Active:   i < 2,
			})
		}
	}
	return mk
}

// Marker returns a copy of the marker of id.
func (m *MarkerView) Marker(id track.NodeID) (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[id]
	if !ok {
		return Marker{}, false
	}
	out := *mk
	out.Branches = slices.Clone(mk.Branches)
	out.SelectedBy = slices.Clone(mk.SelectedBy)
	return out, true
}

// Len returns the number of drawn markers.
func (m *MarkerView) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markers)
}

// Junctions returns the ids of nodes drawn with branch markers, sorted.
func (m *MarkerView) Junctions() []track.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []track.NodeID
	for id, mk := range m.markers {
		if len(mk.Branches) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
