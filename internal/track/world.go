// Package track holds the authoritative track graph: nodes and their
// connections, grouped into named coasters, grouped per world.
//
// Nodes live in an arena keyed by NodeID and connections are stored as id
// pairs. The graph is not safe for concurrent mutation; all edits happen on
// the tick goroutine.
package track

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/notify"
)

// RailIndex is the derived spatial index kept in sync with the graph.
type RailIndex interface {
	// Store replaces the indexed sections of n.
	Store(n *Node)

	// Purge evicts every section originating from the given nodes.
	Purge(ids []NodeID)
}

// ParticleView owns view-only resources attached to nodes.
type ParticleView interface {
	// Remove releases the resources of a removed node.
	Remove(id NodeID)
}

// World is the per-world collection of coasters.
type World struct {
	name     string
	coasters map[string]*Coaster
	nodes    map[NodeID]*Node
	conns    map[ConnKey]*Connection
	nextID   NodeID

	pending map[NodeID]struct{}
	removed []string

	index    RailIndex
	views    []ParticleView
	notifier *notify.Notifier
}

// Option configures a World.
type Option func(*World)

// WithNotifier publishes node changes to n.
func WithNotifier(n *notify.Notifier) Option {
	return func(w *World) { w.notifier = n }
}

// WithRailIndex keeps idx in sync with the graph.
func WithRailIndex(idx RailIndex) Option {
	return func(w *World) { w.index = idx }
}

// NewWorld creates an empty world.
func NewWorld(name string, opts ...Option) *World {
	w := &World{
		name:     name,
		coasters: make(map[string]*Coaster),
		nodes:    make(map[NodeID]*Node),
		conns:    make(map[ConnKey]*Connection),
		pending:  make(map[NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the world name.
func (w *World) Name() string { return w.name }

// SetRailIndex attaches idx. The index is not rebuilt.
func (w *World) SetRailIndex(idx RailIndex) { w.index = idx }

// AddView registers a particle view to be told about node removals.
func (w *World) AddView(v ParticleView) { w.views = append(w.views, v) }

// RemoveView unregisters v.
func (w *World) RemoveView(v ParticleView) {
	w.views = slices.DeleteFunc(w.views, func(o ParticleView) bool { return o == v })
}

// Notifier returns the change notifier, possibly nil.
func (w *World) Notifier() *notify.Notifier { return w.notifier }

// Node returns the node with the given id, or nil.
func (w *World) Node(id NodeID) *Node { return w.nodes[id] }

// NodeCount returns the number of nodes in the world.
func (w *World) NodeCount() int { return len(w.nodes) }

// Nodes returns every node, ordered by id.
func (w *World) Nodes() []*Node {
	out := lo.Values(w.nodes)
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Connection returns the connection between a and b, or nil.
func (w *World) Connection(a, b NodeID) *Connection { return w.conns[KeyOf(a, b)] }

// ConnectionCount returns the number of connections in the world.
func (w *World) ConnectionCount() int { return len(w.conns) }

// Coaster returns the coaster with the given name, or nil.
func (w *World) Coaster(name string) *Coaster { return w.coasters[name] }

// Coasters returns every coaster ordered by name.
func (w *World) Coasters() []*Coaster {
	out := lo.Values(w.coasters)
	slices.SortFunc(out, func(a, b *Coaster) int { return strings.Compare(a.name, b.name) })
	return out
}

// CreateCoaster adds an empty coaster.
func (w *World) CreateCoaster(name string) (*Coaster, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if _, ok := w.coasters[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCoasterExists, name)
	}
	c := &Coaster{name: name, world: w}
	c.MarkDirty()
	w.coasters[name] = c
	w.removed = slices.DeleteFunc(w.removed, func(s string) bool { return s == name })
	return c, nil
}

// NextCoasterName returns the first free name of the form coasterN.
func (w *World) NextCoasterName() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("coaster%d", i)
		if _, ok := w.coasters[name]; !ok {
			return name
		}
	}
}

// RemoveCoaster removes a coaster and all its nodes.
func (w *World) RemoveCoaster(name string) error {
	c, ok := w.coasters[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCoasterNotFound, name)
	}
	for _, id := range c.NodeIDs() {
		w.RemoveNode(id)
	}
	// RemoveNode drops the coaster once empty; cover the already-empty case.
	if _, ok := w.coasters[name]; ok {
		w.dropCoaster(c)
	}
	return nil
}

// RenameCoaster changes a coaster name. The old name is recorded as removed
// so its persisted resource can be cleaned up.
func (w *World) RenameCoaster(oldName, newName string) error {
	c, ok := w.coasters[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCoasterNotFound, oldName)
	}
	if newName == "" {
		return ErrInvalidName
	}
	if _, taken := w.coasters[newName]; taken {
		return fmt.Errorf("%w: %s", ErrCoasterExists, newName)
	}
	delete(w.coasters, oldName)
	c.name = newName
	w.coasters[newName] = c
	w.removed = append(w.removed, oldName)
	c.MarkDirty()
	return nil
}

// TakeRemovedCoasters returns and clears the names of coasters removed since
// the last call.
func (w *World) TakeRemovedCoasters() []string {
	out := w.removed
	w.removed = nil
	return out
}

// AddNode creates a node in coaster c. A zero up vector defaults to world up.
func (w *World) AddNode(c *Coaster, pos, up mgl64.Vec3) *Node {
	if up == (mgl64.Vec3{}) {
		up = geom.Up
	}
	w.nextID++
	n := &Node{id: w.nextID, pos: pos, up: up, coaster: c}
	w.nodes[n.id] = n
	c.nodes = append(c.nodes, n.id)
	c.MarkDirty()
	w.markChanged(n.id)
	w.notifier.NotifyNode(c.name, uint64(n.id), notify.ChangeCreated, w.name)
	return n
}

// AddNodeAfter creates a node in the coaster of after and connects the two.
func (w *World) AddNodeAfter(after NodeID, pos, up mgl64.Vec3) (*Node, error) {
	prev := w.nodes[after]
	if prev == nil {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, after)
	}
	if up == (mgl64.Vec3{}) {
		up = prev.up
	}
	n := w.AddNode(prev.coaster, pos, up)
	if err := w.Connect(prev.id, n.id); err != nil {
		return nil, err
	}
	return n, nil
}

// Connect joins a and b. Connecting an existing pair is a no-op.
func (w *World) Connect(a, b NodeID) error {
	if a == b {
		return ErrSelfConnection
	}
	na, nb := w.nodes[a], w.nodes[b]
	if na == nil || nb == nil {
		return fmt.Errorf("%w: connect %d-%d", ErrNodeNotFound, a, b)
	}
	key := KeyOf(a, b)
	if _, ok := w.conns[key]; ok {
		return nil
	}

	w.conns[key] = &Connection{key: key, world: w}
	na.neighbors = append(na.neighbors, b)
	nb.neighbors = append(nb.neighbors, a)

	w.touch(na, notify.ChangeConnected)
	w.touch(nb, notify.ChangeConnected)
	return nil
}

// Disconnect severs the connection between a and b, if any.
func (w *World) Disconnect(a, b NodeID) {
	key := KeyOf(a, b)
	if _, ok := w.conns[key]; !ok {
		return
	}
	delete(w.conns, key)

	// Touch before unlinking so the former neighbors' curves are invalidated too.
	for _, id := range []NodeID{a, b} {
		if n := w.nodes[id]; n != nil {
			w.touch(n, notify.ChangeDisconnected)
		}
	}
	if na := w.nodes[a]; na != nil {
		na.removeNeighbor(b)
	}
	if nb := w.nodes[b]; nb != nil {
		nb.removeNeighbor(a)
	}
}

// RemoveNode detaches a node from all connections, purges it from the
// rail index and deletes it. Removing an unknown node is a no-op. A coaster
// left without nodes is removed as well.
func (w *World) RemoveNode(id NodeID) {
	n := w.nodes[id]
	if n == nil {
		return
	}
	for _, nb := range n.Neighbors() {
		w.Disconnect(id, nb)
	}

	delete(w.nodes, id)
	delete(w.pending, id)
	n.coaster.removeNode(id)
	n.coaster.MarkDirty()

	if w.index != nil {
		w.index.Purge([]NodeID{id})
	}
	for _, v := range slices.Clone(w.views) {
		v.Remove(id)
	}
	w.notifier.NotifyNode(n.coaster.name, uint64(id), notify.ChangeRemoved, w.name)

	if n.coaster.Len() == 0 {
		w.dropCoaster(n.coaster)
	}
}

// SetPosition moves a node.
func (w *World) SetPosition(id NodeID, pos mgl64.Vec3) error {
	n := w.nodes[id]
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	if n.pos == pos {
		return nil
	}
	n.pos = pos
	w.touch(n, notify.ChangeMoved)
	return nil
}

// SetOrientation changes the up vector of a node. The vector is normalized;
// a zero vector is ignored.
func (w *World) SetOrientation(id NodeID, up mgl64.Vec3) error {
	n := w.nodes[id]
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	up = geom.Normalize(up)
	if up == (mgl64.Vec3{}) || up == n.up {
		return nil
	}
	n.up = up
	w.touch(n, notify.ChangeOriented)
	return nil
}

// SwitchJunction makes branch part of the node's primary pair. The branch
// takes the slot of the primary connection it is not paired with; the
// displaced connection moves to the branch's old position.
func (w *World) SwitchJunction(id, branch NodeID) error {
	n := w.nodes[id]
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	i := slices.Index(n.neighbors, branch)
	if i < 0 {
		return fmt.Errorf("%w: %d-%d", ErrNodeNotFound, id, branch)
	}
	if !n.IsJunction() {
		return ErrNotJunction
	}
	if i < 2 {
		return nil
	}
	slot := 1 - n.BranchPartner(i)
	n.neighbors[slot], n.neighbors[i] = n.neighbors[i], n.neighbors[slot]
	w.touch(n, notify.ChangeConnected)
	return nil
}

// SetNeighborOrder reorders the connections of a node so that first come first,
// in the given order. Unknown ids are ignored.
func (w *World) SetNeighborOrder(id NodeID, first ...NodeID) {
	n := w.nodes[id]
	if n == nil {
		return
	}
	ordered := make([]NodeID, 0, len(n.neighbors))
	for _, f := range first {
		if n.IsConnected(f) && !slices.Contains(ordered, f) {
			ordered = append(ordered, f)
		}
	}
	for _, nb := range n.neighbors {
		if !slices.Contains(ordered, nb) {
			ordered = append(ordered, nb)
		}
	}
	if slices.Equal(ordered, n.neighbors) {
		return
	}
	n.neighbors = ordered
	w.touch(n, notify.ChangeConnected)
}

// FindNodeExact returns the node at pos within a component-wise tolerance of 1e-6.
func (w *World) FindNodeExact(pos mgl64.Vec3) *Node {
	for _, n := range w.nodes {
		if geom.Near(n.pos, pos) {
			return n
		}
	}
	return nil
}

// FindNodesNear returns every node within radius of pos, in no particular order.
func (w *World) FindNodesNear(pos mgl64.Vec3, radius float64) []*Node {
	r2 := radius * radius
	var out []*Node
	for _, n := range w.nodes {
		if geom.DistanceSq(n.pos, pos) <= r2 {
			out = append(out, n)
		}
	}
	return out
}

// Refresh applies pending node changes to the rail index and returns the
// number of nodes refreshed.
func (w *World) Refresh() int {
	count := len(w.pending)
	if w.index != nil {
		ids := lo.Keys(w.pending)
		slices.Sort(ids)
		for _, id := range ids {
			if n := w.nodes[id]; n != nil {
				w.index.Store(n)
			}
		}
	}
	clear(w.pending)
	return count
}

// PendingCount returns the number of nodes awaiting Refresh.
func (w *World) PendingCount() int { return len(w.pending) }

// touch records a change to n: its curves and its neighbors' curves are
// invalidated, the coaster is marked dirty and observers are notified.
func (w *World) touch(n *Node, typ notify.ChangeType) {
	w.markChanged(n.id)
	n.coaster.MarkDirty()
	w.notifier.NotifyNode(n.coaster.name, uint64(n.id), typ, w.name)
}

// markChanged queues n and its neighbors for re-indexing. Curves of every
// connection touching them are invalidated since node tangents depend on
// neighbor positions.
func (w *World) markChanged(id NodeID) {
	n := w.nodes[id]
	if n == nil {
		return
	}
	w.pending[id] = struct{}{}
	for _, nb := range n.neighbors {
		w.pending[nb] = struct{}{}
		w.invalidate(nb)
	}
	w.invalidate(id)
}

func (w *World) invalidate(id NodeID) {
	n := w.nodes[id]
	if n == nil {
		return
	}
	for _, nb := range n.neighbors {
		if c := w.conns[KeyOf(id, nb)]; c != nil {
			c.stale = true
		}
	}
}

func (w *World) dropCoaster(c *Coaster) {
	if w.coasters[c.name] != c {
		return
	}
	delete(w.coasters, c.name)
	w.removed = append(w.removed, c.name)
}
