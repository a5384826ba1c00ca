package track

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coasters/internal/notify"
)

type fakeIndex struct {
	stored map[NodeID]int
	purged []NodeID
}

func newFakeIndex() *fakeIndex { return &fakeIndex{stored: map[NodeID]int{}} }

func (f *fakeIndex) Store(n *Node)      { f.stored[n.ID()]++ }
func (f *fakeIndex) Purge(ids []NodeID) { f.purged = append(f.purged, ids...) }

type fakeView struct{ removed []NodeID }

func (f *fakeView) Remove(id NodeID) { f.removed = append(f.removed, id) }

// chain builds a coaster with nodes along +x, each connected to the previous one.
func chain(t *testing.T, w *World, name string, n int) []*Node {
	t.Helper()
	c, err := w.CreateCoaster(name)
	require.NoError(t, err)
	nodes := []*Node{w.AddNode(c, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{})}
	for i := 1; i < n; i++ {
		next, err := w.AddNodeAfter(nodes[i-1].ID(), mgl64.Vec3{float64(i), 0, 0}, mgl64.Vec3{})
		require.NoError(t, err)
		nodes = append(nodes, next)
	}
	return nodes
}

func TestWorld_CreateCoaster(t *testing.T) {
	w := NewWorld("w")

	c, err := w.CreateCoaster("red")
	require.NoError(t, err)
	assert.Equal(t, "red", c.Name())
	assert.True(t, c.IsDirty())

	_, err = w.CreateCoaster("red")
	assert.True(t, errors.Is(err, ErrCoasterExists))

	_, err = w.CreateCoaster("")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestWorld_NextCoasterName(t *testing.T) {
	w := NewWorld("w")
	assert.Equal(t, "coaster1", w.NextCoasterName())
	_, _ = w.CreateCoaster("coaster1")
	_, _ = w.CreateCoaster("coaster3")
	assert.Equal(t, "coaster2", w.NextCoasterName())
}

func TestWorld_ConnectIsSymmetricAndIdempotent(t *testing.T) {
	w := NewWorld("w")
	c, _ := w.CreateCoaster("c")
	a := w.AddNode(c, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{})
	b := w.AddNode(c, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})

	require.NoError(t, w.Connect(a.ID(), b.ID()))
	require.NoError(t, w.Connect(b.ID(), a.ID()))

	assert.Equal(t, []NodeID{b.ID()}, a.Neighbors())
	assert.Equal(t, []NodeID{a.ID()}, b.Neighbors())
	assert.Equal(t, 1, w.ConnectionCount())

	assert.ErrorIs(t, w.Connect(a.ID(), a.ID()), ErrSelfConnection)
	assert.ErrorIs(t, w.Connect(a.ID(), 999), ErrNodeNotFound)
}

func TestWorld_DisconnectNonEdgeIsNoop(t *testing.T) {
	w := NewWorld("w")
	nodes := chain(t, w, "c", 3)
	c := nodes[0].Coaster()
	c.ClearDirty()

	w.Disconnect(nodes[0].ID(), nodes[2].ID())
	assert.False(t, c.IsDirty())
	assert.Equal(t, 2, w.ConnectionCount())

	w.Disconnect(nodes[0].ID(), nodes[1].ID())
	assert.True(t, c.IsDirty())
	assert.Equal(t, 0, nodes[0].ConnectionCount())
	assert.Equal(t, []NodeID{nodes[2].ID()}, nodes[1].Neighbors())
}

func TestWorld_RemoveNode(t *testing.T) {
	idx := newFakeIndex()
	view := &fakeView{}
	w := NewWorld("w", WithRailIndex(idx))
	w.AddView(view)
	nodes := chain(t, w, "c", 3)
	mid := nodes[1].ID()

	w.RemoveNode(mid)

	assert.Nil(t, w.Node(mid))
	assert.Equal(t, 0, nodes[0].ConnectionCount())
	assert.Equal(t, 0, nodes[2].ConnectionCount())
	assert.Equal(t, 0, w.ConnectionCount())
	assert.Equal(t, []NodeID{mid}, idx.purged)
	assert.Equal(t, []NodeID{mid}, view.removed)
	assert.Equal(t, 2, nodes[0].Coaster().Len())

	// removing again is a no-op
	w.RemoveNode(mid)
	assert.Len(t, idx.purged, 1)
}

func TestWorld_RemoveLastNodeDropsCoaster(t *testing.T) {
	w := NewWorld("w")
	nodes := chain(t, w, "solo", 1)

	w.RemoveNode(nodes[0].ID())

	assert.Nil(t, w.Coaster("solo"))
	assert.Equal(t, []string{"solo"}, w.TakeRemovedCoasters())
	assert.Empty(t, w.TakeRemovedCoasters())
}

func TestWorld_FindNodes(t *testing.T) {
	w := NewWorld("w")
	chain(t, w, "c", 4)

	n := w.FindNodeExact(mgl64.Vec3{2, 0, 0})
	require.NotNil(t, n)
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, n.Position())

	assert.NotNil(t, w.FindNodeExact(mgl64.Vec3{2 + 1e-7, 0, 0}))
	assert.Nil(t, w.FindNodeExact(mgl64.Vec3{2.01, 0, 0}))

	assert.Len(t, w.FindNodesNear(mgl64.Vec3{1.5, 0, 0}, 0.6), 2)
	assert.Len(t, w.FindNodesNear(mgl64.Vec3{1.5, 0, 0}, 0.4), 0)
	assert.Len(t, w.FindNodesNear(mgl64.Vec3{1, 0, 0}, 1), 3)
}

func TestWorld_RefreshStoresPendingNodes(t *testing.T) {
	idx := newFakeIndex()
	w := NewWorld("w", WithRailIndex(idx))
	nodes := chain(t, w, "c", 4)

	assert.Equal(t, 4, w.Refresh())
	assert.Equal(t, 0, w.PendingCount())

	clear(idx.stored)
	require.NoError(t, w.SetPosition(nodes[0].ID(), mgl64.Vec3{0, 1, 0}))
	w.Refresh()

	// the moved node and its neighbor are re-indexed
	assert.Equal(t, map[NodeID]int{nodes[0].ID(): 1, nodes[1].ID(): 1}, idx.stored)
}

func TestWorld_SetOrientation(t *testing.T) {
	w := NewWorld("w")
	nodes := chain(t, w, "c", 1)

	require.NoError(t, w.SetOrientation(nodes[0].ID(), mgl64.Vec3{0, 0, 2}))
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, nodes[0].Orientation())

	require.NoError(t, w.SetOrientation(nodes[0].ID(), mgl64.Vec3{}))
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, nodes[0].Orientation())

	assert.ErrorIs(t, w.SetOrientation(999, mgl64.Vec3{1, 0, 0}), ErrNodeNotFound)
}

// junction builds a node at the origin with neighbors at the given positions,
// connected in order.
func junction(t *testing.T, w *World, dirs ...mgl64.Vec3) (*Node, []*Node) {
	t.Helper()
	c, err := w.CreateCoaster(w.NextCoasterName())
	require.NoError(t, err)
	center := w.AddNode(c, mgl64.Vec3{}, mgl64.Vec3{})
	var out []*Node
	for _, d := range dirs {
		n := w.AddNode(c, d, mgl64.Vec3{})
		require.NoError(t, w.Connect(center.ID(), n.ID()))
		out = append(out, n)
	}
	return center, out
}

func TestNode_BranchPartner(t *testing.T) {
	tests := []struct {
		name   string
		branch mgl64.Vec3
		want   int
	}{
		{"closer to first", mgl64.Vec3{1, 0, 0.2}, 0},
		{"closer to second", mgl64.Vec3{0.2, 0, 1}, 1},
		{"tie favors first", mgl64.Vec3{1, 0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld("w")
			center, _ := junction(t, w, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}, tt.branch)
			assert.Equal(t, tt.want, center.BranchPartner(2))
		})
	}
}

func TestWorld_SwitchJunction(t *testing.T) {
	w := NewWorld("w")
	// straight track along x with a branch leaving toward +z, slightly forward
	center, n := junction(t, w, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 0, 1})
	left, right, branch := n[0].ID(), n[1].ID(), n[2].ID()

	require.NoError(t, w.SwitchJunction(center.ID(), branch))

	// the branch pairs with the right connection, so it replaces the left one
	assert.Equal(t, []NodeID{branch, right, left}, center.Neighbors())

	// switching to a primary connection is a no-op
	require.NoError(t, w.SwitchJunction(center.ID(), right))
	assert.Equal(t, []NodeID{branch, right, left}, center.Neighbors())

	plain, pn := junction(t, w, mgl64.Vec3{5, 0, 0}, mgl64.Vec3{6, 0, 0})
	assert.ErrorIs(t, w.SwitchJunction(plain.ID(), pn[0].ID()), ErrNotJunction)
}

func TestWorld_SetNeighborOrder(t *testing.T) {
	w := NewWorld("w")
	center, n := junction(t, w, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 0, 1})

	w.SetNeighborOrder(center.ID(), n[2].ID(), n[0].ID(), 12345)
	assert.Equal(t, []NodeID{n[2].ID(), n[0].ID(), n[1].ID()}, center.Neighbors())
}

func TestWorld_Notifications(t *testing.T) {
	nt := notify.New()
	defer nt.Close()
	var types []notify.ChangeType
	nt.Subscribe(func(c notify.Change) { types = append(types, c.Type) })

	w := NewWorld("w", WithNotifier(nt))
	c, _ := w.CreateCoaster("c")
	a := w.AddNode(c, mgl64.Vec3{}, mgl64.Vec3{})
	b := w.AddNode(c, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})
	require.NoError(t, w.Connect(a.ID(), b.ID()))
	w.RemoveNode(b.ID())

	assert.Equal(t, []notify.ChangeType{
		notify.ChangeCreated,
		notify.ChangeCreated,
		notify.ChangeConnected,
		notify.ChangeConnected,
		notify.ChangeDisconnected,
		notify.ChangeDisconnected,
		notify.ChangeRemoved,
	}, types)
}

func TestWorld_RenameCoaster(t *testing.T) {
	w := NewWorld("w")
	chain(t, w, "old", 2)

	require.NoError(t, w.RenameCoaster("old", "new"))
	assert.Nil(t, w.Coaster("old"))
	require.NotNil(t, w.Coaster("new"))
	assert.Equal(t, "new", w.Coaster("new").Nodes()[0].Coaster().Name())
	assert.Equal(t, []string{"old"}, w.TakeRemovedCoasters())

	assert.ErrorIs(t, w.RenameCoaster("missing", "x"), ErrCoasterNotFound)
}
