package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coasters/internal/notify"
	"github.com/dshills/coasters/internal/track"
)

// junctionWorld builds a node with three neighbors: left, right and up.
func junctionWorld(t *testing.T) (*track.World, track.NodeID, []track.NodeID) {
	t.Helper()
	w := track.NewWorld("test", track.WithNotifier(notify.New()))
	c, err := w.CreateCoaster("main")
	require.NoError(t, err)
	center := w.AddNode(c, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{})
	var arms []track.NodeID
	for _, p := range []mgl64.Vec3{{-1, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		n, err := w.AddNodeAfter(center.ID(), p, mgl64.Vec3{})
		require.NoError(t, err)
		arms = append(arms, n.ID())
	}
	return w, center.ID(), arms
}

func TestMarkerView_DrawsJunctionBranches(t *testing.T) {
	w, center, arms := junctionWorld(t)
	mv := NewMarkerView(0.5)
	mv.Attach(w)

	assert.Equal(t, 4, mv.Sync(w))
	assert.Equal(t, []track.NodeID{center}, mv.Junctions())

	mk, ok := mv.Marker(center)
	require.True(t, ok)
	require.Len(t, mk.Branches, 3)
	for i, b := range mk.Branches {
		assert.Equal(t, arms[i], b.To)
		assert.Equal(t, i < 2, b.Active, "branch %d", i)
	}
	assert.InDelta(t, 0.5, mk.Branches[2].Position.Y(), 1e-9)

	arm, ok := mv.Marker(arms[0])
	require.True(t, ok)
	assert.Empty(t, arm.Branches)
	assert.Equal(t, "main", arm.Coaster)
}

func TestMarkerView_RedrawsNeighborsOfChangedNodes(t *testing.T) {
	w, center, arms := junctionWorld(t)
	mv := NewMarkerView(1)
	mv.Attach(w)
	mv.Sync(w)

	require.NoError(t, w.SetPosition(arms[2], mgl64.Vec3{0, 0, 1}))
	assert.Equal(t, 2, mv.Sync(w))

	mk, _ := mv.Marker(center)
	assert.InDelta(t, 1, mk.Branches[2].Position.Z(), 1e-9)
	assert.Equal(t, 0, mv.Sync(w))
}

func TestMarkerView_TracksSelection(t *testing.T) {
	w, center, _ := junctionWorld(t)
	mv := NewMarkerView(0.3)
	mv.Attach(w)
	mv.Sync(w)

	sel := func(user string, on bool) {
		w.Notifier().Notify(notify.Change{
			Coaster: "main", Node: uint64(center), Type: notify.ChangeSelected,
			Selected: on, Source: user,
		})
	}
	sel("alice", true)
	sel("bob", true)
	sel("alice", true)
	mv.Sync(w)
	mk, _ := mv.Marker(center)
	assert.Equal(t, []string{"alice", "bob"}, mk.SelectedBy)

	sel("alice", false)
	mv.Sync(w)
	mk, _ = mv.Marker(center)
	assert.Equal(t, []string{"bob"}, mk.SelectedBy)
}

func TestMarkerView_RemoveAndDetach(t *testing.T) {
	w, center, arms := junctionWorld(t)
	mv := NewMarkerView(0.3)
	mv.Attach(w)
	mv.Sync(w)

	w.RemoveNode(arms[0])
	_, ok := mv.Marker(arms[0])
	assert.False(t, ok)

	mv.Sync(w)
	mk, _ := mv.Marker(center)
	assert.Len(t, mk.Branches, 0, "two neighbors left is no junction")
	assert.Equal(t, 3, mv.Len())

	mv.Detach(w)
	require.NoError(t, w.SetPosition(center, mgl64.Vec3{5, 5, 5}))
	mv.Sync(w)
	mk, _ = mv.Marker(center)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, mk.Position)
}

func TestMarkerView_ReloadRedrawsEverything(t *testing.T) {
	w, _, _ := junctionWorld(t)
	mv := NewMarkerView(0.3)
	mv.Attach(w)
	mv.Sync(w)

	w.Notifier().NotifyReload("test")
	assert.Equal(t, 4, mv.Sync(w))

	mv.SetOffset(0.3)
	assert.Equal(t, 0, mv.Sync(w))
	mv.SetOffset(0.6)
	assert.Equal(t, 4, mv.Sync(w))
}
