package persist

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/track"
	"github.com/dshills/coasters/internal/vfs"
)

const dataDir = "/data"

var errDisk = errors.New("disk full")

func newStore(m *vfs.MemFS) *Store {
	return NewStore(m, dataDir, WithLogger(log.Nop()))
}

// graphShape is a comparable description of a world: node states and edge
// sets keyed by position.
type graphShape struct {
	Nodes    map[string]string
	Edges    []string
	Primary  map[string][]string
	Coasters map[string][]string
}

func shapeOf(w *track.World) graphShape {
	g := graphShape{
		Nodes:    map[string]string{},
		Primary:  map[string][]string{},
		Coasters: map[string][]string{},
	}
	for _, n := range w.Nodes() {
		key := FormatPos(n.Position())
		g.Nodes[key] = FormatPos(n.Orientation())
		g.Coasters[n.Coaster().Name()] = append(g.Coasters[n.Coaster().Name()], key)

		for _, id := range n.Neighbors() {
			other := FormatPos(w.Node(id).Position())
			if key < other {
				g.Edges = append(g.Edges, key+"|"+other)
			}
		}
		if n.IsJunction() {
			for _, id := range n.Neighbors()[:2] {
				g.Primary[key] = append(g.Primary[key], FormatPos(w.Node(id).Position()))
			}
		}
	}
	slices.Sort(g.Edges)
	for _, nodes := range g.Coasters {
		slices.Sort(nodes)
	}
	return g
}

func add(t *testing.T, w *track.World, c *track.Coaster, x, y, z float64) *track.Node {
	t.Helper()
	return w.AddNode(c, mgl64.Vec3{x, y, z}, mgl64.Vec3{})
}

func connect(t *testing.T, w *track.World, a, b *track.Node) {
	t.Helper()
	require.NoError(t, w.Connect(a.ID(), b.ID()))
}

// sampleWorld builds a junction, a chain, a closed loop and a connection
// between two coasters.
func sampleWorld(t *testing.T) *track.World {
	t.Helper()
	w := track.NewWorld("test")

	main, err := w.CreateCoaster("main")
	require.NoError(t, err)
	j := add(t, w, main, 0, 0, 0)
	a := add(t, w, main, 1, 0, 0)
	b := add(t, w, main, -1, 0, 0)
	c := add(t, w, main, 0, 0, 1)
	d := add(t, w, main, -2, 0.5, 0)
	connect(t, w, j, a)
	connect(t, w, j, c)
	connect(t, w, j, b)
	connect(t, w, b, d)
	require.NoError(t, w.SetOrientation(d.ID(), mgl64.Vec3{0, 0, 1}))

	loop, err := w.CreateCoaster("loop")
	require.NoError(t, err)
	l1 := add(t, w, loop, 5, 0, 0)
	l2 := add(t, w, loop, 6, 0, 0)
	l3 := add(t, w, loop, 5.5, 1, 0.25)
	connect(t, w, l1, l2)
	connect(t, w, l2, l3)
	connect(t, w, l3, l1)

	left, err := w.CreateCoaster(`yard/left:1`)
	require.NoError(t, err)
	right, err := w.CreateCoaster("yard*right")
	require.NoError(t, err)
	p := add(t, w, left, 10, 0, 0)
	q := add(t, w, right, 11, 0, 0)
	r := add(t, w, right, 12, 0, 0)
	connect(t, w, p, q)
	connect(t, w, q, r)
	return w
}

func TestStore_RoundTrip(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	want := shapeOf(w)

	require.NoError(t, s.SaveAll(w, true))
	assert.True(t, m.Exists("/data/yard%2Fleft%3A1.csv"))
	assert.True(t, m.Exists("/data/yard%2Aright.csv"))

	loaded := track.NewWorld("test")
	res, err := s.LoadAll(loaded)
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)
	assert.Zero(t, res.Skipped)
	assert.ElementsMatch(t, []string{"main", "loop", "yard/left:1", "yard*right"}, res.Coasters)

	if diff := cmp.Diff(want, shapeOf(loaded)); diff != "" {
		t.Errorf("loaded graph mismatch (-want +got):\n%s", diff)
	}
	for _, c := range loaded.Coasters() {
		assert.False(t, c.IsDirty(), "coaster %s dirty after load", c.Name())
	}
}

func TestStore_RoundTripKeepsSwitchedJunction(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)

	j := w.FindNodeExact(mgl64.Vec3{0, 0, 0})
	b := w.FindNodeExact(mgl64.Vec3{-1, 0, 0})
	require.NoError(t, w.SwitchJunction(j.ID(), b.ID()))
	want := shapeOf(w)

	require.NoError(t, s.SaveAll(w, true))
	loaded := track.NewWorld("test")
	_, err := s.LoadAll(loaded)
	require.NoError(t, err)

	if diff := cmp.Diff(want.Primary, shapeOf(loaded).Primary); diff != "" {
		t.Errorf("junction primary pair mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRows_JunctionsFirst(t *testing.T) {
	w := sampleWorld(t)
	rows := EncodeRows(w.Coaster("main"))

	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, []string{KindRoot, "0", "0", "0", "0", "1", "0"}, rows[0])
	assert.Equal(t, []string{KindLink, "1", "0", "0"}, rows[1])
	assert.Equal(t, []string{KindLink, "0", "0", "1"}, rows[2])
	// Chain endpoints come next.
	assert.Equal(t, KindRoot, rows[3][0])
}

func TestDecodeRows_SkipsMalformedRows(t *testing.T) {
	in := strings.Join([]string{
		"LINK,1,2,3",
		"ROOT,0,0,0,0,1,0",
		"NODE,1,0,0,0,1,0",
		"NODE,oops,0,0,0,1,0",
		"BOGUS,1,2,3",
		"NODE,2,0,0",
		"NODE,3,0,0,0,1,0",
		"LINK,0,0,0",
		"LINK,9,9,9",
	}, "\n")

	w := track.NewWorld("test")
	dec, err := DecodeRows(strings.NewReader(in), w, "c")
	require.NoError(t, err)
	assert.Len(t, dec.Skipped, 4)
	for _, e := range dec.Skipped {
		assert.ErrorIs(t, e, ErrMalformedRow)
	}
	assert.Equal(t, 3, dec.Coaster.Len())

	unresolved := ResolveLinks(w, dec.Links)
	require.Len(t, unresolved, 1)
	assert.Equal(t, mgl64.Vec3{9, 9, 9}, unresolved[0].To)

	// 0-1, 1-3 and the closing link 3-0.
	assert.Equal(t, 3, w.ConnectionCount())
}

func TestStore_SaveSkipsCleanCoasters(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	require.NoError(t, s.SaveAll(w, true))

	// Writes of main fail from now on; clean coasters are not written at all.
	main := s.FileOf("main")
	m.FailOn(vfs.OpCreate, main+tmpExt, errDisk)

	wrote, err := s.Save(w.Coaster("main"), false)
	require.NoError(t, err)
	assert.False(t, wrote)
	require.NoError(t, s.SaveAll(w, false))

	_, err = s.Save(w.Coaster("main"), true)
	require.Error(t, err)
	assert.True(t, w.Coaster("main").IsDirty())
}

func TestStore_WriteFailureKeepsPreviousFile(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	c := w.Coaster("loop")
	_, err := s.Save(c, true)
	require.NoError(t, err)

	file := s.FileOf("loop")
	before, ok := m.Content(file)
	require.True(t, ok)

	add(t, w, c, 50, 50, 50)
	m.FailOn(vfs.OpWrite, file+tmpExt, errDisk)
	_, err = s.Save(c, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	var perr *PathError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "write", perr.Op)

	after, _ := m.Content(file)
	assert.Equal(t, before, after)
	assert.False(t, m.Exists(file+tmpExt))
	assert.True(t, c.IsDirty())

	// The next attempt succeeds once the disk recovers.
	m.FailOn(vfs.OpWrite, file+tmpExt, nil)
	wrote, err := s.Save(c, false)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.False(t, c.IsDirty())
}

func TestStore_RemoveFailureKeepsPreviousFile(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	c := w.Coaster("loop")
	_, err := s.Save(c, true)
	require.NoError(t, err)
	file := s.FileOf("loop")
	before, _ := m.Content(file)

	m.FailOn(vfs.OpRemove, file, errDisk)
	_, err = s.Save(c, true)
	require.Error(t, err)

	after, ok := m.Content(file)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.False(t, m.Exists(file+tmpExt))
}

func TestStore_RenameFallsBackToCopy(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	c := w.Coaster("loop")
	file := s.FileOf("loop")

	m.FailOn(vfs.OpRename, file+tmpExt, errDisk)
	_, err := s.Save(c, true)
	require.NoError(t, err)

	assert.True(t, m.Exists(file))
	assert.False(t, m.Exists(file+tmpExt))

	loaded := track.NewWorld("test")
	_, err = s.Load(loaded, "loop")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Coaster("loop").Len())
}

func TestStore_InterruptedSaveRecoversFromTemp(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	c := w.Coaster("loop")
	_, err := s.Save(c, true)
	require.NoError(t, err)

	// The old file is deleted, then both rename and copy fail.
	file := s.FileOf("loop")
	add(t, w, c, 7, 7, 7)
	m.FailOn(vfs.OpRename, file+tmpExt, errDisk)
	m.FailOn(vfs.OpCreate, file, errDisk)
	_, err = s.Save(c, false)
	require.Error(t, err)

	assert.False(t, m.Exists(file))
	tmp, ok := m.Content(file + tmpExt)
	require.True(t, ok)
	assert.Contains(t, tmp, "7,7,7")

	loaded := track.NewWorld("test")
	res, err := s.LoadAll(loaded)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, res.Recovered)
	require.NotNil(t, loaded.Coaster("loop"))
	assert.Equal(t, 4, loaded.Coaster("loop").Len())
}

func TestStore_LoadMissing(t *testing.T) {
	s := newStore(vfs.NewMemFS())
	_, err := s.Load(track.NewWorld("test"), "ghost")
	assert.ErrorIs(t, err, ErrMissing)

	res, err := s.LoadAll(track.NewWorld("test"))
	require.NoError(t, err)
	assert.Empty(t, res.Coasters)
}

func TestStore_LoadReplacesCoaster(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	require.NoError(t, s.SaveAll(w, true))

	c := w.Coaster("loop")
	add(t, w, c, 8, 8, 8)
	require.Equal(t, 4, c.Len())

	_, err := s.Load(w, "loop")
	require.NoError(t, err)
	assert.Equal(t, 3, w.Coaster("loop").Len())
	assert.Empty(t, w.TakeRemovedCoasters())
}

func TestStore_RemovedCoasterFilesAreDeleted(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	require.NoError(t, s.SaveAll(w, true))

	require.NoError(t, w.RemoveCoaster("loop"))
	require.NoError(t, w.RenameCoaster("main", "renamed"))
	require.NoError(t, s.SaveAll(w, false))

	assert.False(t, m.Exists(s.FileOf("loop")))
	assert.False(t, m.Exists(s.FileOf("main")))
	assert.True(t, m.Exists(s.FileOf("renamed")))
}

func TestAutosaver_Tick(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	a := NewAutosaver(s, time.Minute)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, a.Tick(start, w))
	assert.False(t, a.Tick(start.Add(30*time.Second), w))
	assert.True(t, a.Tick(start.Add(time.Minute), w))
	require.NoError(t, a.Wait())
	assert.True(t, m.Exists(s.FileOf("main")))

	for _, c := range w.Coasters() {
		assert.False(t, c.IsDirty())
	}
	assert.Equal(t, 1, a.Saves())

	// Nothing dirty: the next save writes nothing new.
	before, _ := m.Content(s.FileOf("main"))
	assert.True(t, a.Tick(start.Add(2*time.Minute), w))
	require.NoError(t, a.Wait())
	after, _ := m.Content(s.FileOf("main"))
	assert.Equal(t, before, after)
}

func TestAutosaver_Disabled(t *testing.T) {
	a := NewAutosaver(newStore(vfs.NewMemFS()), 0)
	assert.False(t, a.Tick(time.Now(), track.NewWorld("w")))
	assert.NoError(t, a.Wait())
}

func TestAutosaver_FlushReportsFailure(t *testing.T) {
	m := vfs.NewMemFS()
	s := newStore(m)
	w := sampleWorld(t)
	m.FailOn(vfs.OpCreate, s.FileOf("main")+tmpExt, errDisk)

	err := NewAutosaver(s, time.Minute).Flush(w)
	require.ErrorIs(t, err, errDisk)
	assert.True(t, w.Coaster("main").IsDirty())
	assert.False(t, w.Coaster("loop").IsDirty())
}
