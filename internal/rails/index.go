// Package rails maintains the spatial index mapping grid cells to the rail
// sections passing through them.
//
// Two maps are kept: sections by the cell of their originating node
// ("rails" cells) and sections by every cell their path crosses ("block"
// cells). Like the track graph, the index is mutated only from the tick
// goroutine.
package rails

import (
	"math"
	"slices"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/track"
)

// DefaultStep is the sampling distance along rail paths.
const DefaultStep = 0.1

// Index maps grid cells to rail sections.
type Index struct {
	step    float64
	byRails map[cube.Pos][]*Section
	byBlock map[cube.Pos][]*Section
	byNode  map[track.NodeID][]*Section
}

// Option configures an Index.
type Option func(*Index)

// WithStep overrides the sampling step.
func WithStep(step float64) Option {
	return func(idx *Index) {
		if step > 0 {
			idx.step = step
		}
	}
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	idx := &Index{step: DefaultStep}
	for _, opt := range opts {
		opt(idx)
	}
	idx.reset()
	return idx
}

func (idx *Index) reset() {
	idx.byRails = make(map[cube.Pos][]*Section)
	idx.byBlock = make(map[cube.Pos][]*Section)
	idx.byNode = make(map[track.NodeID][]*Section)
}

// CellOf returns the grid cell containing p.
func CellOf(p mgl64.Vec3) cube.Pos {
	return cube.PosFromVec3(p)
}

// Store replaces the sections of n with freshly derived ones.
func (idx *Index) Store(n *track.Node) {
	idx.evict(n.ID())

	sections := buildSections(n)
	if len(sections) == 0 {
		return
	}
	railsCell := CellOf(n.Position())
	for _, s := range sections {
		s.cells = SampleCells(s.Path, idx.step)
		for _, c := range s.cells {
			idx.byBlock[c] = addSection(idx.byBlock[c], s)
		}
		idx.byRails[railsCell] = addSection(idx.byRails[railsCell], s)
	}
	idx.byNode[n.ID()] = sections
}

// Purge scans every indexed cell and evicts the sections originating from
// ids. Cells left empty are deleted.
func (idx *Index) Purge(ids []track.NodeID) {
	if len(ids) == 0 {
		return
	}
	doomed := make(map[track.NodeID]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
		delete(idx.byNode, id)
	}
	match := func(s *Section) bool { return doomed[s.Node] }
	purgeCells(idx.byRails, match)
	purgeCells(idx.byBlock, match)
}

// Rebuild clears the index and regenerates it from every node of w.
func (idx *Index) Rebuild(w *track.World) {
	idx.reset()
	for _, n := range w.Nodes() {
		idx.Store(n)
	}
}

// FindAtRails returns the sections whose node lies in cell.
func (idx *Index) FindAtRails(cell cube.Pos) []*Section {
	return slices.Clone(idx.byRails[cell])
}

// FindAtBlock returns the sections whose path crosses cell.
func (idx *Index) FindAtBlock(cell cube.Pos) []*Section {
	return slices.Clone(idx.byBlock[cell])
}

// SectionsOf returns the sections originating from node id.
func (idx *Index) SectionsOf(id track.NodeID) []*Section {
	return slices.Clone(idx.byNode[id])
}

// BlockCells returns every cell crossed by at least one section.
func (idx *Index) BlockCells() []cube.Pos {
	out := make([]cube.Pos, 0, len(idx.byBlock))
	for c := range idx.byBlock {
		out = append(out, c)
	}
	return out
}

// Stats reports index sizes.
type Stats struct {
	Sections   int
	RailsCells int
	BlockCells int
}

// Stats returns index sizes.
func (idx *Index) Stats() Stats {
	var n int
	for _, s := range idx.byNode {
		n += len(s)
	}
	return Stats{Sections: n, RailsCells: len(idx.byRails), BlockCells: len(idx.byBlock)}
}

// evict removes the previously stored sections of id using their recorded cells.
func (idx *Index) evict(id track.NodeID) {
	old, ok := idx.byNode[id]
	if !ok {
		return
	}
	delete(idx.byNode, id)
	for _, s := range old {
		match := func(o *Section) bool { return o == s }
		for _, c := range s.cells {
			removeFrom(idx.byBlock, c, match)
		}
	}
	for c, list := range idx.byRails {
		if slices.ContainsFunc(list, func(o *Section) bool { return o.Node == id }) {
			removeFrom(idx.byRails, c, func(o *Section) bool { return o.Node == id })
		}
	}
}

// SampleCells walks path in increments of step and returns the cells
// visited, with consecutive duplicates collapsed. Each segment contributes
// its start cell, its intermediate samples and its end cell.
func SampleCells(path []geom.Segment, step float64) []cube.Pos {
	var out []cube.Pos
	add := func(p mgl64.Vec3) {
		c := CellOf(p)
		if len(out) > 0 && out[len(out)-1] == c {
			return
		}
		out = append(out, c)
	}
	for _, s := range path {
		n := int(math.Ceil(s.L / step))
		if n <= 0 {
			continue
		}
		if n == 1 {
			add(s.P0)
		} else {
			for i := 0; i < n; i++ {
				add(s.At(float64(i) / float64(n)))
			}
		}
		add(s.P1)
	}
	return out
}

func addSection(list []*Section, s *Section) []*Section {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

func removeFrom(m map[cube.Pos][]*Section, c cube.Pos, match func(*Section) bool) {
	list := slices.DeleteFunc(m[c], match)
	if len(list) == 0 {
		delete(m, c)
		return
	}
	m[c] = list
}

func purgeCells(m map[cube.Pos][]*Section, match func(*Section) bool) {
	for c := range m {
		removeFrom(m, c, match)
	}
}

var _ track.RailIndex = (*Index)(nil)
