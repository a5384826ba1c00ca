package editor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/pathfind"
	"github.com/dshills/coasters/internal/track"
)

// Pick is the result of a full-graph pick.
type Pick struct {
	Node *track.Node
	// Branch is the neighbor whose junction marker was picked, or NoNode
	// when the node itself was picked.
	Branch   track.NodeID
	Distance float64
}

// eye returns the current eye transform of the viewer.
func (s *Session) eye() geom.Transform {
	pos, dir := s.viewer.Eye()
	return geom.EyeTransform(pos, dir)
}

// BranchMarker returns where the junction marker of the connection at
// index i of n is drawn.
func BranchMarker(n *track.Node, i int, offset float64) mgl64.Vec3 {
	return n.Position().Add(n.DirectionTo(i).Mul(offset))
}

// FindLookingAt returns the selected node closest to the view center within
// the selection threshold, or nil.
func (s *Session) FindLookingAt() *track.Node {
	if s.world == nil {
		return nil
	}
	inv := s.eye().Inverse()
	var best *track.Node
	bestDist := s.settings.Selection.Threshold
	for _, n := range s.selectedNodes() {
		if d := geom.ViewDistance(inv.Apply(n.Position())); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// PickAny returns the node or junction branch closest to the view center
// across the whole world. ok is false when nothing is in view.
func (s *Session) PickAny() (Pick, bool) {
	if s.world == nil {
		return Pick{}, false
	}
	inv := s.eye().Inverse()
	best := Pick{Distance: math.MaxFloat64}
	for _, n := range s.world.Nodes() {
		if d := geom.ViewDistance(inv.Apply(n.Position())); d < best.Distance {
			best = Pick{Node: n, Distance: d}
		}
		if !n.IsJunction() {
			continue
		}
		for i, nb := range n.Neighbors() {
			marker := BranchMarker(n, i, s.settings.Junction.MarkerOffset)
			if d := geom.ViewDistance(inv.Apply(marker)); d < best.Distance {
				best = Pick{Node: n, Branch: nb, Distance: d}
			}
		}
	}
	return best, best.Node != nil
}

// OnLeftClick handles a left click. It reports whether the click was used.
func (s *Session) OnLeftClick() bool {
	if s.world == nil {
		return false
	}
	s.prune()

	// Clicking while dragging in position mode splits off a new node and
	// keeps dragging it.
	if s.mode == ModePosition && s.IsHolding() {
		var pos mgl64.Vec3
		if sel := s.selectedNodes(); len(sel) == 1 {
			pos = sel[0].Position()
		} else {
			pos = s.newNodePos()
		}
		s.createNewNode(pos)
		return true
	}

	pick, ok := s.PickAny()
	if !ok {
		if !s.viewer.IsSneaking() {
			s.clearSelection()
		}
		return false
	}

	if pick.Branch != track.NoNode {
		if err := s.world.SwitchJunction(pick.Node.ID(), pick.Branch); err != nil {
			s.log.Warn("failed to switch junction", logNode(pick.Node.ID()), log.ErrorField(err))
		}
		return true
	}

	id := pick.Node.ID()
	if s.lastEditAge(id) > s.settings.MassSelectWindow() {
		if !s.viewer.IsSneaking() {
			s.clearSelection()
		}
		s.setEditing(id, !s.isSel[id])
	} else if s.isSel[id] {
		if s.viewer.IsSneaking() {
			s.FloodSelectNearest(id)
		} else {
			s.FloodSelect(id)
		}
	}
	return true
}

func (s *Session) neighbors(id track.NodeID) []track.NodeID {
	if n := s.world.Node(id); n != nil {
		return n.Neighbors()
	}
	return nil
}

// FloodSelect replaces the selection with every node connected to start.
func (s *Session) FloodSelect(start track.NodeID) {
	if s.world == nil || s.world.Node(start) == nil {
		return
	}
	s.clearSelection()
	for _, id := range pathfind.Reachable(start, s.neighbors) {
		s.setEditing(id, true)
	}
}

// FloodSelectNearest adds the nodes on the shortest path from start to the
// nearest other selected node. It reports whether such a path exists.
func (s *Session) FloodSelectNearest(start track.NodeID) bool {
	if s.world == nil || s.world.Node(start) == nil {
		return false
	}
	path, ok := pathfind.Shortest(start, s.IsSelected, s.neighbors)
	if !ok {
		return false
	}
	for _, id := range path {
		s.setEditing(id, true)
	}
	return true
}
