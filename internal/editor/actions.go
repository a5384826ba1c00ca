package editor

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/log"
	"github.com/dshills/coasters/internal/track"
)

func logNode(id track.NodeID) log.Field { return log.Uint64("node", uint64(id)) }

// newNodePos returns the placement point in front of the viewer.
func (s *Session) newNodePos() mgl64.Vec3 {
	pos, dir := s.viewer.Eye()
	return pos.Add(geom.Normalize(dir).Mul(s.settings.Create.PlaceDistance))
}

// createTrack creates a node in front of the viewer, connected to the
// selection. On the first tick of a hold, looking at a selected node
// extends a new node out of it and drags it instead.
func (s *Session) createTrack() {
	var pos mgl64.Vec3
	drag := false
	if s.heldTicks == 0 {
		if n := s.FindLookingAt(); n != nil {
			s.clearSelection()
			s.setEditing(n.ID(), true)
			pos = n.Position()
			drag = true
		}
	}
	if !drag {
		pos = s.newNodePos()
		if len(s.world.FindNodesNear(pos, s.settings.Create.DuplicateRadius)) > 0 {
			return
		}
	}

	s.createNewNode(pos)

	if drag {
		eyePos, _ := s.viewer.Eye()
		s.SetMode(ModePosition)
		s.anchor = s.eye()
		s.rotPoint = eyePos
		s.setAfterEditMode(ModeCreate)
	}
}

// createNewNode adds a node at pos and makes it the only selected node.
// With one selected node the new node extends it; with several, the new
// node connects to every one of them; with none, it starts a new coaster.
func (s *Session) createNewNode(pos mgl64.Vec3) *track.Node {
	var created *track.Node
	for _, id := range s.selected {
		if created == nil {
			n, err := s.world.AddNodeAfter(id, pos, mgl64.Vec3{})
			if err != nil {
				s.log.Warn("failed to extend node", logNode(id), log.ErrorField(err))
				continue
			}
			created = n
			continue
		}
		if err := s.world.Connect(id, created.ID()); err != nil {
			s.log.Warn("failed to connect node", logNode(id), log.ErrorField(err))
		}
	}
	if created == nil {
		c, err := s.world.CreateCoaster(s.world.NextCoasterName())
		if err != nil {
			s.log.Error("failed to create coaster", log.ErrorField(err))
			return nil
		}
		created = s.world.AddNode(c, pos, mgl64.Vec3{})
		s.log.Info("created coaster", log.String("coaster", c.Name()))
	}
	s.clearSelection()
	s.setEditing(created.ID(), true)
	return created
}

// changePositionOrientation applies the change of the eye transform since
// the previous tick to the selected nodes.
func (s *Session) changePositionOrientation() {
	sel := s.selectedNodes()
	if len(sel) == 0 {
		return
	}
	eye := s.eye()

	if s.heldTicks == 0 {
		eyePos, dir := s.viewer.Eye()
		s.anchor = eye
		s.rotPoint = eyePos
		if n := s.FindLookingAt(); n != nil {
			dist := n.Position().Sub(eyePos).Len()
			s.rotPoint = eyePos.Add(geom.Normalize(dir).Mul(dist))
		}
	}

	change := eye.Mul(s.anchor.Inverse())
	if s.mode == ModeOrientation {
		s.rotPoint = change.Apply(s.rotPoint)
		for _, n := range sel {
			_ = s.world.SetOrientation(n.ID(), s.rotPoint.Sub(n.Position()))
		}
	} else {
		for _, n := range sel {
			_ = s.world.SetPosition(n.ID(), change.Apply(n.Position()))
		}
	}
	s.anchor = eye
}

// onEditingFinished runs when a hold is released. Dropping a single dragged
// node onto another node merges the two.
func (s *Session) onEditingFinished() {
	if s.world == nil || s.mode != ModePosition {
		return
	}
	sel := s.selectedNodes()
	if len(sel) != 1 {
		return
	}
	dragged := sel[0]
	pos := dragged.Position()

	near := s.world.FindNodesNear(pos, s.settings.Drag.MergeRadius)
	slices.SortFunc(near, func(a, b *track.Node) int {
		return cmp.Compare(geom.DistanceSq(a.Position(), pos), geom.DistanceSq(b.Position(), pos))
	})
	var target *track.Node
	for _, n := range near {
		if n != dragged {
			target = n
			break
		}
	}
	if target == nil {
		return
	}

	neighbors := dragged.Neighbors()
	s.setEditing(dragged.ID(), false)
	s.world.RemoveNode(dragged.ID())
	for _, id := range neighbors {
		if id == target.ID() {
			continue
		}
		if err := s.world.Connect(target.ID(), id); err != nil {
			s.log.Warn("failed to reconnect merged node", logNode(id), log.ErrorField(err))
		}
	}
	s.setEditing(target.ID(), true)
	s.log.Debug("merged node", logNode(dragged.ID()), log.Uint64("into", uint64(target.ID())))
}

// deleteTrack removes the selection. Connections between selected nodes
// are cut first and only nodes left unconnected are deleted. Without such
// connections every selected node is deleted and its remaining neighbors
// become the selection, so repeated deletes walk along a track.
func (s *Session) deleteTrack() {
	toDelete := s.selectedNodes()
	inSet := make(map[track.NodeID]bool, len(toDelete))
	for _, n := range toDelete {
		inSet[n.ID()] = true
	}

	disconnected := false
	for _, n := range toDelete {
		for _, nb := range n.Neighbors() {
			if inSet[nb] {
				s.world.Disconnect(n.ID(), nb)
				disconnected = true
			}
		}
	}
	if disconnected {
		for _, n := range toDelete {
			if n.ConnectionCount() == 0 {
				s.setEditing(n.ID(), false)
				s.world.RemoveNode(n.ID())
			}
		}
		return
	}

	s.clearSelection()
	for _, n := range toDelete {
		for _, nb := range n.Neighbors() {
			if !inSet[nb] {
				s.setEditing(nb, true)
			}
		}
	}
	for _, n := range toDelete {
		s.world.RemoveNode(n.ID())
	}
}
