package track

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dshills/coasters/internal/geom"
)

// NodeID is the stable identifier of a node within a World.
type NodeID uint64

// NoNode is the zero NodeID; it never identifies a node.
const NoNode NodeID = 0

// Node is a point of the track graph with an orientation.
//
// The neighbor list is ordered: its first two entries form the primary
// (selected) junction pair of the node.
type Node struct {
	id        NodeID
	pos       mgl64.Vec3
	up        mgl64.Vec3
	coaster   *Coaster
	neighbors []NodeID
}

// ID returns the node identifier.
func (n *Node) ID() NodeID { return n.id }

// Position returns the node position.
func (n *Node) Position() mgl64.Vec3 { return n.pos }

// Orientation returns the node up vector.
func (n *Node) Orientation() mgl64.Vec3 { return n.up }

// Coaster returns the owning coaster.
func (n *Node) Coaster() *Coaster { return n.coaster }

// World returns the world the node lives in.
func (n *Node) World() *World { return n.coaster.world }

// Neighbors returns a copy of the ordered neighbor list.
func (n *Node) Neighbors() []NodeID { return slices.Clone(n.neighbors) }

// ConnectionCount returns the number of connections.
func (n *Node) ConnectionCount() int { return len(n.neighbors) }

// IsJunction reports whether the node has more than two connections.
func (n *Node) IsJunction() bool { return len(n.neighbors) > 2 }

// IsConnected reports whether the node is connected to other.
func (n *Node) IsConnected(other NodeID) bool {
	return slices.Contains(n.neighbors, other)
}

// Connections returns the node's connections in neighbor order.
func (n *Node) Connections() []*Connection {
	w := n.World()
	out := make([]*Connection, 0, len(n.neighbors))
	for _, nb := range n.neighbors {
		if c := w.conns[KeyOf(n.id, nb)]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// DirectionTo returns the straight-line unit direction from n to the neighbor at index i.
func (n *Node) DirectionTo(i int) mgl64.Vec3 {
	other := n.World().nodes[n.neighbors[i]]
	if other == nil {
		return mgl64.Vec3{}
	}
	return geom.Direction(n.pos, other.pos)
}

// BranchPartner returns which of the primary connections (0 or 1) the branch
// at index i pairs with: the one whose direction is most aligned with the
// branch. Index 1 wins only when strictly better aligned.
func (n *Node) BranchPartner(i int) int {
	if i < 2 || i >= len(n.neighbors) {
		return 0
	}
	dir := n.DirectionTo(i)
	d0 := n.DirectionTo(0).Dot(dir)
	d1 := n.DirectionTo(1).Dot(dir)
	if d1 > d0 {
		return 1
	}
	return 0
}

// Tangent returns the travel direction through the node, oriented to face toward.
// It is derived from the primary pair, or from the single neighbor.
func (n *Node) Tangent(toward mgl64.Vec3) mgl64.Vec3 {
	w := n.World()
	var t mgl64.Vec3
	switch len(n.neighbors) {
	case 0:
		t = geom.Direction(n.pos, toward)
	case 1:
		t = geom.Direction(n.pos, w.nodes[n.neighbors[0]].pos)
	default:
		t = geom.Direction(w.nodes[n.neighbors[0]].pos, w.nodes[n.neighbors[1]].pos)
	}
	if t.Dot(toward.Sub(n.pos)) < 0 {
		t = t.Mul(-1)
	}
	return t
}

func (n *Node) removeNeighbor(id NodeID) bool {
	i := slices.Index(n.neighbors, id)
	if i < 0 {
		return false
	}
	n.neighbors = slices.Delete(n.neighbors, i, i+1)
	return true
}
