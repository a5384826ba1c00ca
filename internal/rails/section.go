package rails

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/dshills/coasters/internal/geom"
	"github.com/dshills/coasters/internal/track"
)

// Section is the rail geometry of a node seen as a traversal between two of
// its connections. The path runs from the middle of the first connection,
// through the node, to the middle of the second.
type Section struct {
	// Node is the node the section originates from.
	Node track.NodeID

	// From and To are the neighbors at either end. To is NoNode when the
	// node has a single connection.
	From, To track.NodeID

	// Primary is true for the section built from the node's first two connections.
	Primary bool

	// Path is the sampled rail path.
	Path []geom.Segment

	cells []cube.Pos
}

// Cells returns the grid cells the section is registered under.
func (s *Section) Cells() []cube.Pos { return s.cells }

// Connects reports whether the section runs along the connection to neighbor.
func (s *Section) Connects(neighbor track.NodeID) bool {
	return s.From == neighbor || (s.To != track.NoNode && s.To == neighbor)
}

// buildSections derives the sections of n. A node without connections has none.
func buildSections(n *track.Node) []*Section {
	conns := n.Connections()
	if len(conns) == 0 {
		return nil
	}
	id := n.ID()

	primary := &Section{Node: id, From: conns[0].Other(id), Primary: true}
	if len(conns) == 1 {
		primary.Path = geom.Reversed(conns[0].HalfFrom(id))
		return []*Section{primary}
	}
	primary.To = conns[1].Other(id)
	primary.Path = join(conns[0], conns[1], id)

	out := []*Section{primary}
	for i := 2; i < len(conns); i++ {
		partner := conns[n.BranchPartner(i)]
		out = append(out, &Section{
			Node: id,
			From: partner.Other(id),
			To:   conns[i].Other(id),
			Path: join(partner, conns[i], id),
		})
	}
	return out
}

func join(in, out *track.Connection, id track.NodeID) []geom.Segment {
	path := geom.Reversed(in.HalfFrom(id))
	return append(path, out.HalfFrom(id)...)
}
