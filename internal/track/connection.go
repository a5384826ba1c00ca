package track

import (
	"github.com/dshills/coasters/internal/geom"
)

// ConnKey identifies an undirected connection. A is always the smaller id.
type ConnKey struct {
	A, B NodeID
}

// KeyOf returns the normalized key of the connection between a and b.
func KeyOf(a, b NodeID) ConnKey {
	if a > b {
		a, b = b, a
	}
	return ConnKey{A: a, B: b}
}

// Other returns the endpoint of k that is not id.
func (k ConnKey) Other(id NodeID) NodeID {
	if k.A == id {
		return k.B
	}
	return k.A
}

// handleScale is the fraction of the endpoint distance used for curve handles.
const handleScale = 0.5

// Connection is an undirected edge between two nodes. It caches the rail
// path from A to B, recomputed lazily after either endpoint changes.
type Connection struct {
	key   ConnKey
	world *World
	path  []geom.Segment
	stale bool
}

// Key returns the connection key.
func (c *Connection) Key() ConnKey { return c.key }

// Other returns the endpoint opposite id.
func (c *Connection) Other(id NodeID) NodeID { return c.key.Other(id) }

// Path returns the rail path from A to B.
func (c *Connection) Path() []geom.Segment {
	if c.stale || c.path == nil {
		c.path = c.compute()
		c.stale = false
	}
	return c.path
}

// PathFrom returns the rail path starting at endpoint id.
func (c *Connection) PathFrom(id NodeID) []geom.Segment {
	if id == c.key.A {
		return c.Path()
	}
	return geom.Reversed(c.Path())
}

// HalfFrom returns the half of the rail path nearest endpoint id,
// running from that endpoint toward the middle of the connection.
func (c *Connection) HalfFrom(id NodeID) []geom.Segment {
	path := c.PathFrom(id)
	return path[:(len(path)+1)/2]
}

func (c *Connection) compute() []geom.Segment {
	a := c.world.nodes[c.key.A]
	b := c.world.nodes[c.key.B]
	if a == nil || b == nil {
		return []geom.Segment{}
	}
	dist := a.pos.Sub(b.pos).Len()
	if dist < geom.Epsilon {
		return []geom.Segment{geom.NewSegment(a.pos, b.pos)}
	}
	h := dist * handleScale
	p1 := a.pos.Add(a.Tangent(b.pos).Mul(h))
	p2 := b.pos.Add(b.Tangent(a.pos).Mul(h))
	return geom.Bezier(a.pos, p1, p2, b.pos, geom.CurveSteps)
}
