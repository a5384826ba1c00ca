package track

import (
	"slices"
	"sync/atomic"
)

// Coaster is a named, independently persisted collection of nodes.
type Coaster struct {
	name  string
	world *World
	nodes []NodeID
	dirty atomic.Bool
}

// Name returns the coaster name.
func (c *Coaster) Name() string { return c.name }

// World returns the owning world.
func (c *Coaster) World() *World { return c.world }

// Len returns the number of nodes.
func (c *Coaster) Len() int { return len(c.nodes) }

// NodeIDs returns the node ids in insertion order.
func (c *Coaster) NodeIDs() []NodeID { return slices.Clone(c.nodes) }

// Nodes returns the nodes in insertion order.
func (c *Coaster) Nodes() []*Node {
	out := make([]*Node, 0, len(c.nodes))
	for _, id := range c.nodes {
		if n := c.world.nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// MarkDirty flags the coaster as needing a save.
func (c *Coaster) MarkDirty() { c.dirty.Store(true) }

// IsDirty reports whether the coaster has unsaved changes.
func (c *Coaster) IsDirty() bool { return c.dirty.Load() }

// ClearDirty clears the dirty flag and reports whether it was set.
func (c *Coaster) ClearDirty() bool { return c.dirty.Swap(false) }

func (c *Coaster) removeNode(id NodeID) {
	if i := slices.Index(c.nodes, id); i >= 0 {
		c.nodes = slices.Delete(c.nodes, i, i+1)
	}
}
