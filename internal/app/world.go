package app

import (
	"github.com/dshills/coasters/internal/notify"
	"github.com/dshills/coasters/internal/persist"
	"github.com/dshills/coasters/internal/rails"
	"github.com/dshills/coasters/internal/track"
)

// WorldContext bundles a world with everything derived from or attached to it.
type WorldContext struct {
	World     *track.World
	Index     *rails.Index
	Notifier  *notify.Notifier
	Markers   *MarkerView
	Store     *persist.Store
	Autosaver *persist.Autosaver
}

// Stats summarizes a world for inspection.
type Stats struct {
	Coasters    int
	Nodes       int
	Connections int
	Junctions   int
	Index       rails.Stats
}

// Stats returns a summary of the world.
func (wc *WorldContext) Stats() Stats {
	st := Stats{
		Coasters:    len(wc.World.Coasters()),
		Nodes:       wc.World.NodeCount(),
		Connections: wc.World.ConnectionCount(),
	}
	for _, n := range wc.World.Nodes() {
		if n.IsJunction() {
			st.Junctions++
		}
	}
	if wc.Index != nil {
		st.Index = wc.Index.Stats()
	}
	return st
}
