package persist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dshills/coasters/internal/track"
)

// Record kinds.
const (
	KindRoot = "ROOT" // new node, becomes current
	KindNode = "NODE" // new node connected to current, becomes current
	KindLink = "LINK" // connection from current to the node at a position
)

// EncodeRows renders the nodes of c as CSV records.
//
// Junctions are written first, each followed by links to its two primary
// neighbors so the reader can restore which pair is selected. Chains are
// then walked from their endpoints, then whatever remains (closed loops).
func EncodeRows(c *track.Coaster) [][]string {
	w := c.World()
	e := &encoder{
		world:     w,
		coaster:   c,
		written:   make(map[track.NodeID]bool),
		connsDone: make(map[track.ConnKey]bool),
	}

	nodes := c.Nodes()
	for _, n := range nodes {
		if !n.IsJunction() || e.written[n.ID()] {
			continue
		}
		nb := n.Neighbors()
		e.rows = append(e.rows, nodeRow(KindRoot, n))
		e.written[n.ID()] = true
		// Both primary links are always written, even when the connection
		// was already recorded from the other side.
		for _, primary := range nb[:2] {
			e.emitLink(primary)
			e.connsDone[track.KeyOf(n.ID(), primary)] = true
		}
		e.linkWritten(n)
	}
	for _, n := range nodes {
		if n.ConnectionCount() <= 1 && !e.written[n.ID()] {
			e.chain(n)
		}
	}
	for _, n := range nodes {
		if !e.written[n.ID()] {
			e.chain(n)
		}
	}
	return e.rows
}

type encoder struct {
	world     *track.World
	coaster   *track.Coaster
	rows      [][]string
	written   map[track.NodeID]bool
	connsDone map[track.ConnKey]bool
}

// chain writes start as a root and follows unwritten neighbors.
func (e *encoder) chain(start *track.Node) {
	e.rows = append(e.rows, nodeRow(KindRoot, start))
	e.written[start.ID()] = true
	e.linkWritten(start)

	cur := start
	for {
		var next *track.Node
		for _, id := range cur.Neighbors() {
			if !e.written[id] && e.owns(id) {
				next = e.world.Node(id)
				break
			}
		}
		if next == nil {
			return
		}
		e.connsDone[track.KeyOf(cur.ID(), next.ID())] = true
		e.rows = append(e.rows, nodeRow(KindNode, next))
		e.written[next.ID()] = true
		e.linkWritten(next)
		cur = next
	}
}

// linkWritten emits links from n to every already written neighbor whose
// connection has not been recorded yet. Neighbors in other coasters are
// always linked.
func (e *encoder) linkWritten(n *track.Node) {
	for _, id := range n.Neighbors() {
		if e.written[id] || !e.owns(id) {
			e.link(n, id)
		}
	}
}

func (e *encoder) owns(id track.NodeID) bool {
	n := e.world.Node(id)
	return n != nil && n.Coaster() == e.coaster
}

func (e *encoder) link(n *track.Node, to track.NodeID) {
	key := track.KeyOf(n.ID(), to)
	if e.connsDone[key] {
		return
	}
	e.connsDone[key] = true
	e.emitLink(to)
}

func (e *encoder) emitLink(to track.NodeID) {
	other := e.world.Node(to)
	if other == nil {
		return
	}
	p := other.Position()
	e.rows = append(e.rows, []string{KindLink, formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2])})
}

func nodeRow(kind string, n *track.Node) []string {
	p, u := n.Position(), n.Orientation()
	return []string{
		kind,
		formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]),
		formatFloat(u[0]), formatFloat(u[1]), formatFloat(u[2]),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteCSV writes records to w.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// PendingLink is a connection recorded by a LINK row, resolved once every
// coaster is loaded since the target may live in another coaster.
type PendingLink struct {
	From track.NodeID
	To   mgl64.Vec3
}

// Decoded is the result of reading one coaster file.
type Decoded struct {
	Coaster *track.Coaster
	Links   []PendingLink
	Skipped []error
}

// DecodeRows reads CSV records from r into a new coaster named name.
// Malformed records are skipped and reported in Decoded.Skipped; only
// read errors of the underlying stream abort decoding.
func DecodeRows(r io.Reader, w *track.World, name string) (*Decoded, error) {
	c, err := w.CreateCoaster(name)
	if err != nil {
		return nil, err
	}
	out := &Decoded{Coaster: c}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var cur *track.Node
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				out.Skipped = append(out.Skipped, &RowError{Record: line, Err: err})
				continue
			}
			return out, err
		}
		if len(rec) == 0 {
			continue
		}

		switch rec[0] {
		case KindRoot, KindNode:
			pos, up, perr := parseNode(rec)
			if perr != nil {
				out.Skipped = append(out.Skipped, &RowError{Record: line, Err: perr})
				continue
			}
			n := w.AddNode(c, pos, up)
			if rec[0] == KindNode && cur != nil {
				_ = w.Connect(cur.ID(), n.ID())
			}
			cur = n
		case KindLink:
			if cur == nil {
				out.Skipped = append(out.Skipped, &RowError{Record: line, Err: fmt.Errorf("%w: link before node", ErrMalformedRow)})
				continue
			}
			pos, perr := parseVec(rec, 1)
			if perr != nil {
				out.Skipped = append(out.Skipped, &RowError{Record: line, Err: perr})
				continue
			}
			out.Links = append(out.Links, PendingLink{From: cur.ID(), To: pos})
		default:
			out.Skipped = append(out.Skipped, &RowError{Record: line, Err: fmt.Errorf("%w: unknown kind %q", ErrMalformedRow, rec[0])})
		}
	}
	return out, nil
}

func parseNode(rec []string) (pos, up mgl64.Vec3, err error) {
	if len(rec) < 7 {
		return pos, up, fmt.Errorf("%w: want 7 fields, got %d", ErrMalformedRow, len(rec))
	}
	if pos, err = parseVec(rec, 1); err != nil {
		return pos, up, err
	}
	up, err = parseVec(rec, 4)
	return pos, up, err
}

func parseVec(rec []string, at int) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	if len(rec) < at+3 {
		return v, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRow, at+3, len(rec))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(rec[at+i], 64)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		v[i] = f
	}
	return v, nil
}

// ResolveLinks connects every pending link to the node at its target
// position. Junctions declared with links get their first two declared
// neighbors moved to the front of their connection list. Links whose target
// cannot be found are returned.
func ResolveLinks(w *track.World, links []PendingLink) []PendingLink {
	var unresolved []PendingLink
	declared := make(map[track.NodeID][]track.NodeID)
	var order []track.NodeID

	for _, l := range links {
		target := w.FindNodeExact(l.To)
		if target == nil || target.ID() == l.From {
			unresolved = append(unresolved, l)
			continue
		}
		if err := w.Connect(l.From, target.ID()); err != nil {
			unresolved = append(unresolved, l)
			continue
		}
		if _, seen := declared[l.From]; !seen {
			order = append(order, l.From)
		}
		declared[l.From] = append(declared[l.From], target.ID())
	}

	for _, id := range order {
		if n := w.Node(id); n != nil && n.IsJunction() {
			w.SetNeighborOrder(id, declared[id]...)
		}
	}
	return unresolved
}
