package geom

import "github.com/go-gl/mathgl/mgl64"

// Segment is one straight piece of a rail path.
type Segment struct {
	P0 mgl64.Vec3
	P1 mgl64.Vec3
	DT mgl64.Vec3 // P1 - P0
	L  float64    // length of DT
}

// NewSegment builds a segment between p0 and p1.
func NewSegment(p0, p1 mgl64.Vec3) Segment {
	dt := p1.Sub(p0)
	return Segment{P0: p0, P1: p1, DT: dt, L: dt.Len()}
}

// At returns the point at fraction t along the segment.
func (s Segment) At(t float64) mgl64.Vec3 {
	return s.P0.Add(s.DT.Mul(t))
}

// Reverse returns the segment traversed in the opposite direction.
func (s Segment) Reverse() Segment {
	return NewSegment(s.P1, s.P0)
}

// CurveSteps is the number of segments a connection curve is sampled into.
const CurveSteps = 8

// Bezier samples the cubic Bezier p0..p3 into steps segments.
func Bezier(p0, p1, p2, p3 mgl64.Vec3, steps int) []Segment {
	if steps < 1 {
		steps = 1
	}
	points := make([]mgl64.Vec3, steps+1)
	for i := 0; i <= steps; i++ {
		points[i] = mgl64.CubicBezierCurve3D(float64(i)/float64(steps), p0, p1, p2, p3)
	}
	segs := make([]Segment, 0, steps)
	for i := 0; i < steps; i++ {
		segs = append(segs, NewSegment(points[i], points[i+1]))
	}
	return segs
}

// Length returns the summed length of segs.
func Length(segs []Segment) float64 {
	var l float64
	for _, s := range segs {
		l += s.L
	}
	return l
}

// Reversed returns segs walked back to front.
func Reversed(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[len(segs)-1-i] = s.Reverse()
	}
	return out
}
