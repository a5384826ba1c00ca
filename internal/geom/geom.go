// Package geom provides the vector, transform and curve primitives shared by
// the track graph, the rails index and the edit session.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the component-wise tolerance used for exact position matching.
const Epsilon = 1e-6

// Up is the world up axis.
var Up = mgl64.Vec3{0, 1, 0}

// Near reports whether a and b match component-wise within Epsilon.
func Near(a, b mgl64.Vec3) bool {
	return math.Abs(a[0]-b[0]) <= Epsilon &&
		math.Abs(a[1]-b[1]) <= Epsilon &&
		math.Abs(a[2]-b[2]) <= Epsilon
}

// DistanceSq returns the squared distance between a and b.
func DistanceSq(a, b mgl64.Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Normalize returns v scaled to unit length, or the zero vector when v has no length.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Direction returns the unit vector pointing from -> to.
func Direction(from, to mgl64.Vec3) mgl64.Vec3 {
	return Normalize(to.Sub(from))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
