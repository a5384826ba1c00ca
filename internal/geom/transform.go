package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is an affine transform (rotation + translation) stored as a 4x4 matrix.
type Transform struct {
	m mgl64.Mat4
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{m: mgl64.Ident4()}
}

// FromMat4 wraps m.
func FromMat4(m mgl64.Mat4) Transform {
	return Transform{m: m}
}

// EyeTransform builds the transform of a viewer at eye looking along dir.
// Columns are right, up, forward and the eye position, so camera space has
// +z pointing along the view direction.
func EyeTransform(eye, dir mgl64.Vec3) Transform {
	f := Normalize(dir)
	if f == (mgl64.Vec3{}) {
		f = mgl64.Vec3{0, 0, 1}
	}
	r := f.Cross(Up)
	if r.Len() < Epsilon {
		// Looking straight up or down.
		r = f.Cross(mgl64.Vec3{0, 0, 1})
	}
	r = r.Normalize()
	u := r.Cross(f)

	return Transform{m: mgl64.Mat4{
		r[0], r[1], r[2], 0,
		u[0], u[1], u[2], 0,
		f[0], f[1], f[2], 0,
		eye[0], eye[1], eye[2], 1,
	}}
}

// Mat4 returns the underlying matrix.
func (t Transform) Mat4() mgl64.Mat4 { return t.m }

// Position returns the translation component.
func (t Transform) Position() mgl64.Vec3 { return t.m.Col(3).Vec3() }

// Forward returns the transformed +z axis.
func (t Transform) Forward() mgl64.Vec3 { return t.m.Col(2).Vec3() }

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	return Transform{m: t.m.Inv()}
}

// Mul returns t * o (o applied first).
func (t Transform) Mul(o Transform) Transform {
	return Transform{m: t.m.Mul4(o.m)}
}

// Apply transforms a point.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, t.m)
}

// ApplyDir transforms a direction, ignoring translation.
func (t Transform) ApplyDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, t.m)
}

// Approx reports whether t and o are equal within Epsilon.
func (t Transform) Approx(o Transform) bool {
	return t.m.ApproxEqualThreshold(o.m, Epsilon)
}

// ViewDistance scores a point already transformed into camera space. Points
// behind the viewer or outside the view cone score +Inf; otherwise the
// score is the lateral offset relative to the cone radius at that depth.
func ViewDistance(cam mgl64.Vec3) float64 {
	x, y, z := cam[0], cam[1], cam[2]
	if z <= Epsilon {
		return math.Inf(1)
	}
	lim := math.Max(1, z*math.Sqrt2/2)
	if math.Abs(x) > lim || math.Abs(y) > lim {
		return math.Inf(1)
	}
	return math.Sqrt(x*x+y*y) / lim
}
