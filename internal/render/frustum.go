package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type plane struct {
	a, b, c, d float32
}

// Frustum is the six clip planes of a view-projection matrix: left, right, bottom, top, near, far.
// Plane normals point inward.
type Frustum [6]plane

// NewFrustum extracts the planes of the combined projection*view matrix.
func NewFrustum(clip mgl32.Mat4) Frustum {
	// mgl32 matrices are column-major; row i is clip[i], clip[i+4], clip[i+8], clip[i+12].
	row := func(i int) plane {
		return plane{clip[i], clip[i+4], clip[i+8], clip[i+12]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	add := func(p, q plane) plane { return plane{p.a + q.a, p.b + q.b, p.c + q.c, p.d + q.d} }
	sub := func(p, q plane) plane { return plane{p.a - q.a, p.b - q.b, p.c - q.c, p.d - q.d} }

	return Frustum{
		normalizePlane(add(r3, r0)),
		normalizePlane(sub(r3, r0)),
		normalizePlane(add(r3, r1)),
		normalizePlane(sub(r3, r1)),
		normalizePlane(add(r3, r2)),
		normalizePlane(sub(r3, r2)),
	}
}

func normalizePlane(p plane) plane {
	n := float32(math.Sqrt(float64(p.a*p.a + p.b*p.b + p.c*p.c)))
	if n == 0 {
		return p
	}
	return plane{p.a / n, p.b / n, p.c / n, p.d / n}
}

// IntersectsAABB reports whether the box is at least partly inside the frustum. It tests the
// corner furthest along each plane normal, so boxes near a frustum corner may pass conservatively.
func (f *Frustum) IntersectsAABB(lo, hi mgl32.Vec3) bool {
	for _, p := range f {
		x, y, z := hi[0], hi[1], hi[2]
		if p.a < 0 {
			x = lo[0]
		}
		if p.b < 0 {
			y = lo[1]
		}
		if p.c < 0 {
			z = lo[2]
		}
		if p.a*x+p.b*y+p.c*z+p.d < 0 {
			return false
		}
	}
	return true
}

// transformAABB returns the world-space box enclosing the model-space box lo..hi under model.
func transformAABB(model mgl32.Mat4, lo, hi mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	wlo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	whi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range 8 {
		corner := mgl32.Vec3{lo[0], lo[1], lo[2]}
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		w := mgl32.TransformCoordinate(corner, model)
		for axis := range 3 {
			wlo[axis] = min(wlo[axis], w[axis])
			whi[axis] = max(whi[axis], w[axis])
		}
	}
	return wlo, whi
}
