package render

import (
	"math"

	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/profiling"
	"mirage/internal/resource"

	"github.com/go-gl/mathgl/mgl32"
)

// MinPickDistance ignores hits closer than this to the camera's near plane.
const MinPickDistance = 0.1

// Hit is the result of a pick.
type Hit struct {
	Entity   ecs.Entity
	Distance float32
	Position mgl32.Vec3
}

// Pick casts a ray from camera through pixel (x, y) of a width x height viewport and returns the
// nearest entity whose Ready mesh bounds the ray enters within maxDist. Equal distances resolve to
// the lower entity ID.
func (g *Graph) Pick(w *ecs.World, camera ecs.Entity, x, y float64, width, height int, maxDist float32) (Hit, bool) {
	defer profiling.Track("render.pick")()

	origin, dir, ok := pickRay(w, camera, x, y, width, height)
	if !ok {
		return Hit{}, false
	}

	var best Hit
	found := false
	for e, row := range ecs.Query2[components.Transform, components.MeshRef](w) {
		obj, ok := g.resources.Resolve(row.Second.Handle)
		if !ok || obj.Kind != resource.KindMesh {
			continue
		}
		lo, hi := transformAABB(row.First.Matrix(), obj.Mesh.Bounds.Min, obj.Mesh.Bounds.Max)
		t, ok := rayAABB(origin, dir, lo, hi)
		if !ok || t < MinPickDistance || t > maxDist {
			continue
		}
		if !found || t < best.Distance || (t == best.Distance && e.ID < best.Entity.ID) {
			best = Hit{Entity: e, Distance: t, Position: origin.Add(dir.Mul(t))}
			found = true
		}
	}
	return best, found
}

// pickRay unprojects a pixel into a world-space ray starting on the near plane.
func pickRay(w *ecs.World, camera ecs.Entity, x, y float64, width, height int) (mgl32.Vec3, mgl32.Vec3, bool) {
	if width <= 0 || height <= 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	cam, ok1 := ecs.Get[components.Camera](w, camera)
	camT, ok2 := ecs.Get[components.Transform](w, camera)
	if !ok1 || !ok2 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	c := *cam
	c.SetViewport(width, height)
	inv := c.ProjectionMatrix().Mul4(c.ViewMatrix(*camT)).Inv()

	ndcX := float32(2*x/float64(width) - 1)
	ndcY := float32(1 - 2*y/float64(height))
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, inv)
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	return near, dir.Normalize(), true
}

// rayAABB returns the distance along the ray at which it enters the box, or 0 when it starts inside.
func rayAABB(origin, dir, lo, hi mgl32.Vec3) (float32, bool) {
	tmin := float32(0)
	tmax := float32(math.MaxFloat32)
	for axis := range 3 {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (lo[axis] - origin[axis]) * inv
		t2 := (hi[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
