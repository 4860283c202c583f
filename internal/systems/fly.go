package systems

import (
	"time"

	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/input"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyCamera steers the active camera from the move actions and pointer movement.
type FlyCamera struct {
	Input *input.Router
	// Speed is in world units per second.
	Speed float32
	// Sensitivity is degrees of rotation per pixel of pointer movement.
	Sensitivity float64

	yaw, pitch float64
}

// NewFlyCamera returns a fly camera reading router.
func NewFlyCamera(router *input.Router) *FlyCamera {
	return &FlyCamera{Input: router, Speed: 5, Sensitivity: 0.1}
}

func (*FlyCamera) Name() string { return "fly_camera" }

func (f *FlyCamera) Update(w *ecs.World, dt time.Duration) {
	tr, ok := activeCamera(w)
	if !ok {
		return
	}
	snap := f.Input.Snapshot()

	f.yaw += snap.PointerDX * f.Sensitivity
	f.pitch -= snap.PointerDY * f.Sensitivity
	f.pitch = min(max(f.pitch, -89), 89)

	yaw := mgl32.QuatRotate(mgl32.DegToRad(float32(-f.yaw)), mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(mgl32.DegToRad(float32(f.pitch)), mgl32.Vec3{1, 0, 0})
	tr.Rotation = yaw.Mul(pitch).Normalize()

	forward := yaw.Rotate(mgl32.Vec3{0, 0, -1})
	right := forward.Cross(mgl32.Vec3{0, 1, 0})
	var move mgl32.Vec3
	if snap.Held(input.ActionMoveForward) {
		move = move.Add(forward)
	}
	if snap.Held(input.ActionMoveBackward) {
		move = move.Sub(forward)
	}
	if snap.Held(input.ActionMoveRight) {
		move = move.Add(right)
	}
	if snap.Held(input.ActionMoveLeft) {
		move = move.Sub(right)
	}
	if snap.Held(input.ActionMoveUp) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if snap.Held(input.ActionMoveDown) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		step := f.Speed * float32(dt.Seconds())
		tr.Position = tr.Position.Add(move.Normalize().Mul(step))
	}
}

// activeCamera returns the transform of the active camera with the lowest entity ID.
func activeCamera(w *ecs.World) (*components.Transform, bool) {
	var (
		best  *components.Transform
		bestE ecs.Entity
	)
	for e, row := range ecs.Query2[components.Camera, components.Transform](w) {
		if !row.First.Active {
			continue
		}
		if best == nil || e.ID < bestE.ID {
			best, bestE = row.Second, e
		}
	}
	return best, best != nil
}
