// Package components holds the engine's built-in component types.
package components

import (
	"mirage/internal/resource"

	"github.com/go-gl/mathgl/mgl32"
)

// Name labels an entity for logs and tools.
type Name struct {
	Value string
}

func (Name) Name() string { return "name" }

// Transform places an entity in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func (Transform) Name() string { return "transform" }

// NewTransform returns a transform at position with identity rotation and unit scale.
func NewTransform(position mgl32.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns the model matrix translate * rotate * scale. A zero rotation is treated as identity.
func (t Transform) Matrix() mgl32.Mat4 {
	rot := t.Rotation
	if rot.W == 0 && rot.V.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Forward returns the direction the transform faces (-Z rotated).
func (t Transform) Forward() mgl32.Vec3 {
	rot := t.Rotation
	if rot.W == 0 && rot.V.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return rot.Normalize().Rotate(mgl32.Vec3{0, 0, -1})
}

// Velocity moves a transform every update.
type Velocity struct {
	Linear mgl32.Vec3
	// Angular is the rotation rate in radians per second around each axis.
	Angular mgl32.Vec3
}

func (Velocity) Name() string { return "velocity" }

// Physics marks an entity as a simple rigid body.
type Physics struct {
	Mass       float32
	UseGravity bool
	// Drag removes this fraction of linear velocity per second.
	Drag float32
}

func (Physics) Name() string { return "physics" }

// MeshRef binds an entity to a mesh resource.
type MeshRef struct {
	Handle resource.Handle
}

func (MeshRef) Name() string { return "mesh_ref" }

// MaterialRef binds an entity to a material resource.
type MaterialRef struct {
	Handle resource.Handle
}

func (MaterialRef) Name() string { return "material_ref" }
