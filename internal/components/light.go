package components

import "github.com/go-gl/mathgl/mgl32"

// DirectionalLight lights the whole scene from one direction, like the sun.
type DirectionalLight struct {
	// Direction is the way the light travels.
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

func (DirectionalLight) Name() string { return "directional_light" }

// NewDirectionalLight normalizes direction. A zero direction points straight down.
func NewDirectionalLight(direction, color mgl32.Vec3, intensity float32) DirectionalLight {
	if direction.Len() == 0 {
		direction = mgl32.Vec3{0, -1, 0}
	}
	return DirectionalLight{Direction: direction.Normalize(), Color: color, Intensity: intensity}
}

// PointLight shines in every direction from the entity's Transform position and fades to nothing
// at Range.
type PointLight struct {
	Color     mgl32.Vec3
	Intensity float32
	Range     float32
}

func (PointLight) Name() string { return "point_light" }
