package components

import "github.com/go-gl/mathgl/mgl32"

// Projection selects how a camera maps view space to clip space.
type Projection uint8

const (
	Perspective Projection = iota
	Orthographic
)

// Camera projects the world as seen from its entity's Transform.
type Camera struct {
	Projection Projection
	// FOV is the vertical field of view in degrees.
	FOV float32
	// OrthoHeight is the visible height in world units for orthographic cameras.
	OrthoHeight float32
	Near, Far   float32
	AspectRatio float32
	// Active selects the camera the renderer uses. With several active cameras the lowest entity ID wins.
	Active bool
}

func (Camera) Name() string { return "camera" }

// NewPerspectiveCamera returns an active perspective camera for a viewport.
func NewPerspectiveCamera(width, height int) Camera {
	return Camera{
		Projection:  Perspective,
		FOV:         60.0,
		Near:        0.1,
		Far:         1000.0,
		AspectRatio: aspect(width, height),
		Active:      true,
	}
}

// NewOrthographicCamera returns an active orthographic camera showing height world units.
func NewOrthographicCamera(width, height int, orthoHeight float32) Camera {
	return Camera{
		Projection:  Orthographic,
		OrthoHeight: orthoHeight,
		Near:        0.1,
		Far:         1000.0,
		AspectRatio: aspect(width, height),
		Active:      true,
	}
}

// SetViewport updates the aspect ratio after a resize.
func (c *Camera) SetViewport(width, height int) {
	c.AspectRatio = aspect(width, height)
}

func (c Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.Projection == Orthographic {
		halfH := c.OrthoHeight / 2
		halfW := halfH * c.AspectRatio
		return mgl32.Ortho(-halfW, halfW, -halfH, halfH, c.Near, c.Far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.Near, c.Far)
}

// ViewMatrix returns the view matrix for a camera placed at t.
func (c Camera) ViewMatrix(t Transform) mgl32.Mat4 {
	eye := t.Position
	up := mgl32.Vec3{0, 1, 0}
	rot := t.Rotation
	if !(rot.W == 0 && rot.V.Len() == 0) {
		up = rot.Normalize().Rotate(up)
	}
	return mgl32.LookAtV(eye, eye.Add(t.Forward()), up)
}

func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
