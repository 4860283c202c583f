package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTransformMatrix(t *testing.T) {
	t.Parallel()

	tr := NewTransform(mgl32.Vec3{1, 2, 3})
	tr.Scale = mgl32.Vec3{2, 2, 2}
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 3, p.X(), 1e-5)
	assert.InDelta(t, 2, p.Y(), 1e-5)
	assert.InDelta(t, 3, p.Z(), 1e-5)

	// The zero value behaves like an identity rotation.
	zero := Transform{Position: mgl32.Vec3{0, 0, 5}, Scale: mgl32.Vec3{1, 1, 1}}
	q := zero.Matrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 5, q.Z(), 1e-5)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, zero.Forward())
}

func TestTransformForwardFollowsRotation(t *testing.T) {
	t.Parallel()

	tr := NewTransform(mgl32.Vec3{})
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	f := tr.Forward()
	assert.InDelta(t, -1, f.X(), 1e-5)
	assert.InDelta(t, 0, f.Z(), 1e-5)
}

func TestCameraProjections(t *testing.T) {
	t.Parallel()

	persp := NewPerspectiveCamera(1600, 900)
	assert.InDelta(t, 16.0/9.0, persp.AspectRatio, 1e-5)
	assert.True(t, persp.Active)

	eye := NewTransform(mgl32.Vec3{0, 0, 5})
	clip := persp.ProjectionMatrix().Mul4(persp.ViewMatrix(eye)).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.True(t, ndc.Z() > -1 && ndc.Z() < 1, "origin is inside the depth range")

	ortho := NewOrthographicCamera(100, 100, 10)
	edge := ortho.ProjectionMatrix().Mul4x1(mgl32.Vec4{5, 5, -1, 1})
	assert.InDelta(t, 1, edge.X(), 1e-5)
	assert.InDelta(t, 1, edge.Y(), 1e-5)

	ortho.SetViewport(200, 100)
	assert.InDelta(t, 2, ortho.AspectRatio, 1e-5)
	ortho.SetViewport(0, 0)
	assert.InDelta(t, 1, ortho.AspectRatio, 1e-5)
}

func TestNewDirectionalLightNormalizes(t *testing.T) {
	t.Parallel()

	l := NewDirectionalLight(mgl32.Vec3{0, -2, 0}, mgl32.Vec3{1, 1, 1}, 0.8)
	assert.InDelta(t, 1, l.Direction.Len(), 1e-6)
	assert.InDelta(t, -1, l.Direction.Y(), 1e-6)

	down := NewDirectionalLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 1)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, down.Direction)
}

func TestComponentNamesAreDistinct(t *testing.T) {
	t.Parallel()

	names := []string{
		Name{}.Name(), Transform{}.Name(), Velocity{}.Name(), Physics{}.Name(),
		MeshRef{}.Name(), MaterialRef{}.Name(), Camera{}.Name(),
		DirectionalLight{}.Name(), PointLight{}.Name(),
	}
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate component name %s", n)
		seen[n] = true
	}
}
