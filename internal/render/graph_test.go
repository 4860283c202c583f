package render

import (
	"testing"

	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/gpu"
	"mirage/internal/gpu/headless"
	"mirage/internal/resource"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	viewW = 800
	viewH = 600
)

type scene struct {
	t     *testing.T
	world *ecs.World
	res   *resource.Manager
	dev   *headless.Device
	graph *Graph
	cam   ecs.Entity
}

func newScene(t *testing.T, opts ...Option) *scene {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	dev := headless.New(headless.WithManualFences())
	s := &scene{
		t:     t,
		world: ecs.NewWorld(logger),
		res:   resource.NewManager(dev, logger),
		dev:   dev,
	}
	s.graph = NewGraph(s.res, logger, opts...)
	s.cam = s.world.Create()
	ecs.Attach(s.world, s.cam, components.NewTransform(mgl32.Vec3{0, 0, 10}))
	ecs.Attach(s.world, s.cam, components.NewPerspectiveCamera(viewW, viewH))
	return s
}

func triangleData() resource.MeshData {
	return resource.MeshData{
		Label: "triangle",
		Vertices: []float32{
			0, 0, 0, 0, 0, 1, 0, 0,
			1, 0, 0, 0, 0, 1, 1, 0,
			0, 1, 0, 0, 0, 1, 0, 1,
		},
		Bounds: resource.Bounds{Max: mgl32.Vec3{1, 1, 0}},
	}
}

func (s *scene) mesh() resource.Handle {
	h := s.res.RegisterPending(resource.KindMesh, "triangle")
	require.Equal(s.t, resource.StateReady, s.res.CompleteUpload(h, triangleData()))
	return h
}

func (s *scene) material(blend gpu.BlendMode, texture resource.Handle) resource.Handle {
	h := s.res.RegisterPending(resource.KindMaterial, "material")
	data := resource.MaterialData{Shader: "unlit", Color: mgl32.Vec4{1, 1, 1, 1}, Blend: blend, Texture: texture}
	require.Equal(s.t, resource.StateReady, s.res.CompleteUpload(h, data))
	return h
}

func (s *scene) spawn(pos mgl32.Vec3, mesh, material resource.Handle) ecs.Entity {
	e := s.world.Create()
	ecs.Attach(s.world, e, components.NewTransform(pos))
	ecs.Attach(s.world, e, components.MeshRef{Handle: mesh})
	ecs.Attach(s.world, e, components.MaterialRef{Handle: material})
	return e
}

func (s *scene) build() Frame {
	return s.graph.Build(s.world, s.cam, viewW, viewH)
}

func entities(items []DrawItem) []ecs.Entity {
	out := make([]ecs.Entity, len(items))
	for i, it := range items {
		out[i] = it.Entity
	}
	return out
}

func TestPendingMeshIsDrawnOnlyAfterUpload(t *testing.T) {
	s := newScene(t)
	mesh := s.res.RegisterPending(resource.KindMesh, "pending")
	e := s.spawn(mgl32.Vec3{}, mesh, s.material(gpu.BlendOpaque, resource.Handle{}))

	frame := s.build()
	assert.Equal(t, 0, frame.DrawCount())
	assert.Equal(t, 1, frame.Dropped)

	require.Equal(t, resource.StateReady, s.res.CompleteUpload(mesh, triangleData()))
	frame = s.build()
	require.Equal(t, 1, frame.DrawCount())
	assert.Equal(t, e, frame.Items()[0].Entity)
	assert.Zero(t, frame.Dropped)
}

func TestNonReadyResourcesAreDropped(t *testing.T) {
	s := newScene(t)
	mat := s.material(gpu.BlendOpaque, resource.Handle{})

	failed := s.res.RegisterPending(resource.KindMesh, "broken")
	s.res.Fail(failed, assert.AnError)
	s.spawn(mgl32.Vec3{}, failed, mat)

	pendingMat := s.res.RegisterPending(resource.KindMaterial, "pending")
	s.spawn(mgl32.Vec3{}, s.mesh(), pendingMat)

	tex := s.res.RegisterPending(resource.KindTexture, "albedo")
	textured := s.material(gpu.BlendOpaque, tex)
	e := s.spawn(mgl32.Vec3{}, s.mesh(), textured)

	frame := s.build()
	assert.Equal(t, 0, frame.DrawCount())
	assert.Equal(t, 3, frame.Dropped)

	pixels := make([]byte, 4)
	require.Equal(t, resource.StateReady, s.res.CompleteUpload(tex, resource.TextureData{Width: 1, Height: 1, Pixels: pixels}))
	frame = s.build()
	assert.Equal(t, []ecs.Entity{e}, entities(frame.Items()))
}

func TestOpaqueGroupedByMaterialFrontToBack(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	a := s.material(gpu.BlendOpaque, resource.Handle{})
	b := s.material(gpu.BlendOpaque, resource.Handle{})

	e1 := s.spawn(mgl32.Vec3{0, 0, 0}, mesh, a)
	e2 := s.spawn(mgl32.Vec3{0, 0, -2}, mesh, b)
	e3 := s.spawn(mgl32.Vec3{0, 0, -4}, mesh, a)
	e4 := s.spawn(mgl32.Vec3{0, 0, 2}, mesh, b)

	frame := s.build()
	require.Len(t, frame.Passes, 2)
	assert.Equal(t, b, frame.Passes[0].Material, "pass with the nearest item comes first")
	assert.Equal(t, []ecs.Entity{e4, e2}, entities(frame.Passes[0].Items))
	assert.Equal(t, a, frame.Passes[1].Material)
	assert.Equal(t, []ecs.Entity{e1, e3}, entities(frame.Passes[1].Items))
	for _, p := range frame.Passes {
		assert.Equal(t, LayerOpaque, p.Layer)
	}
}

func TestTransparentBackToFrontAfterOpaque(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	solid := s.material(gpu.BlendOpaque, resource.Handle{})
	glassA := s.material(gpu.BlendAlpha, resource.Handle{})
	glassB := s.material(gpu.BlendAlpha, resource.Handle{})

	near := s.spawn(mgl32.Vec3{0, 0, 1}, mesh, glassA)
	mid := s.spawn(mgl32.Vec3{0, 0, -1}, mesh, glassA)
	far := s.spawn(mgl32.Vec3{0, 0, -3}, mesh, glassB)
	wall := s.spawn(mgl32.Vec3{0, 0, -6}, mesh, solid)

	frame := s.build()
	require.Len(t, frame.Passes, 3)
	assert.Equal(t, LayerOpaque, frame.Passes[0].Layer)
	assert.Equal(t, []ecs.Entity{wall}, entities(frame.Passes[0].Items))

	assert.Equal(t, LayerTransparent, frame.Passes[1].Layer)
	assert.Equal(t, []ecs.Entity{far}, entities(frame.Passes[1].Items))
	assert.Equal(t, []ecs.Entity{mid, near}, entities(frame.Passes[2].Items), "consecutive items with one material share a pass")
}

func TestEqualDepthOrdersByEntityID(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	glass := s.material(gpu.BlendAlpha, resource.Handle{})
	solid := s.material(gpu.BlendOpaque, resource.Handle{})

	var glassEntities, solidEntities []ecs.Entity
	for range 4 {
		solidEntities = append(solidEntities, s.spawn(mgl32.Vec3{0, 0, 0}, mesh, solid))
		glassEntities = append(glassEntities, s.spawn(mgl32.Vec3{0, 0, 0}, mesh, glass))
	}
	// Destroy and respawn so slot order differs from creation order.
	s.world.Destroy(solidEntities[0])
	solidEntities = append(solidEntities[1:], s.spawn(mgl32.Vec3{0, 0, 0}, mesh, solid))

	for range 3 {
		frame := s.build()
		require.Len(t, frame.Passes, 2)
		assert.True(t, isSortedByID(entities(frame.Passes[0].Items)))
		assert.Len(t, frame.Passes[0].Items, 4)
		assert.True(t, isSortedByID(entities(frame.Passes[1].Items)))
		assert.ElementsMatch(t, glassEntities, entities(frame.Passes[1].Items))
	}
}

func isSortedByID(es []ecs.Entity) bool {
	for i := 1; i < len(es); i++ {
		if es[i-1].ID > es[i].ID {
			return false
		}
	}
	return true
}

func TestFrustumCulling(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	mat := s.material(gpu.BlendOpaque, resource.Handle{})
	visible := s.spawn(mgl32.Vec3{0, 0, 0}, mesh, mat)
	s.spawn(mgl32.Vec3{0, 0, 20}, mesh, mat)
	s.spawn(mgl32.Vec3{500, 0, 0}, mesh, mat)

	frame := s.build()
	assert.Equal(t, []ecs.Entity{visible}, entities(frame.Items()))
	assert.Equal(t, 2, frame.Culled)

	s.graph = NewGraph(s.res, zerolog.Nop(), WithCulling(false))
	frame = s.build()
	assert.Equal(t, 3, frame.DrawCount())
}

func TestMissingCameraBuildsEmptyFrame(t *testing.T) {
	s := newScene(t)
	s.spawn(mgl32.Vec3{}, s.mesh(), s.material(gpu.BlendOpaque, resource.Handle{}))

	frame := s.graph.Build(s.world, ecs.Entity{}, viewW, viewH)
	assert.Empty(t, frame.Passes)

	list, refs := s.graph.Encode(&frame)
	require.Len(t, list.Passes, 1)
	assert.True(t, list.Passes[0].Clear)
	assert.Empty(t, refs)
}

func TestActiveCameraPicksLowestID(t *testing.T) {
	s := newScene(t)
	other := s.world.Create()
	ecs.Attach(s.world, other, components.NewTransform(mgl32.Vec3{}))
	ecs.Attach(s.world, other, components.NewPerspectiveCamera(viewW, viewH))

	cam, ok := ActiveCamera(s.world)
	require.True(t, ok)
	assert.Equal(t, s.cam, cam)

	c, _ := ecs.Get[components.Camera](s.world, s.cam)
	c.Active = false
	cam, ok = ActiveCamera(s.world)
	require.True(t, ok)
	assert.Equal(t, other, cam)
}

func TestEncodeAndSubmit(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	opaque := s.material(gpu.BlendOpaque, resource.Handle{})
	glass := s.material(gpu.BlendAlpha, resource.Handle{})
	s.spawn(mgl32.Vec3{0, 0, 0}, mesh, opaque)
	s.spawn(mgl32.Vec3{0, 0, 1}, mesh, glass)

	frame := s.build()
	list, refs := s.graph.Encode(&frame)
	require.Len(t, list.Passes, 2)
	assert.True(t, list.Passes[0].Clear)
	assert.False(t, list.Passes[1].Clear)
	assert.Equal(t, 2, list.DrawCount())
	assert.Equal(t, viewW, list.Width)
	assert.Contains(t, refs, mesh)
	assert.Contains(t, refs, glass)

	meshObj, _ := s.res.Get(mesh)
	assert.Equal(t, meshObj.Mesh.VertexBuffer, list.Passes[0].Draws[0].VertexBuffer)
	assert.Equal(t, 3, list.Passes[0].Draws[0].VertexCount)

	_, err := s.res.Submit(&list, refs)
	require.NoError(t, err)
	submitted := s.dev.LastSubmission()
	assert.Equal(t, 2, submitted.DrawCount())
}

func TestEvictedMeshLeavesGraphBeforeDestruction(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	s.spawn(mgl32.Vec3{}, mesh, s.material(gpu.BlendOpaque, resource.Handle{}))

	frame := s.build()
	list, refs := s.graph.Encode(&frame)
	fence, err := s.res.Submit(&list, refs)
	require.NoError(t, err)

	require.True(t, s.res.Evict(mesh))
	assert.True(t, s.res.Resident(mesh), "in-flight submission still references the mesh")
	rebuilt := s.build()
	assert.Equal(t, 0, rebuilt.DrawCount())

	s.dev.Signal(fence)
	s.res.Collect()
	assert.False(t, s.res.Resident(mesh))
}

func TestOverlayIsLastInGivenOrder(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	world := s.material(gpu.BlendOpaque, resource.Handle{})
	hud := s.material(gpu.BlendAlpha, resource.Handle{})
	s.spawn(mgl32.Vec3{}, mesh, world)

	frame := s.build()
	quad := mgl32.Translate3D(10, 10, 0)
	s.graph.AppendOverlay(&frame, []DrawItem{
		{Mesh: mesh, Material: hud, Model: quad, Depth: 5},
		{Mesh: s.res.RegisterPending(resource.KindMesh, "late"), Material: hud},
		{Mesh: mesh, Material: world, Model: quad, Depth: 1},
	})

	last := frame.Passes[len(frame.Passes)-1]
	require.Equal(t, LayerOverlay, last.Layer)
	require.Len(t, last.Items, 2)
	assert.Equal(t, hud, last.Items[0].Material)
	assert.Equal(t, world, last.Items[1].Material)
	assert.Equal(t, 1, frame.Dropped)

	list, _ := s.graph.Encode(&frame)
	overlay := list.Passes[len(list.Passes)-1]
	assert.Equal(t, mgl32.Ortho(0, viewW, viewH, 0, -1, 1), overlay.ViewProj)
	assert.Len(t, overlay.Draws, 2)
}

func TestOverlayOnlyFrameStillClears(t *testing.T) {
	s := newScene(t)
	mesh := s.mesh()
	hud := s.material(gpu.BlendAlpha, resource.Handle{})

	frame := s.build()
	s.graph.AppendOverlay(&frame, []DrawItem{{Mesh: mesh, Material: hud, Model: mgl32.Ident4()}})
	list, _ := s.graph.Encode(&frame)
	require.Len(t, list.Passes, 2)
	assert.True(t, list.Passes[0].Clear)
	assert.Empty(t, list.Passes[0].Draws)
	assert.False(t, list.Passes[1].Clear)
}
