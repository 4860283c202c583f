// Package render turns the world into an ordered list of passes every frame.
//
// A Frame is rebuilt from scratch each time: opaque geometry first, grouped by material and sorted
// front to back, then transparent geometry sorted back to front, then the overlay. Items whose mesh,
// material or material texture is not Ready are left out for that frame. Light entities are
// gathered into the frame and handed to every world pass.
package render

import (
	"cmp"
	"slices"

	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/gpu"
	"mirage/internal/profiling"
	"mirage/internal/resource"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// Layer orders passes within a frame.
type Layer uint8

const (
	LayerOpaque Layer = iota
	LayerTransparent
	LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case LayerOpaque:
		return "opaque"
	case LayerTransparent:
		return "transparent"
	case LayerOverlay:
		return "overlay"
	}
	return "unknown"
}

// DrawItem is one mesh drawn with one material.
type DrawItem struct {
	Entity   ecs.Entity
	Mesh     resource.Handle
	Material resource.Handle
	// Model is the world matrix, or the screen-space matrix in pixels for overlay items.
	Model mgl32.Mat4
	// Depth is the distance from the camera to the centre of the item's bounds.
	Depth float32
	Layer Layer
}

// Pass is a run of draw items. World passes share one material; the overlay pass keeps whatever
// materials the overlay returned.
type Pass struct {
	Layer    Layer
	Material resource.Handle
	Items    []DrawItem
}

// View is the camera state a frame was built with.
type View struct {
	Camera        ecs.Entity
	Eye           mgl32.Vec3
	ViewProj      mgl32.Mat4
	Width, Height int
}

// Frame is the ordered pass list for one frame.
type Frame struct {
	View   View
	Passes []Pass
	// Lights reach every world pass. Overlay passes are unlit.
	Lights  []gpu.Light
	Ambient float32
	// Dropped counts items skipped because a resource was not Ready.
	Dropped int
	// Culled counts items outside the view frustum.
	Culled int
}

// DrawCount returns the number of items across all passes.
func (f *Frame) DrawCount() int {
	n := 0
	for i := range f.Passes {
		n += len(f.Passes[i].Items)
	}
	return n
}

// Items returns every item in draw order.
func (f *Frame) Items() []DrawItem {
	out := make([]DrawItem, 0, f.DrawCount())
	for i := range f.Passes {
		out = append(out, f.Passes[i].Items...)
	}
	return out
}

// Option configures a Graph.
type Option func(*Graph)

// WithCulling enables or disables frustum culling. It is enabled by default.
func WithCulling(enabled bool) Option {
	return func(g *Graph) { g.cull = enabled }
}

// WithClearColor sets the colour the first pass clears to.
func WithClearColor(c mgl32.Vec4) Option {
	return func(g *Graph) { g.clear = c }
}

// Graph builds and encodes frames. It reads the world and resource manager and never mutates them.
type Graph struct {
	logger    zerolog.Logger
	resources *resource.Manager
	cull      bool
	clear     mgl32.Vec4
	ambient   float32

	opaque      []DrawItem
	transparent []DrawItem
	directional []lightCandidate
	points      []lightCandidate
}

// NewGraph returns a graph resolving handles through resources.
func NewGraph(resources *resource.Manager, logger zerolog.Logger, opts ...Option) *Graph {
	g := &Graph{
		logger:    logger.With().Str("component", "render").Logger(),
		resources: resources,
		cull:      true,
		clear:     mgl32.Vec4{0.53, 0.81, 0.92, 1},
		ambient:   DefaultAmbient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ActiveCamera returns the active camera entity with the lowest ID.
func ActiveCamera(w *ecs.World) (ecs.Entity, bool) {
	var best ecs.Entity
	found := false
	for e, row := range ecs.Query2[components.Camera, components.Transform](w) {
		if !row.First.Active {
			continue
		}
		if !found || e.ID < best.ID {
			best, found = e, true
		}
	}
	return best, found
}

// Build collects every renderable entity visible from camera. A camera without Camera and
// Transform components yields a frame with no world passes.
func (g *Graph) Build(w *ecs.World, camera ecs.Entity, width, height int) Frame {
	defer profiling.Track("render.build")()

	frame := Frame{View: View{Camera: camera, Width: width, Height: height}}
	cam, ok1 := ecs.Get[components.Camera](w, camera)
	camT, ok2 := ecs.Get[components.Transform](w, camera)
	if !ok1 || !ok2 {
		return frame
	}
	c := *cam
	c.SetViewport(width, height)
	frame.View.Eye = camT.Position
	frame.View.ViewProj = c.ProjectionMatrix().Mul4(c.ViewMatrix(*camT))
	frustum := NewFrustum(frame.View.ViewProj)
	frame.Lights = g.gatherLights(w, frame.View.Eye)
	frame.Ambient = g.ambient

	g.opaque = g.opaque[:0]
	g.transparent = g.transparent[:0]
	q := ecs.Query3[components.Transform, components.MeshRef, components.MaterialRef](w)
	for e, row := range q {
		meshObj, st := g.resources.Get(row.Second.Handle)
		if st != resource.StateReady {
			frame.Dropped++
			continue
		}
		matObj, st := g.resources.Get(row.Third.Handle)
		if st != resource.StateReady || !g.textureReady(matObj.Material) {
			frame.Dropped++
			continue
		}

		model := row.First.Matrix()
		lo, hi := transformAABB(model, meshObj.Mesh.Bounds.Min, meshObj.Mesh.Bounds.Max)
		if g.cull && !frustum.IntersectsAABB(lo, hi) {
			frame.Culled++
			continue
		}
		item := DrawItem{
			Entity:   e,
			Mesh:     row.Second.Handle,
			Material: row.Third.Handle,
			Model:    model,
			Depth:    lo.Add(hi).Mul(0.5).Sub(frame.View.Eye).Len(),
		}
		if matObj.Material.Blend == gpu.BlendAlpha {
			item.Layer = LayerTransparent
			g.transparent = append(g.transparent, item)
		} else {
			item.Layer = LayerOpaque
			g.opaque = append(g.opaque, item)
		}
	}

	slices.SortFunc(g.opaque, frontToBack)
	slices.SortFunc(g.transparent, backToFront)
	frame.Passes = appendGrouped(frame.Passes, g.opaque, LayerOpaque)
	frame.Passes = appendRuns(frame.Passes, g.transparent, LayerTransparent)
	return frame
}

func (g *Graph) textureReady(m resource.Material) bool {
	return m.Texture.IsZero() || g.resources.State(m.Texture) == resource.StateReady
}

// tieBreak orders items at equal depth by entity ID, then mesh handle.
func tieBreak(a, b DrawItem) int {
	return cmp.Or(
		cmp.Compare(a.Entity.ID, b.Entity.ID),
		cmp.Compare(a.Mesh.Index(), b.Mesh.Index()),
	)
}

func frontToBack(a, b DrawItem) int {
	return cmp.Or(cmp.Compare(a.Depth, b.Depth), tieBreak(a, b))
}

func backToFront(a, b DrawItem) int {
	return cmp.Or(cmp.Compare(b.Depth, a.Depth), tieBreak(a, b))
}

// appendGrouped puts sorted items into one pass per material. Passes are ordered by their first
// (nearest) item and keep the items' order.
func appendGrouped(passes []Pass, items []DrawItem, layer Layer) []Pass {
	index := make(map[resource.Handle]int)
	for _, it := range items {
		i, ok := index[it.Material]
		if !ok {
			i = len(passes)
			index[it.Material] = i
			passes = append(passes, Pass{Layer: layer, Material: it.Material})
		}
		passes[i].Items = append(passes[i].Items, it)
	}
	return passes
}

// appendRuns merges consecutive items sharing a material into one pass, keeping the item order.
func appendRuns(passes []Pass, items []DrawItem, layer Layer) []Pass {
	for i, it := range items {
		if i > 0 && items[i-1].Material == it.Material {
			last := &passes[len(passes)-1]
			last.Items = append(last.Items, it)
			continue
		}
		passes = append(passes, Pass{Layer: layer, Material: it.Material, Items: []DrawItem{it}})
	}
	return passes
}

// AppendOverlay adds items as the final pass, in the given order. Items that are not Ready are
// dropped like world items.
func (g *Graph) AppendOverlay(frame *Frame, items []DrawItem) {
	pass := Pass{Layer: LayerOverlay}
	for _, it := range items {
		if g.resources.State(it.Mesh) != resource.StateReady {
			frame.Dropped++
			continue
		}
		matObj, st := g.resources.Get(it.Material)
		if st != resource.StateReady || !g.textureReady(matObj.Material) {
			frame.Dropped++
			continue
		}
		it.Layer = LayerOverlay
		pass.Items = append(pass.Items, it)
	}
	if len(pass.Items) > 0 {
		frame.Passes = append(frame.Passes, pass)
	}
}

// Encode turns frame into a command list and returns every handle the list references, for the
// resource manager to fence.
func (g *Graph) Encode(frame *Frame) (gpu.CommandList, []resource.Handle) {
	defer profiling.Track("render.encode")()

	list := gpu.CommandList{Width: frame.View.Width, Height: frame.View.Height}
	refs := make([]resource.Handle, 0, frame.DrawCount()*2)
	overlayProj := mgl32.Ortho(0, float32(frame.View.Width), float32(frame.View.Height), 0, -1, 1)

	for _, p := range frame.Passes {
		gp := gpu.Pass{Label: p.Layer.String(), ViewProj: frame.View.ViewProj}
		if p.Layer == LayerOverlay {
			gp.ViewProj = overlayProj
		} else {
			gp.Lights = frame.Lights
			gp.Ambient = frame.Ambient
		}
		for _, it := range p.Items {
			d, ok := g.draw(it, &refs)
			if ok {
				gp.Draws = append(gp.Draws, d)
			}
		}
		list.Passes = append(list.Passes, gp)
	}

	if len(frame.Passes) == 0 || frame.Passes[0].Layer == LayerOverlay {
		list.Passes = slices.Insert(list.Passes, 0, gpu.Pass{Label: "clear", ViewProj: frame.View.ViewProj})
	}
	list.Passes[0].Clear = true
	list.Passes[0].ClearColor = g.clear
	return list, refs
}

func (g *Graph) draw(it DrawItem, refs *[]resource.Handle) (gpu.Draw, bool) {
	meshObj, ok := g.resources.Resolve(it.Mesh)
	if !ok {
		return gpu.Draw{}, false
	}
	matObj, ok := g.resources.Resolve(it.Material)
	if !ok {
		return gpu.Draw{}, false
	}
	mat := matObj.Material
	d := gpu.Draw{
		Pipeline:     mat.Pipeline,
		VertexBuffer: meshObj.Mesh.VertexBuffer,
		IndexBuffer:  meshObj.Mesh.IndexBuffer,
		VertexCount:  meshObj.Mesh.VertexCount,
		IndexCount:   meshObj.Mesh.IndexCount,
		Model:        it.Model,
		Color:        mat.Color,
	}
	*refs = append(*refs, it.Mesh, it.Material)
	if !mat.Texture.IsZero() {
		texObj, ok := g.resources.Resolve(mat.Texture)
		if !ok {
			return gpu.Draw{}, false
		}
		d.Texture = texObj.Texture
		*refs = append(*refs, mat.Texture)
	}
	return d, true
}
