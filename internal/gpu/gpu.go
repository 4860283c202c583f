// Package gpu is the contract between the runtime core and a GPU backend.
//
// Only the resource manager calls a Device. Backends report device loss by returning errors
// wrapping fault.ErrDeviceLost or fault.ErrSurfaceLost.
package gpu

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

type (
	BufferID   uint32
	TextureID  uint32
	PipelineID uint32
)

// Fence marks the completion of one submission. Fences increase monotonically; zero means none.
type Fence uint64

// VertexStride is the number of floats per interleaved vertex: position(3) normal(3) uv(2).
const VertexStride = 8

// BufferUsage says how a buffer is bound.
type BufferUsage uint8

const (
	BufferVertex BufferUsage = iota
	BufferIndex
)

// BufferDesc describes a buffer and its initial contents.
type BufferDesc struct {
	Label string
	Usage BufferUsage
	Data  []byte
}

// TextureFormat is the pixel layout of a texture.
type TextureFormat uint8

const (
	FormatRGBA8 TextureFormat = iota
	FormatDepth24
)

// Filter selects texture sampling.
type Filter uint8

const (
	FilterLinear Filter = iota
	FilterNearest
)

// TextureDesc describes a 2D texture. Pixels may be nil for render targets.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	Filter Filter
	Pixels []byte
}

// BlendMode selects how fragments combine with the target.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendAlpha
)

func (b BlendMode) String() string {
	if b == BlendAlpha {
		return "alpha"
	}
	return "opaque"
}

// PipelineDesc describes a shader program and its fixed-function state.
type PipelineDesc struct {
	Label          string
	VertexSource   string
	FragmentSource string
	Blend          BlendMode
	DepthTest      bool
	DepthWrite     bool
}

// Draw is one indexed (or, with no index buffer, non-indexed) draw call.
type Draw struct {
	Pipeline     PipelineID
	Texture      TextureID
	VertexBuffer BufferID
	IndexBuffer  BufferID
	VertexCount  int
	IndexCount   int
	Model        mgl32.Mat4
	Color        mgl32.Vec4
}

// MaxLights is how many lights a lit pipeline evaluates per pass.
const MaxLights = 8

// LightKind selects how a Light is evaluated.
type LightKind uint8

const (
	LightDirectional LightKind = iota
	LightPoint
)

func (k LightKind) String() string {
	if k == LightPoint {
		return "point"
	}
	return "directional"
}

// Light is one light as the lit pipeline sees it. Direction is the way a directional light
// travels and is unused for point lights; Position and Range are unused for directional lights.
type Light struct {
	Kind      LightKind
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	// Range is where a point light's contribution reaches zero. Zero means no falloff limit.
	Range float32
}

// Pass is a sequence of draws sharing a view-projection matrix and lights.
type Pass struct {
	Label      string
	ViewProj   mgl32.Mat4
	Clear      bool
	ClearColor mgl32.Vec4
	// Ambient is the light level every lit surface receives.
	Ambient float32
	// Lights reach lit pipelines only; at most MaxLights are used.
	Lights []Light
	Draws  []Draw
}

// CommandList is everything submitted for one frame.
type CommandList struct {
	Width, Height int
	Passes        []Pass
}

// DrawCount returns the total number of draws across passes.
func (l *CommandList) DrawCount() int {
	n := 0
	for i := range l.Passes {
		n += len(l.Passes[i].Draws)
	}
	return n
}

// Device creates and destroys GPU objects and executes command lists.
type Device interface {
	CreateBuffer(desc BufferDesc) (BufferID, error)
	CreateTexture(desc TextureDesc) (TextureID, error)
	CreatePipeline(desc PipelineDesc) (PipelineID, error)
	DestroyBuffer(id BufferID)
	DestroyTexture(id TextureID)
	DestroyPipeline(id PipelineID)
	// Submit queues list for execution and returns the fence that signals its completion.
	Submit(list *CommandList) (Fence, error)
	// PollFence reports whether f has signaled. It never blocks.
	PollFence(f Fence) bool
}

// Surface is the presentable target supplied by the windowing layer.
type Surface interface {
	// Acquire prepares the next image for rendering.
	Acquire() error
	// Present shows the rendered image. It may block on the presentation engine.
	Present() error
	Resize(width, height int) error
	// Recreate rebuilds the surface after loss.
	Recreate() error
	Size() (width, height int)
}

// Float32Bytes reinterprets v as bytes without copying.
func Float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// Uint32Bytes reinterprets v as bytes without copying.
func Uint32Bytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
