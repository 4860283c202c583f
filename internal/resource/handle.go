package resource

import (
	"fmt"

	"mirage/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind is the type of object a handle refers to.
type Kind uint8

const (
	KindBuffer Kind = iota + 1
	KindTexture
	KindPipeline
	KindMesh
	KindMaterial
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindPipeline:
		return "pipeline"
	case KindMesh:
		return "mesh"
	case KindMaterial:
		return "material"
	default:
		return "unknown"
	}
}

// State is the readiness of a handle.
type State uint8

const (
	// StateInvalid means the handle is stale, evicted or zero.
	StateInvalid State = iota
	StatePending
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Handle is a generation-tagged index into the manager's object table. The zero Handle is invalid.
type Handle struct {
	index uint32
	gen   uint32
	kind  Kind
}

func (h Handle) Index() uint32      { return h.index }
func (h Handle) Generation() uint32 { return h.gen }
func (h Handle) Kind() Kind         { return h.kind }
func (h Handle) IsZero() bool       { return h == Handle{} }

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d.%d", h.kind, h.index, h.gen)
}

// Bounds is an axis-aligned bounding box in model space.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// Center returns the midpoint of b.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Mesh is the device side of a Ready mesh.
type Mesh struct {
	VertexBuffer gpu.BufferID
	IndexBuffer  gpu.BufferID
	VertexCount  int
	IndexCount   int
	Bounds       Bounds
}

// Material is the device side of a Ready material.
type Material struct {
	Pipeline gpu.PipelineID
	// Texture is zero for untextured materials.
	Texture Handle
	Color   mgl32.Vec4
	Blend   gpu.BlendMode
}

// Object is the device record behind a handle. Only the fields for its Kind are set.
type Object struct {
	Kind     Kind
	Buffer   gpu.BufferID
	Texture  gpu.TextureID
	Width    int
	Height   int
	Pipeline gpu.PipelineID
	Mesh     Mesh
	Material Material
}
