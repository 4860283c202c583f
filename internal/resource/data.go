package resource

import (
	"mirage/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Data is CPU-side content uploaded into a pending handle.
type Data interface {
	Kind() Kind
}

// BufferData uploads a raw buffer.
type BufferData struct {
	Desc gpu.BufferDesc
}

// TextureData uploads an RGBA8 image.
type TextureData struct {
	Label  string
	Width  int
	Height int
	Pixels []byte
	Filter gpu.Filter
}

// PipelineData compiles a pipeline.
type PipelineData struct {
	Desc gpu.PipelineDesc
}

// MeshData uploads interleaved vertices (gpu.VertexStride floats each) and optional indices.
type MeshData struct {
	Label    string
	Vertices []float32
	Indices  []uint32
	Bounds   Bounds
}

// MaterialData builds a material from a builtin shader.
type MaterialData struct {
	Label   string
	Shader  string
	Color   mgl32.Vec4
	Texture Handle
	Blend   gpu.BlendMode
}

func (BufferData) Kind() Kind   { return KindBuffer }
func (TextureData) Kind() Kind  { return KindTexture }
func (PipelineData) Kind() Kind { return KindPipeline }
func (MeshData) Kind() Kind     { return KindMesh }
func (MaterialData) Kind() Kind { return KindMaterial }
