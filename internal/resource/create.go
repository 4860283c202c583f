package resource

import (
	"mirage/internal/gpu"

	"github.com/rotisserie/eris"
)

// create builds the device objects for data.
func (m *Manager) create(data Data) (Object, error) {
	switch d := data.(type) {
	case BufferData:
		id, err := m.device.CreateBuffer(d.Desc)
		if err != nil {
			return Object{}, err
		}
		return Object{Kind: KindBuffer, Buffer: id}, nil

	case TextureData:
		if d.Width <= 0 || d.Height <= 0 || len(d.Pixels) != d.Width*d.Height*4 {
			return Object{}, eris.Errorf("texture %dx%d with %d bytes", d.Width, d.Height, len(d.Pixels))
		}
		id, err := m.device.CreateTexture(gpu.TextureDesc{
			Label:  d.Label,
			Width:  d.Width,
			Height: d.Height,
			Format: gpu.FormatRGBA8,
			Filter: d.Filter,
			Pixels: d.Pixels,
		})
		if err != nil {
			return Object{}, err
		}
		return Object{Kind: KindTexture, Texture: id, Width: d.Width, Height: d.Height}, nil

	case PipelineData:
		id, err := m.device.CreatePipeline(d.Desc)
		if err != nil {
			return Object{}, err
		}
		return Object{Kind: KindPipeline, Pipeline: id}, nil

	case MeshData:
		return m.createMesh(d)

	case MaterialData:
		desc, ok := gpu.BuiltinPipeline(d.Shader, d.Blend)
		if !ok {
			return Object{}, eris.Errorf("unknown shader %q", d.Shader)
		}
		id, err := m.device.CreatePipeline(desc)
		if err != nil {
			return Object{}, err
		}
		return Object{Kind: KindMaterial, Material: Material{
			Pipeline: id,
			Texture:  d.Texture,
			Color:    d.Color,
			Blend:    d.Blend,
		}}, nil
	}
	return Object{}, eris.Errorf("unsupported resource data %T", data)
}

func (m *Manager) createMesh(d MeshData) (Object, error) {
	if len(d.Vertices) == 0 || len(d.Vertices)%gpu.VertexStride != 0 {
		return Object{}, eris.Errorf("mesh has %d floats, want a positive multiple of %d", len(d.Vertices), gpu.VertexStride)
	}
	vertexCount := len(d.Vertices) / gpu.VertexStride
	for _, idx := range d.Indices {
		if int(idx) >= vertexCount {
			return Object{}, eris.Errorf("index %d out of range for %d vertices", idx, vertexCount)
		}
	}

	vb, err := m.device.CreateBuffer(gpu.BufferDesc{
		Label: d.Label + ".vertices",
		Usage: gpu.BufferVertex,
		Data:  gpu.Float32Bytes(d.Vertices),
	})
	if err != nil {
		return Object{}, err
	}
	mesh := Mesh{VertexBuffer: vb, VertexCount: vertexCount, Bounds: d.Bounds}
	if len(d.Indices) > 0 {
		ib, err := m.device.CreateBuffer(gpu.BufferDesc{
			Label: d.Label + ".indices",
			Usage: gpu.BufferIndex,
			Data:  gpu.Uint32Bytes(d.Indices),
		})
		if err != nil {
			m.device.DestroyBuffer(vb)
			return Object{}, err
		}
		mesh.IndexBuffer = ib
		mesh.IndexCount = len(d.Indices)
	}
	return Object{Kind: KindMesh, Mesh: mesh}, nil
}
