package assetfmt

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// ParseMeshJSON decodes a JSON mesh document. Triangles come from "positions" (with optional
// "normals", "uvs" and "indices") followed by any box "elements". Missing normals are computed
// from the triangles.
func ParseMeshJSON(data []byte) (*Mesh, error) {
	var doc meshDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "could not unmarshal mesh json")
	}

	b := newMeshBuilder()
	if err := b.addTriangles(doc); err != nil {
		return nil, err
	}
	for i, el := range doc.Elements {
		if err := b.addBox(el); err != nil {
			return nil, eris.Wrapf(err, "element %d", i)
		}
	}
	if len(b.vertices) == 0 {
		return nil, eris.New("mesh has no geometry")
	}

	scale := float32(1)
	if doc.Scale != nil {
		if *doc.Scale <= 0 {
			return nil, eris.Errorf("invalid scale %v", *doc.Scale)
		}
		scale = *doc.Scale
	}
	return b.finish(doc.Name, doc.Origin, scale), nil
}

type meshBuilder struct {
	vertices []float32
	indices  []uint32
}

func newMeshBuilder() *meshBuilder {
	return &meshBuilder{}
}

func (b *meshBuilder) vertexCount() uint32 {
	return uint32(len(b.vertices) / VertexStride)
}

func (b *meshBuilder) addTriangles(doc meshDocument) error {
	if len(doc.Positions) == 0 {
		if len(doc.Indices) > 0 {
			return eris.New("indices without positions")
		}
		return nil
	}
	if len(doc.Positions)%3 != 0 {
		return eris.Errorf("positions length %d is not a multiple of 3", len(doc.Positions))
	}
	n := len(doc.Positions) / 3
	if len(doc.Normals) != 0 && len(doc.Normals) != n*3 {
		return eris.Errorf("normals length %d, want %d", len(doc.Normals), n*3)
	}
	if len(doc.UVs) != 0 && len(doc.UVs) != n*2 {
		return eris.Errorf("uvs length %d, want %d", len(doc.UVs), n*2)
	}

	indices := doc.Indices
	if len(indices) == 0 {
		if n%3 != 0 {
			return eris.Errorf("%d vertices do not form whole triangles", n)
		}
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return eris.Errorf("indices length %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= n {
			return eris.Errorf("index %d out of range for %d vertices", idx, n)
		}
	}

	base := b.vertexCount()
	for i := range n {
		var nx, ny, nz, u, v float32
		if len(doc.Normals) > 0 {
			nx, ny, nz = doc.Normals[i*3], doc.Normals[i*3+1], doc.Normals[i*3+2]
		}
		if len(doc.UVs) > 0 {
			u, v = doc.UVs[i*2], doc.UVs[i*2+1]
		}
		b.vertices = append(b.vertices,
			doc.Positions[i*3], doc.Positions[i*3+1], doc.Positions[i*3+2],
			nx, ny, nz, u, v)
	}
	for _, idx := range indices {
		b.indices = append(b.indices, base+idx)
	}
	if len(doc.Normals) == 0 {
		b.computeNormals(base, indices)
	}
	return nil
}

// computeNormals accumulates face normals into the vertices added since base.
func (b *meshBuilder) computeNormals(base uint32, indices []uint32) {
	pos := func(i uint32) mgl32.Vec3 {
		o := int(base+i) * VertexStride
		return mgl32.Vec3{b.vertices[o], b.vertices[o+1], b.vertices[o+2]}
	}
	acc := make(map[uint32]mgl32.Vec3)
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		p0 := pos(i0)
		face := pos(i1).Sub(p0).Cross(pos(i2).Sub(p0))
		for _, i := range []uint32{i0, i1, i2} {
			acc[i] = acc[i].Add(face)
		}
	}
	for i, nrm := range acc {
		if nrm.Len() == 0 {
			continue
		}
		nrm = nrm.Normalize()
		o := int(base+i)*VertexStride + 3
		b.vertices[o], b.vertices[o+1], b.vertices[o+2] = nrm[0], nrm[1], nrm[2]
	}
}

type boxFace struct {
	name    string
	normal  [3]float32
	corners [4][3]int // per corner: 0 selects From, 1 selects To, per axis
}

// Faces wind counter-clockwise when viewed from outside.
var boxFaces = []boxFace{
	{"north", [3]float32{0, 0, -1}, [4][3]int{{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}}},
	{"south", [3]float32{0, 0, 1}, [4][3]int{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{"west", [3]float32{-1, 0, 0}, [4][3]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}},
	{"east", [3]float32{1, 0, 0}, [4][3]int{{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}}},
	{"down", [3]float32{0, -1, 0}, [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{"up", [3]float32{0, 1, 0}, [4][3]int{{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}}},
}

var boxUVs = [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

func (b *meshBuilder) addBox(el Element) error {
	for axis := range 3 {
		if el.From[axis] > el.To[axis] {
			return eris.Errorf("from %v exceeds to %v", el.From, el.To)
		}
	}
	for _, f := range el.Faces {
		if !slices.ContainsFunc(boxFaces, func(bf boxFace) bool { return bf.name == f }) {
			return eris.Errorf("unknown face %q", f)
		}
	}
	corners := [2][3]float32{el.From, el.To}
	for _, face := range boxFaces {
		if len(el.Faces) > 0 && !slices.Contains(el.Faces, face.name) {
			continue
		}
		base := b.vertexCount()
		for c, sel := range face.corners {
			b.vertices = append(b.vertices,
				corners[sel[0]][0], corners[sel[1]][1], corners[sel[2]][2],
				face.normal[0], face.normal[1], face.normal[2],
				boxUVs[c][0], boxUVs[c][1])
		}
		b.indices = append(b.indices, base, base+1, base+2, base, base+2, base+3)
	}
	return nil
}

// finish applies origin and scale and computes bounds.
func (b *meshBuilder) finish(name string, origin [3]float32, scale float32) *Mesh {
	m := &Mesh{Name: name, Vertices: b.vertices, Indices: b.indices}
	m.Min = [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	m.Max = [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for o := 0; o < len(m.Vertices); o += VertexStride {
		for axis := range 3 {
			p := (m.Vertices[o+axis] - origin[axis]) * scale
			m.Vertices[o+axis] = p
			m.Min[axis] = min(m.Min[axis], p)
			m.Max[axis] = max(m.Max[axis], p)
		}
	}
	return m
}
