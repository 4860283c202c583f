// Package assetfmt parses asset files into CPU-side data. Every parser is a pure function of the
// file contents; none of them touch the filesystem or the GPU.
package assetfmt

// VertexStride is the number of floats per vertex in Mesh.Vertices: position(3) normal(3) uv(2).
const VertexStride = 8

// Mesh is decoded, interleaved geometry.
type Mesh struct {
	Name     string
	Vertices []float32
	Indices  []uint32
	Min, Max [3]float32
}

// VertexCount returns the number of vertices in m.
func (m *Mesh) VertexCount() int { return len(m.Vertices) / VertexStride }

// Image is decoded RGBA8 pixel data, rows top to bottom.
type Image struct {
	Width, Height int
	Pixels        []byte
	// Format is the name of the source encoding, e.g. "png".
	Format string
}

// Material describes surface appearance. Texture is a path relative to the asset root, or empty.
type Material struct {
	Shader  string
	Color   [4]float32
	Texture string
	Blend   string
	Filter  string
}

// meshDocument is the JSON mesh format.
type meshDocument struct {
	Name      string     `json:"name"`
	Positions []float32  `json:"positions"`
	Normals   []float32  `json:"normals"`
	UVs       []float32  `json:"uvs"`
	Indices   []uint32   `json:"indices"`
	Elements  []Element  `json:"elements"`
	Scale     *float32   `json:"scale"`
	Origin    [3]float32 `json:"origin"`
}

// Element is an axis-aligned box appended to a JSON mesh, given by opposite corners.
type Element struct {
	From [3]float32 `json:"from"`
	To   [3]float32 `json:"to"`
	// Faces lists the faces to emit ("north", "south", "east", "west", "up", "down"). Empty means all.
	Faces []string `json:"faces"`
}

type materialDocument struct {
	Shader   string            `json:"shader"`
	Color    *[4]float32       `json:"color"`
	Texture  string            `json:"texture"`
	Textures map[string]string `json:"textures"`
	Blend    string            `json:"blend"`
	Filter   string            `json:"filter"`
}
