package assetfmt

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

type objCorner struct{ v, vt, vn int }

// ParseOBJ decodes the geometry of a Wavefront OBJ file: v, vt, vn and f records. Polygons are
// fan-triangulated, negative indices are relative, and every other record is ignored.
func ParseOBJ(data []byte) (*Mesh, error) {
	var (
		positions [][3]float32
		uvs       [][2]float32
		normals   [][3]float32
		name      string
	)
	b := newMeshBuilder()
	corners := make(map[objCorner]uint32)
	var needNormals []uint32

	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "o":
			if len(fields) > 1 && name == "" {
				name = fields[1]
			}
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, eris.Wrapf(err, "line %d", line)
			}
			positions = append(positions, [3]float32{p[0], p[1], p[2]})
		case "vt":
			p, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, eris.Wrapf(err, "line %d", line)
			}
			uvs = append(uvs, [2]float32{p[0], p[1]})
		case "vn":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, eris.Wrapf(err, "line %d", line)
			}
			normals = append(normals, [3]float32{p[0], p[1], p[2]})
		case "f":
			if len(fields) < 4 {
				return nil, eris.Errorf("line %d: face with %d vertices", line, len(fields)-1)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				c, err := parseCorner(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, eris.Wrapf(err, "line %d", line)
				}
				idx, ok := corners[c]
				if !ok {
					idx = b.vertexCount()
					corners[c] = idx
					var vert [VertexStride]float32
					copy(vert[0:3], positions[c.v][:])
					if c.vn >= 0 {
						copy(vert[3:6], normals[c.vn][:])
					}
					if c.vt >= 0 {
						vert[6], vert[7] = uvs[c.vt][0], 1-uvs[c.vt][1]
					}
					b.vertices = append(b.vertices, vert[:]...)
				}
				face = append(face, idx)
			}
			start := len(b.indices)
			for i := 1; i+1 < len(face); i++ {
				b.indices = append(b.indices, face[0], face[i], face[i+1])
			}
			if len(normals) == 0 {
				needNormals = append(needNormals, b.indices[start:]...)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "could not scan obj")
	}
	if len(b.indices) == 0 {
		return nil, eris.New("obj has no faces")
	}
	if len(needNormals) > 0 {
		b.computeNormals(0, needNormals)
	}
	return b.finish(name, [3]float32{}, 1), nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, eris.Errorf("want %d numbers, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, eris.Wrapf(err, "bad number %q", fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn" into zero-based indices, -1 when absent.
func parseCorner(tok string, nv, nvt, nvn int) (objCorner, error) {
	parts := strings.Split(tok, "/")
	c := objCorner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], nv); err != nil {
		return c, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], nvt); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], nvn); err != nil {
			return c, err
		}
	}
	return c, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Wrapf(err, "bad index %q", s)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, eris.Errorf("index %d out of range (%d defined)", i, count)
}
