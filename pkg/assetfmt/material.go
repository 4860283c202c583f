package assetfmt

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// ParseMaterial decodes a JSON material. "texture" may be a "#name" reference into "textures".
func ParseMaterial(data []byte) (*Material, error) {
	var doc materialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "could not unmarshal material json")
	}

	m := &Material{
		Shader: doc.Shader,
		Color:  [4]float32{1, 1, 1, 1},
		Blend:  strings.ToLower(doc.Blend),
		Filter: strings.ToLower(doc.Filter),
	}
	if m.Shader == "" {
		m.Shader = "lit"
	}
	if doc.Color != nil {
		m.Color = *doc.Color
	}
	switch m.Blend {
	case "":
		m.Blend = "opaque"
		if m.Color[3] < 1 {
			m.Blend = "alpha"
		}
	case "opaque", "alpha":
	case "transparent":
		m.Blend = "alpha"
	default:
		return nil, eris.Errorf("unknown blend mode %q", doc.Blend)
	}
	switch m.Filter {
	case "":
		m.Filter = "linear"
	case "linear", "nearest":
	default:
		return nil, eris.Errorf("unknown filter %q", doc.Filter)
	}

	tex, err := ResolveTexture(doc.Texture, doc.Textures)
	if err != nil {
		return nil, err
	}
	m.Texture = tex
	return m, nil
}

// ResolveTexture follows "#name" references through textures until it reaches a path.
func ResolveTexture(name string, textures map[string]string) (string, error) {
	for range 10 {
		if !strings.HasPrefix(name, "#") {
			return name, nil
		}
		resolved, ok := textures[strings.TrimPrefix(name, "#")]
		if !ok {
			return "", eris.Errorf("unresolved texture reference %q", name)
		}
		name = resolved
	}
	return "", eris.Errorf("texture reference %q nests too deeply", name)
}
